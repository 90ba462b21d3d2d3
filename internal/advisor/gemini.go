package advisor

import (
	"context"
	"fmt"

	"CoinMentor/internal/domain/models"
	"CoinMentor/pkg/config"
	pkghttp "CoinMentor/pkg/http"
)

const geminiDefaultEndpoint = "https://generativelanguage.googleapis.com"

// GeminiClient talks to the Google Gemini generateContent API.
type GeminiClient struct {
	base
}

// NewGeminiClient creates a Gemini advisor adapter.
func NewGeminiClient(cfg config.AdvisorConfig) (*GeminiClient, error) {
	b, err := newBase(cfg, models.ProviderGemini, geminiDefaultEndpoint)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{base: b}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// geminiRole maps conversation roles onto Gemini's user/model scheme.
func geminiRole(r models.Role) string {
	if r == models.RoleAssistant {
		return "model"
	}
	return "user"
}

func (c *GeminiClient) Send(ctx context.Context, history []models.Message, mctx models.MarketContext) (string, error) {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: mctx.Prompt()}},
	})

	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          contents,
	}
	req.GenerationConfig.MaxOutputTokens = c.maxTokens

	var resp geminiResponse
	err := c.httpc.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.identity.Model),
		Headers: map[string]string{
			"x-goog-api-key": c.apiKey,
		},
		Body: req,
	}, &resp)
	if err != nil {
		return "", c.classify(err)
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", c.malformed("response carries no candidates")
}
