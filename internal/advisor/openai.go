package advisor

import (
	"context"
	"fmt"

	"CoinMentor/internal/domain/models"
	"CoinMentor/pkg/config"
	pkghttp "CoinMentor/pkg/http"
)

// OpenAI-compatible chat completions. Grok (x.ai) and other providers
// expose the same wire format, so one adapter covers them all.
const openAIDefaultEndpoint = "https://api.openai.com"

// OpenAIClient talks to an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	base
}

// NewOpenAIClient creates an OpenAI-compatible advisor adapter.
func NewOpenAIClient(cfg config.AdvisorConfig) (*OpenAIClient, error) {
	b, err := newBase(cfg, models.ProviderOpenAI, openAIDefaultEndpoint)
	if err != nil {
		return nil, err
	}
	return &OpenAIClient{base: b}, nil
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Send(ctx context.Context, history []models.Message, mctx models.MarketContext) (string, error) {
	msgs := make([]openAIMessage, 0, len(history)+2)
	msgs = append(msgs, openAIMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		msgs = append(msgs, openAIMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, openAIMessage{Role: string(models.RoleUser), Content: mctx.Prompt()})

	var resp openAIResponse
	err := c.httpc.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    fmt.Sprintf("%s/v1/chat/completions", c.endpoint),
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
		},
		Body: openAIRequest{
			Model:     c.identity.Model,
			Messages:  msgs,
			MaxTokens: c.maxTokens,
		},
	}, &resp)
	if err != nil {
		return "", c.classify(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", c.malformed("response carries no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
