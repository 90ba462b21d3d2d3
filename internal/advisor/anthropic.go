package advisor

import (
	"context"
	"fmt"

	"CoinMentor/internal/domain/models"
	"CoinMentor/pkg/config"
	pkghttp "CoinMentor/pkg/http"
)

const (
	anthropicDefaultEndpoint = "https://api.anthropic.com"
	anthropicAPIVersion      = "2023-06-01"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	base
}

// NewAnthropicClient creates an Anthropic advisor adapter.
func NewAnthropicClient(cfg config.AdvisorConfig) (*AnthropicClient, error) {
	b, err := newBase(cfg, models.ProviderAnthropic, anthropicDefaultEndpoint)
	if err != nil {
		return nil, err
	}
	return &AnthropicClient{base: b}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *AnthropicClient) Send(ctx context.Context, history []models.Message, mctx models.MarketContext) (string, error) {
	msgs := make([]anthropicMessage, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, anthropicMessage{Role: string(models.RoleUser), Content: mctx.Prompt()})

	var resp anthropicResponse
	err := c.httpc.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    fmt.Sprintf("%s/v1/messages", c.endpoint),
		Headers: map[string]string{
			"x-api-key":         c.apiKey,
			"anthropic-version": anthropicAPIVersion,
		},
		Body: anthropicRequest{
			Model:     c.identity.Model,
			MaxTokens: c.maxTokens,
			System:    systemPrompt,
			Messages:  msgs,
		},
	}, &resp)
	if err != nil {
		return "", c.classify(err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", c.malformed("response carries no text content")
}
