package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinMentor/internal/domain/models"
	"CoinMentor/pkg/config"
)

func testContext() models.MarketContext {
	return models.MarketContext{
		Symbol:         "BTCUSDT",
		Timestamp:      time.Now(),
		Price:          60000,
		RSI:            55.2,
		ADX:            28.4,
		Trend:          "up",
		VolatilityType: "trending",
		VolumeVsAvg:    1.3,
	}
}

func advisorCfg(t *testing.T, name, provider, endpoint string) config.AdvisorConfig {
	t.Setenv("TEST_ADVISOR_KEY", "sk-test")
	return config.AdvisorConfig{
		Name:      name,
		Provider:  provider,
		Endpoint:  endpoint,
		Model:     "test-model",
		APIKeyEnv: "TEST_ADVISOR_KEY",
		Timeout:   5 * time.Second,
		MaxTokens: 512,
	}
}

func TestAnthropicSend(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "looks bullish"}},
		})
	}))
	defer srv.Close()

	c, err := NewAnthropicClient(advisorCfg(t, "claude", "anthropic", srv.URL))
	require.NoError(t, err)

	history := []models.Message{
		{Role: models.RoleUser, Content: "previous question"},
		{Role: models.RoleAssistant, Content: "previous answer"},
	}
	reply, err := c.Send(context.Background(), history, testContext())
	require.NoError(t, err)
	assert.Equal(t, "looks bullish", reply)

	assert.NotEmpty(t, gotReq.System)
	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "assistant", gotReq.Messages[1].Role)
	assert.Contains(t, gotReq.Messages[2].Content, "BTCUSDT")
}

func TestGeminiSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 3)
		assert.Equal(t, "model", req.Contents[1].Role)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "stay flat"}},
				}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewGeminiClient(advisorCfg(t, "gemini", "gemini", srv.URL))
	require.NoError(t, err)

	history := []models.Message{
		{Role: models.RoleUser, Content: "q"},
		{Role: models.RoleAssistant, Content: "a"},
	}
	reply, err := c.Send(context.Background(), history, testContext())
	require.NoError(t, err)
	assert.Equal(t, "stay flat", reply)
}

func TestOpenAISend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "short it"}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(advisorCfg(t, "grok", "openai", srv.URL))
	require.NoError(t, err)

	reply, err := c.Send(context.Background(), nil, testContext())
	require.NoError(t, err)
	assert.Equal(t, "short it", reply)
}

func TestMissingAPIKeyIsUnauthenticated(t *testing.T) {
	cfg := config.AdvisorConfig{
		Name:      "claude",
		Provider:  "anthropic",
		Model:     "test-model",
		APIKeyEnv: "DEFINITELY_NOT_SET_ANYWHERE",
	}

	_, err := NewAnthropicClient(cfg)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindUnauthenticated, models.KindOf(err))
}

func TestStatusCodeClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   models.ErrorKind
	}{
		{http.StatusUnauthorized, models.ErrKindUnauthenticated},
		{http.StatusForbidden, models.ErrKindUnauthenticated},
		{http.StatusTooManyRequests, models.ErrKindRateLimited},
		{http.StatusInternalServerError, models.ErrKindUnreachable},
		{http.StatusBadGateway, models.ErrKindUnreachable},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		c, err := NewOpenAIClient(advisorCfg(t, "grok", "openai", srv.URL))
		require.NoError(t, err)

		_, err = c.Send(context.Background(), nil, testContext())
		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, tc.kind, models.KindOf(err), "status %d", tc.status)

		var ae *models.AdvisorError
		assert.True(t, errors.As(err, &ae))
		srv.Close()
	}
}

func TestTimeoutClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewAnthropicClient(advisorCfg(t, "claude", "anthropic", srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Send(ctx, nil, testContext())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindTimeout, models.KindOf(err))
}

func TestMalformedResponseClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(advisorCfg(t, "grok", "openai", srv.URL))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), nil, testContext())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindMalformedResponse, models.KindOf(err))
}

func TestEmptyContentIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"content": []interface{}{}})
	}))
	defer srv.Close()

	c, err := NewAnthropicClient(advisorCfg(t, "claude", "anthropic", srv.URL))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), nil, testContext())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindMalformedResponse, models.KindOf(err))
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(config.AdvisorConfig{Name: "x", Provider: "cohere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
