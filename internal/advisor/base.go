package advisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"CoinMentor/internal/domain/models"
	"CoinMentor/internal/domain/repository"
	"CoinMentor/pkg/config"
	pkghttp "CoinMentor/pkg/http"
)

// systemPrompt frames every advisor conversation. Advisors are asked to
// embed a machine-readable JSON block alongside their prose analysis.
const systemPrompt = `You are a professional cryptocurrency trading advisor. You receive market
snapshots with technical indicators and must produce a concrete trading
recommendation.

Always include exactly one JSON object in your reply with this shape:
{
  "strategy_name": "<short strategy label>",
  "action": "BUY" | "SELL" | "WAIT",
  "confidence_score": <0.0-1.0>,
  "rationale": "<one or two sentences>",
  "trade_params": {
    "symbol": "<trading pair>",
    "entry_price": <number>,
    "stop_loss": <number>,
    "take_profit": <number>,
    "trailing_stop_percent": <number, optional>,
    "scaling_targets": [<numbers>, optional]
  }
}

For WAIT, trade_params may be omitted. Price levels must be directionally
consistent: a BUY needs stop_loss < entry_price < take_profit, a SELL the
reverse. Keep the rest of your reply as free-form analysis.`

// base carries the pieces shared by all provider adapters.
type base struct {
	identity  models.AdvisorIdentity
	endpoint  string
	apiKey    string
	maxTokens int
	timeout   time.Duration
	httpc     *pkghttp.Client
}

func newBase(cfg config.AdvisorConfig, provider models.ProviderKind, defaultEndpoint string) (base, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return base{}, models.NewAdvisorError(cfg.Name, provider, models.ErrKindUnauthenticated,
			fmt.Errorf("environment variable %s is not set", cfg.APIKeyEnv))
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return base{
		identity: models.AdvisorIdentity{
			Name:     cfg.Name,
			Provider: provider,
			Model:    cfg.Model,
			Enabled:  true,
		},
		endpoint:  endpoint,
		apiKey:    apiKey,
		maxTokens: maxTokens,
		timeout:   timeout,
		httpc:     pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
	}, nil
}

func (b *base) Identity() models.AdvisorIdentity {
	return b.identity
}

// classify maps transport and status failures onto the advisor error
// taxonomy.
func (b *base) classify(err error) *models.AdvisorError {
	name, provider := b.identity.Name, b.identity.Provider

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewAdvisorError(name, provider, models.ErrKindTimeout, err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return models.NewAdvisorError(name, provider, models.ErrKindTimeout, err)
	}

	var se *pkghttp.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == 401 || se.Code == 403:
			return models.NewAdvisorError(name, provider, models.ErrKindUnauthenticated, err)
		case se.Code == 429:
			return models.NewAdvisorError(name, provider, models.ErrKindRateLimited, err)
		default:
			return models.NewAdvisorError(name, provider, models.ErrKindUnreachable, err)
		}
	}

	if strings.Contains(err.Error(), "decode json") {
		return models.NewAdvisorError(name, provider, models.ErrKindMalformedResponse, err)
	}

	return models.NewAdvisorError(name, provider, models.ErrKindUnreachable, err)
}

func (b *base) malformed(reason string) *models.AdvisorError {
	return models.NewAdvisorError(b.identity.Name, b.identity.Provider,
		models.ErrKindMalformedResponse, errors.New(reason))
}

// NewClient builds a provider adapter from configuration. A missing API
// key is reported as an Unauthenticated advisor error.
func NewClient(cfg config.AdvisorConfig) (repository.AdvisorClient, error) {
	switch models.ProviderKind(cfg.Provider) {
	case models.ProviderAnthropic:
		return NewAnthropicClient(cfg)
	case models.ProviderGemini:
		return NewGeminiClient(cfg)
	case models.ProviderOpenAI:
		return NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q for advisor %s", cfg.Provider, cfg.Name)
	}
}
