package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinMentor/internal/conversation"
	"CoinMentor/internal/domain/models"
	"CoinMentor/internal/proposal"
	applogger "CoinMentor/pkg/logger"
)

// fakeAdvisor scripts Send behavior per call.
type fakeAdvisor struct {
	name     string
	provider models.ProviderKind
	mu       sync.Mutex
	calls    int
	respond  func(call int, history []models.Message) (string, error)
}

func (f *fakeAdvisor) Identity() models.AdvisorIdentity {
	return models.AdvisorIdentity{Name: f.name, Provider: f.provider, Model: "fake", Enabled: true}
}

func (f *fakeAdvisor) Send(ctx context.Context, history []models.Message, mctx models.MarketContext) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.respond(call, history)
}

type nullMetrics struct{}

func (nullMetrics) RecordAdvisorRequest(advisor, provider, status string)          {}
func (nullMetrics) RecordAdvisorLatency(advisor, provider string, seconds float64) {}
func (nullMetrics) RecordProposal(advisor, action string)                          {}
func (nullMetrics) RecordMessageSent(backend, symbol string)                       {}
func (nullMetrics) RecordError(kind string)                                        {}
func (nullMetrics) RecordLastPrice(symbol string, price float64)                   {}
func (nullMetrics) RecordLatency(op string, seconds float64)                       {}

func testLogger(t *testing.T) *applogger.Logger {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func newTestOrchestrator(t *testing.T, opts ...OrchestratorOption) (*Orchestrator, *conversation.MemoryStore) {
	store := conversation.NewMemoryStore()
	o := NewOrchestrator(store, proposal.NewExtractor(nil), nullMetrics{}, testLogger(t), opts...)
	return o, store
}

func okAdvisor(name string, reply string) *fakeAdvisor {
	return &fakeAdvisor{
		name:     name,
		provider: models.ProviderAnthropic,
		respond: func(call int, history []models.Message) (string, error) {
			return reply, nil
		},
	}
}

func marketCtx() models.MarketContext {
	return models.MarketContext{
		Symbol: "BTCUSDT", Timestamp: time.Now(), Price: 60000,
		RSI: 52, ADX: 27, Trend: "up", VolatilityType: "trending", VolumeVsAvg: 1.1,
	}
}

func TestAskAllNoAdvisors(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	_, err := o.AskAll(context.Background(), marketCtx())
	assert.ErrorIs(t, err, ErrNoAdvisors)
}

func TestAskAllPartialFailure(t *testing.T) {
	o, store := newTestOrchestrator(t)

	a := okAdvisor("alpha", `{"action":"buy","symbol":"BTCUSDT","entry":60000,"stop_loss":58000,"take_profit":64000}`)
	b := &fakeAdvisor{
		name: "beta", provider: models.ProviderGemini,
		respond: func(int, []models.Message) (string, error) {
			return "", models.NewAdvisorError("beta", models.ProviderGemini, models.ErrKindTimeout, context.DeadlineExceeded)
		},
	}
	c := &fakeAdvisor{
		name: "gamma", provider: models.ProviderOpenAI,
		respond: func(int, []models.Message) (string, error) {
			return "", models.NewAdvisorError("gamma", models.ProviderOpenAI, models.ErrKindMalformedResponse, errors.New("no choices"))
		},
	}
	o.RegisterAdvisor(a)
	o.RegisterAdvisor(b)
	o.RegisterAdvisor(c)

	res, err := o.AskAll(context.Background(), marketCtx())
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 3)
	assert.NotEmpty(t, res.RoundID)

	// registration order preserved
	assert.Equal(t, "alpha", res.Outcomes[0].Advisor)
	assert.Equal(t, "beta", res.Outcomes[1].Advisor)
	assert.Equal(t, "gamma", res.Outcomes[2].Advisor)

	assert.Equal(t, models.StatusOK, res.Outcomes[0].Status)
	require.NotNil(t, res.Outcomes[0].Proposal)
	assert.Equal(t, models.ActionBuy, res.Outcomes[0].Proposal.Action)

	assert.Equal(t, models.StatusTimeout, res.Outcomes[1].Status)
	assert.Equal(t, models.ErrKindTimeout, res.Outcomes[1].ErrorKind)
	assert.Empty(t, res.Outcomes[1].Reply)

	assert.Equal(t, models.StatusError, res.Outcomes[2].Status)
	assert.Equal(t, models.ErrKindMalformedResponse, res.Outcomes[2].ErrorKind)

	assert.Equal(t, 1, res.SucceededCount())

	// only the successful advisor's history advanced
	ctx := context.Background()
	alphaHist, err := store.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, alphaHist, 2)

	for _, name := range []string{"beta", "gamma"} {
		hist, err := store.Get(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, hist, name)
	}
}

func TestHistoryGrowsTwoPerSuccessfulRound(t *testing.T) {
	o, store := newTestOrchestrator(t)
	o.RegisterAdvisor(okAdvisor("alpha", "all quiet"))

	const rounds = 4
	for i := 0; i < rounds; i++ {
		_, err := o.AskAll(context.Background(), marketCtx())
		require.NoError(t, err)
	}

	hist, err := store.Get(context.Background(), "alpha")
	require.NoError(t, err)
	require.Len(t, hist, 2*rounds)
	for i, m := range hist {
		if i%2 == 0 {
			assert.Equal(t, models.RoleUser, m.Role)
		} else {
			assert.Equal(t, models.RoleAssistant, m.Role)
		}
	}
}

func TestAdvisorReceivesPriorHistory(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	var secondCallHistory []models.Message
	adv := &fakeAdvisor{
		name: "alpha", provider: models.ProviderAnthropic,
		respond: func(call int, history []models.Message) (string, error) {
			if call == 2 {
				secondCallHistory = append([]models.Message(nil), history...)
			}
			return fmt.Sprintf("reply %d", call), nil
		},
	}
	o.RegisterAdvisor(adv)

	_, err := o.AskAll(context.Background(), marketCtx())
	require.NoError(t, err)
	_, err = o.AskAll(context.Background(), marketCtx())
	require.NoError(t, err)

	require.Len(t, secondCallHistory, 2)
	assert.Equal(t, models.RoleUser, secondCallHistory[0].Role)
	assert.Contains(t, secondCallHistory[0].Content, "BTCUSDT")
	assert.Equal(t, "reply 1", secondCallHistory[1].Content)
}

func TestRegisterAdvisorIdempotent(t *testing.T) {
	o, store := newTestOrchestrator(t)

	o.RegisterAdvisor(okAdvisor("alpha", "v1"))
	o.RegisterAdvisor(okAdvisor("beta", "ok"))

	_, err := o.AskAll(context.Background(), marketCtx())
	require.NoError(t, err)

	// re-register alpha with a new client
	o.RegisterAdvisor(okAdvisor("alpha", "v2"))

	advisors := o.Advisors()
	require.Len(t, advisors, 2)
	assert.Equal(t, "alpha", advisors[0].Name) // position preserved
	assert.Equal(t, "beta", advisors[1].Name)

	// history preserved across re-registration
	hist, err := store.Get(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Len(t, hist, 2)

	out, err := o.AskOne(context.Background(), "alpha", marketCtx())
	require.NoError(t, err)
	assert.Equal(t, "v2", out.Reply)
}

func TestAskOneUnknownAdvisor(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.RegisterAdvisor(okAdvisor("alpha", "ok"))

	_, err := o.AskOne(context.Background(), "nobody", marketCtx())
	assert.ErrorIs(t, err, ErrUnknownAdvisor)
}

func TestAskAllConcurrent(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	// each advisor blocks until all three are in flight
	var entered sync.WaitGroup
	entered.Add(3)
	for _, name := range []string{"a", "b", "c"} {
		o.RegisterAdvisor(&fakeAdvisor{
			name: name, provider: models.ProviderOpenAI,
			respond: func(int, []models.Message) (string, error) {
				entered.Done()
				waitTimeout(&entered, 2*time.Second)
				return "done", nil
			},
		})
	}

	start := time.Now()
	res, err := o.AskAll(context.Background(), marketCtx())
	require.NoError(t, err)
	assert.Equal(t, 3, res.SucceededCount())
	// serial execution would deadlock on the barrier; finishing fast
	// proves the fan-out ran concurrently
	assert.Less(t, time.Since(start), 2*time.Second)
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(d):
	}
}

func TestSlowAdvisorTimesOut(t *testing.T) {
	o, store := newTestOrchestrator(t, WithAdvisorTimeout(50*time.Millisecond))

	o.RegisterAdvisor(&fakeAdvisor{
		name: "slow", provider: models.ProviderGemini,
		respond: func(int, []models.Message) (string, error) {
			return "", models.NewAdvisorError("slow", models.ProviderGemini, models.ErrKindTimeout, context.DeadlineExceeded)
		},
	})
	o.RegisterAdvisor(okAdvisor("fast", "done"))

	res, err := o.AskAll(context.Background(), marketCtx())
	require.NoError(t, err)
	assert.Equal(t, models.StatusTimeout, res.Outcomes[0].Status)
	assert.Equal(t, models.StatusOK, res.Outcomes[1].Status)

	hist, err := store.Get(context.Background(), "slow")
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestResetScopedToOneAdvisor(t *testing.T) {
	o, store := newTestOrchestrator(t)
	o.RegisterAdvisor(okAdvisor("alpha", "ok"))
	o.RegisterAdvisor(okAdvisor("beta", "ok"))

	_, err := o.AskAll(context.Background(), marketCtx())
	require.NoError(t, err)

	require.NoError(t, o.Reset(context.Background(), "alpha"))
	assert.ErrorIs(t, o.Reset(context.Background(), "nobody"), ErrUnknownAdvisor)

	alphaHist, _ := store.Get(context.Background(), "alpha")
	betaHist, _ := store.Get(context.Background(), "beta")
	assert.Empty(t, alphaHist)
	assert.Len(t, betaHist, 2)

	require.NoError(t, o.ResetAll(context.Background()))
	betaHist, _ = store.Get(context.Background(), "beta")
	assert.Empty(t, betaHist)
}
