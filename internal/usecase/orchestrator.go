package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"CoinMentor/internal/domain/models"
	domrepo "CoinMentor/internal/domain/repository"
	"CoinMentor/internal/proposal"
	applogger "CoinMentor/pkg/logger"
)

// ErrNoAdvisors is returned when a round is requested with no advisors
// registered.
var ErrNoAdvisors = errors.New("no advisors registered")

// ErrUnknownAdvisor is returned for operations naming an unregistered
// advisor.
var ErrUnknownAdvisor = errors.New("unknown advisor")

// Orchestrator fans a market context out to every registered advisor
// concurrently. Failures are isolated per advisor: one advisor timing
// out or erroring never affects the others, and a round only fails as a
// whole when nothing is registered.
type Orchestrator struct {
	mu      sync.RWMutex
	order   []string
	clients map[string]domrepo.AdvisorClient

	store     domrepo.ConversationStore
	extractor *proposal.Extractor
	sink      domrepo.ProposalSink
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	timeout   time.Duration
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAdvisorTimeout caps how long one advisor may take per round.
func WithAdvisorTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithProposalSink attaches a sink receiving proposals and round
// archives. Sink failures are logged, never surfaced to callers.
func WithProposalSink(sink domrepo.ProposalSink) OrchestratorOption {
	return func(o *Orchestrator) { o.sink = sink }
}

// NewOrchestrator creates an advisor orchestrator.
func NewOrchestrator(
	store domrepo.ConversationStore,
	extractor *proposal.Extractor,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		clients:   make(map[string]domrepo.AdvisorClient),
		store:     store,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger,
		timeout:   90 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RegisterAdvisor adds an advisor. Registration is idempotent by name:
// re-registering replaces the client but keeps its position and its
// conversation history.
func (o *Orchestrator) RegisterAdvisor(client domrepo.AdvisorClient) {
	name := client.Identity().Name

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.clients[name]; !exists {
		o.order = append(o.order, name)
	}
	o.clients[name] = client
}

// Advisors lists registered advisors in registration order.
func (o *Orchestrator) Advisors() []models.AdvisorIdentity {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]models.AdvisorIdentity, 0, len(o.order))
	for _, name := range o.order {
		out = append(out, o.clients[name].Identity())
	}
	return out
}

// AskAll dispatches the market context to every advisor concurrently and
// collects outcomes in registration order. Partial failure never aborts
// the round; the only hard error is an empty advisor set.
func (o *Orchestrator) AskAll(ctx context.Context, mctx models.MarketContext) (*models.OrchestrationResult, error) {
	o.mu.RLock()
	names := make([]string, len(o.order))
	copy(names, o.order)
	clients := make([]domrepo.AdvisorClient, len(names))
	for i, name := range names {
		clients[i] = o.clients[name]
	}
	o.mu.RUnlock()

	if len(clients) == 0 {
		return nil, ErrNoAdvisors
	}

	result := &models.OrchestrationResult{
		RoundID:   uuid.NewString(),
		Symbol:    mctx.Symbol,
		Timestamp: time.Now(),
		Context:   mctx,
		Outcomes:  make([]models.AdvisorOutcome, len(clients)),
	}

	var wg sync.WaitGroup
	for i, client := range clients {
		wg.Add(1)
		go func(i int, client domrepo.AdvisorClient) {
			defer wg.Done()
			result.Outcomes[i] = o.dispatch(ctx, client, mctx)
		}(i, client)
	}
	wg.Wait()

	o.archive(ctx, result)
	return result, nil
}

// AskOne dispatches the market context to a single advisor by name.
func (o *Orchestrator) AskOne(ctx context.Context, name string, mctx models.MarketContext) (models.AdvisorOutcome, error) {
	o.mu.RLock()
	client, ok := o.clients[name]
	o.mu.RUnlock()
	if !ok {
		return models.AdvisorOutcome{}, fmt.Errorf("%w: %s", ErrUnknownAdvisor, name)
	}
	return o.dispatch(ctx, client, mctx), nil
}

// History returns the conversation history of one advisor.
func (o *Orchestrator) History(ctx context.Context, name string) ([]models.Message, error) {
	o.mu.RLock()
	_, ok := o.clients[name]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdvisor, name)
	}
	return o.store.Get(ctx, name)
}

// Reset clears one advisor's conversation history.
func (o *Orchestrator) Reset(ctx context.Context, name string) error {
	o.mu.RLock()
	_, ok := o.clients[name]
	o.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAdvisor, name)
	}
	return o.store.Reset(ctx, name)
}

// ResetAll clears every advisor's conversation history.
func (o *Orchestrator) ResetAll(ctx context.Context) error {
	return o.store.ResetAll(ctx)
}

// dispatch runs one advisor round trip. History is appended only after
// a fully successful exchange, so a failed round leaves the
// conversation untouched. There are no retries here: callers decide
// when to ask again.
func (o *Orchestrator) dispatch(ctx context.Context, client domrepo.AdvisorClient, mctx models.MarketContext) models.AdvisorOutcome {
	id := client.Identity()
	outcome := models.AdvisorOutcome{Advisor: id.Name, Provider: id.Provider}

	history, err := o.store.Get(ctx, id.Name)
	if err != nil {
		outcome.Status = models.StatusError
		outcome.ErrorMessage = fmt.Sprintf("load history: %v", err)
		o.metrics.RecordAdvisorRequest(id.Name, string(id.Provider), string(outcome.Status))
		return outcome
	}

	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	reply, err := client.Send(cctx, history, mctx)
	outcome.ResponseTime = time.Since(start)

	if err != nil {
		kind := models.KindOf(err)
		outcome.ErrorKind = kind
		outcome.ErrorMessage = err.Error()
		if kind == models.ErrKindTimeout {
			outcome.Status = models.StatusTimeout
		} else {
			outcome.Status = models.StatusError
		}
		o.metrics.RecordAdvisorRequest(id.Name, string(id.Provider), string(outcome.Status))
		o.metrics.RecordError("advisor_" + string(kind))
		o.logger.Warn("advisor dispatch failed",
			applogger.String("advisor", id.Name),
			applogger.String("kind", string(kind)),
			applogger.Error(err),
		)
		return outcome
	}

	outcome.Status = models.StatusOK
	outcome.Reply = reply
	outcome.Proposal = o.extractor.Extract(id.Name, reply)

	now := time.Now()
	if err := o.store.Append(ctx, id.Name,
		models.Message{Role: models.RoleUser, Content: mctx.Prompt(), Timestamp: start},
		models.Message{Role: models.RoleAssistant, Content: reply, Timestamp: now},
	); err != nil {
		o.logger.Warn("append conversation history failed",
			applogger.String("advisor", id.Name),
			applogger.Error(err),
		)
	}

	o.metrics.RecordAdvisorRequest(id.Name, string(id.Provider), string(outcome.Status))
	o.metrics.RecordAdvisorLatency(id.Name, string(id.Provider), outcome.ResponseTime.Seconds())
	if outcome.Proposal != nil {
		o.metrics.RecordProposal(id.Name, string(outcome.Proposal.Action))
	}
	return outcome
}

// archive forwards the round to the proposal sink, best-effort.
func (o *Orchestrator) archive(ctx context.Context, result *models.OrchestrationResult) {
	if o.sink == nil {
		return
	}

	if err := o.sink.ArchiveRound(ctx, result); err != nil {
		o.logger.Warn("archive round failed",
			applogger.String("round", result.RoundID),
			applogger.Error(err),
		)
	}
	for _, out := range result.Outcomes {
		if out.Proposal == nil {
			continue
		}
		if err := o.sink.PublishProposal(ctx, result.RoundID, out.Proposal); err != nil {
			o.logger.Warn("publish proposal failed",
				applogger.String("round", result.RoundID),
				applogger.String("advisor", out.Advisor),
				applogger.Error(err),
			)
		}
	}
}
