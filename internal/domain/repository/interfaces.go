package repository

import (
	"context"
	"time"

	"CoinMentor/internal/domain/models"
)

// AdvisorClient is a single conversational advisor. Send submits the
// conversation history plus the current market context and returns the
// advisor's free-form reply. Errors are classified via models.AdvisorError.
type AdvisorClient interface {
	Identity() models.AdvisorIdentity
	Send(ctx context.Context, history []models.Message, mctx models.MarketContext) (string, error)
}

// ConversationStore keeps per-advisor conversation history. Histories are
// isolated per advisor name.
type ConversationStore interface {
	Get(ctx context.Context, advisor string) ([]models.Message, error)
	Append(ctx context.Context, advisor string, msgs ...models.Message) error
	Reset(ctx context.Context, advisor string) error
	ResetAll(ctx context.Context) error
}

// ProposalSink receives extracted trade proposals and round archives.
type ProposalSink interface {
	PublishProposal(ctx context.Context, round string, p *models.TradeProposal) error
	ArchiveRound(ctx context.Context, result *models.OrchestrationResult) error
	Close() error
}

// MarketStream is a live exchange connection producing trades.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher forwards trades to the streaming backend.
type Publisher interface {
	Publish(ctx context.Context, t *models.Trade) error
	PublishBatch(ctx context.Context, trades []*models.Trade) error
	Close() error
}

// Storage persists trades and serves candle queries.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, t *models.Trade) error
	StoreBatch(ctx context.Context, trades []*models.Trade) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Trade, error)
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordAdvisorRequest(advisor, provider, status string)
	RecordAdvisorLatency(advisor, provider string, seconds float64)
	RecordProposal(advisor, action string)
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
