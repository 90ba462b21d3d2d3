package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"CoinMentor/internal/domain/models"
	domrepo "CoinMentor/internal/domain/repository"
	pkgch "CoinMentor/pkg/clickhouse"
	pkgkafka "CoinMentor/pkg/kafka"
	applogger "CoinMentor/pkg/logger"
)

const roundsSchema = `
CREATE TABLE IF NOT EXISTS %s (
    round_id         String,
    symbol           LowCardinality(String),
    ts               DateTime64(3),
    advisor          LowCardinality(String),
    provider         LowCardinality(String),
    status           LowCardinality(String),
    error_kind       LowCardinality(String),
    error_message    String,
    reply            String,
    proposal         String,
    context          String,
    response_time_ms Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(ts)
ORDER BY (symbol, ts, advisor)
TTL toDateTime(ts) + INTERVAL 90 DAY
`

// AdvisorySink publishes extracted proposals to Kafka and archives full
// round results, one row per advisor outcome, in ClickHouse.
type AdvisorySink struct {
	producer *pkgkafka.Producer
	topic    string
	db       *sql.DB
	table    string
	l        *applogger.Logger
}

// NewAdvisorySink creates the proposal sink. producer may be nil when no
// streaming backend is configured; proposals are then archive-only.
func NewAdvisorySink(producer *pkgkafka.Producer, topic string, ch *pkgch.Client, table string, l *applogger.Logger) domrepo.ProposalSink {
	if table == "" {
		table = "advisory_rounds"
	}
	s := &AdvisorySink{producer: producer, topic: topic, table: table, l: l}
	if ch != nil {
		s.db = ch.DB()
	}
	return s
}

// Init ensures the archive table exists.
func (s *AdvisorySink) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(roundsSchema, s.table)); err != nil {
		return fmt.Errorf("init advisory rounds schema: %w", err)
	}
	return nil
}

type proposalEvent struct {
	RoundID  string                `json:"round_id"`
	Proposal *models.TradeProposal `json:"proposal"`
}

func (s *AdvisorySink) PublishProposal(ctx context.Context, round string, p *models.TradeProposal) error {
	if s.producer == nil || p == nil {
		return nil
	}
	return s.producer.Publish(ctx, s.topic, []byte(p.Symbol), proposalEvent{RoundID: round, Proposal: p})
}

func (s *AdvisorySink) ArchiveRound(ctx context.Context, result *models.OrchestrationResult) error {
	if s.db == nil || result == nil || len(result.Outcomes) == 0 {
		return nil
	}

	mctx, err := json.Marshal(result.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	values := make([]string, 0, len(result.Outcomes))
	args := make([]interface{}, 0, len(result.Outcomes)*12)
	for _, o := range result.Outcomes {
		proposal := ""
		if o.Proposal != nil {
			b, err := json.Marshal(o.Proposal)
			if err != nil {
				return fmt.Errorf("marshal proposal: %w", err)
			}
			proposal = string(b)
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			result.RoundID,
			result.Symbol,
			result.Timestamp,
			o.Advisor,
			string(o.Provider),
			string(o.Status),
			string(o.ErrorKind),
			o.ErrorMessage,
			o.Reply,
			proposal,
			string(mctx),
			float64(o.ResponseTime)/float64(time.Millisecond),
		)
	}

	q := fmt.Sprintf("INSERT INTO %s (round_id, symbol, ts, advisor, provider, status, error_kind, error_message, reply, proposal, context, response_time_ms) VALUES %s",
		s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if s.l != nil {
			s.l.Error("archive round failed",
				applogger.String("round_id", result.RoundID),
				applogger.String("symbol", result.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("archive round: %w", err)
	}
	return nil
}

func (s *AdvisorySink) Close() error {
	// producer and db are owned by their packages
	return nil
}
