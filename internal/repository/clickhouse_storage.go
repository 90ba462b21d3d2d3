package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CoinMentor/internal/domain/models"
	domrepo "CoinMentor/internal/domain/repository"
	pkgch "CoinMentor/pkg/clickhouse"
	applogger "CoinMentor/pkg/logger"
)

const tradesSchema = `
CREATE TABLE IF NOT EXISTS %s (
    ts      DateTime64(3),
    symbol  LowCardinality(String),
    price   Float64,
    volume  Float64,
    source  LowCardinality(String)
) ENGINE = MergeTree()
PARTITION BY toYYYYMMDD(ts)
ORDER BY (symbol, ts)
TTL toDateTime(ts) + INTERVAL 30 DAY
`

// ClickHouseStorage persists raw trades and serves candle queries by
// aggregating them on read.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseStorage creates ClickHouse-backed trade storage.
func NewClickHouseStorage(ch *pkgch.Client, table string, l *applogger.Logger) domrepo.Storage {
	if table == "" {
		table = "trades"
	}
	return &ClickHouseStorage{db: ch.DB(), table: table, l: l}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(tradesSchema, s.table)); err != nil {
		return fmt.Errorf("init trades schema: %w", err)
	}
	return nil
}

func (s *ClickHouseStorage) Store(ctx context.Context, t *models.Trade) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, source) VALUES (?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(t.Timestamp, 0),
		t.Symbol,
		t.Price,
		t.Volume,
		"binance",
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, trades []*models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to keep statements bounded.
	const chunkSize = 2000
	for start := 0; start < len(trades); start += chunkSize {
		end := start + chunkSize
		if end > len(trades) {
			end = len(trades)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, t := range trades[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(t.Timestamp, 0),
				t.Symbol,
				t.Price,
				t.Volume,
				"binance",
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, source) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Trade, error) {
	q := fmt.Sprintf("SELECT symbol, ts, price, volume FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		var ts time.Time
		if err := rows.Scan(&t.Symbol, &ts, &t.Price, &t.Volume); err != nil {
			return nil, err
		}
		t.Timestamp = ts.Unix()
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

const candleAggTpl = `
    SELECT
        toStartOfInterval(ts, INTERVAL %s) AS bucket,
        symbol,
        argMin(price, ts)  AS open,
        max(price)         AS high,
        min(price)         AS low,
        argMax(price, ts)  AS close,
        sum(volume)        AS vol
    FROM %s
    WHERE symbol = ? AND ts >= ? AND ts <= ?
    GROUP BY bucket, symbol
    ORDER BY bucket ASC
`

func (s *ClickHouseStorage) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	interval, err := intervalForTF(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(candleAggTpl, interval, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.logQueryErr("get_candles", symbol, tf, err)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logQueryErr("get_candles", symbol, tf, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.logQueryErr("get_candles", symbol, tf, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_candles ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

const candleLatestTpl = `
    SELECT bucket, symbol, open, high, low, close, vol FROM (
        SELECT
            toStartOfInterval(ts, INTERVAL %s) AS bucket,
            symbol,
            argMin(price, ts)  AS open,
            max(price)         AS high,
            min(price)         AS low,
            argMax(price, ts)  AS close,
            sum(volume)        AS vol
        FROM %s
        WHERE symbol = ?
        GROUP BY bucket, symbol
    )
    ORDER BY bucket DESC
    LIMIT ?
`

func (s *ClickHouseStorage) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	interval, err := intervalForTF(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(candleLatestTpl, interval, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.logQueryErr("latest_candles", symbol, tf, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logQueryErr("latest_candles", symbol, tf, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		s.logQueryErr("latest_candles", symbol, tf, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_candles ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // connection owned by pkg/clickhouse
}

func (s *ClickHouseStorage) logQueryErr(op, symbol string, tf domrepo.Timeframe, err error) {
	if s.l == nil {
		return
	}
	s.l.Error("clickhouse "+op+" error",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Error(err),
	)
}

func intervalForTF(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1m:
		return "1 MINUTE", nil
	case domrepo.TF5m:
		return "5 MINUTE", nil
	case domrepo.TF15m:
		return "15 MINUTE", nil
	case domrepo.TF1h:
		return "1 HOUR", nil
	case domrepo.TF4h:
		return "4 HOUR", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}
