package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinMentor/internal/domain/models"
	domrepo "CoinMentor/internal/domain/repository"
	"CoinMentor/internal/indicators"
	"CoinMentor/pkg/cache"
)

type fakeStorage struct {
	candles []models.Candle
	err     error
	calls   int
	stored  chan *models.Trade
}

func (f *fakeStorage) Init(ctx context.Context) error { return nil }
func (f *fakeStorage) Store(ctx context.Context, t *models.Trade) error {
	if f.stored != nil {
		f.stored <- t
	}
	return nil
}
func (f *fakeStorage) StoreBatch(ctx context.Context, _ []*models.Trade) error { return nil }
func (f *fakeStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Trade, error) {
	return nil, nil
}
func (f *fakeStorage) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	return f.candles, f.err
}
func (f *fakeStorage) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	f.calls++
	return f.candles, f.err
}
func (f *fakeStorage) Health(ctx context.Context) error { return nil }
func (f *fakeStorage) Close() error                     { return nil }

func trendingCandles(n int, start float64) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		price += 1.0
		out[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: "BTCUSDT",
			Open:   price - 1,
			High:   price + 0.5,
			Low:    price - 1.5,
			Close:  price,
			Volume: 100,
		}
	}
	return out
}

func TestSnapshotBuildsContext(t *testing.T) {
	store := &fakeStorage{candles: trendingCandles(300, 1000)}
	uc := NewSnapshotUseCase(store, nullMetrics{}, nil, time.Second,
		indicators.DefaultParams(), indicators.DefaultThresholds())

	mctx, err := uc.Snapshot(context.Background(), "BTCUSDT", domrepo.TF1m)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", mctx.Symbol)
	assert.Equal(t, 1300.0, mctx.Price)
	assert.Equal(t, "up", mctx.Trend)
	assert.False(t, math.IsNaN(mctx.RSI))
	assert.False(t, math.IsNaN(mctx.ADX))
	assert.False(t, math.IsNaN(mctx.BollingerWidth))
	assert.Greater(t, mctx.EMAShort, mctx.EMALong)
	assert.Equal(t, store.candles[len(store.candles)-1].Bucket, mctx.Timestamp)

	// Steady volume never counts as a spike, but a 300-candle run-up
	// leaves the close well above VWAP.
	assert.False(t, mctx.VolumeSpike)
	assert.True(t, mctx.PriceStretched)
}

func TestSnapshotUsesCache(t *testing.T) {
	store := &fakeStorage{candles: trendingCandles(300, 1000)}
	mem := cache.NewMemoryCache()
	defer mem.Close()

	uc := NewSnapshotUseCase(store, nullMetrics{}, mem, time.Minute,
		indicators.DefaultParams(), indicators.DefaultThresholds())

	first, err := uc.Snapshot(context.Background(), "BTCUSDT", domrepo.TF1m)
	require.NoError(t, err)
	second, err := uc.Snapshot(context.Background(), "BTCUSDT", domrepo.TF1m)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls, "second snapshot should be served from cache")
	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, first.Trend, second.Trend)
}

func TestSnapshotErrors(t *testing.T) {
	t.Run("empty symbol", func(t *testing.T) {
		uc := NewSnapshotUseCase(&fakeStorage{}, nullMetrics{}, nil, time.Second,
			indicators.DefaultParams(), indicators.DefaultThresholds())
		_, err := uc.Snapshot(context.Background(), "", domrepo.TF1m)
		assert.Error(t, err)
	})

	t.Run("storage failure", func(t *testing.T) {
		uc := NewSnapshotUseCase(&fakeStorage{err: errors.New("boom")}, nullMetrics{}, nil, time.Second,
			indicators.DefaultParams(), indicators.DefaultThresholds())
		_, err := uc.Snapshot(context.Background(), "BTCUSDT", domrepo.TF1m)
		assert.Error(t, err)
	})

	t.Run("no candles", func(t *testing.T) {
		uc := NewSnapshotUseCase(&fakeStorage{}, nullMetrics{}, nil, time.Second,
			indicators.DefaultParams(), indicators.DefaultThresholds())
		_, err := uc.Snapshot(context.Background(), "BTCUSDT", domrepo.TF1m)
		assert.Error(t, err)
	})

	t.Run("not enough history", func(t *testing.T) {
		uc := NewSnapshotUseCase(&fakeStorage{candles: trendingCandles(5, 1000)}, nullMetrics{}, nil, time.Second,
			indicators.DefaultParams(), indicators.DefaultThresholds())
		_, err := uc.Snapshot(context.Background(), "BTCUSDT", domrepo.TF1m)
		assert.Error(t, err)
	})
}
