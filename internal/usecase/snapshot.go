package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"CoinMentor/internal/domain/models"
	domrepo "CoinMentor/internal/domain/repository"
	"CoinMentor/internal/indicators"
	"CoinMentor/pkg/cache"
)

// historyDepth is how many candles feed the indicator computation.
const historyDepth = 600

// Readout cutoffs for the spike and stretch flags on the snapshot.
const (
	volumeSpikeMultiplier = 2.0
	priceStretchPercent   = 3.0
)

// SnapshotUseCase assembles the market context advisors are asked
// about: latest price plus the indicator and regime readout. Snapshots
// are cached briefly so a burst of advisory rounds does not hammer
// storage.
type SnapshotUseCase struct {
	store   domrepo.Storage
	metrics domrepo.Metrics
	cache   cache.Service
	ttl     time.Duration
	params  indicators.Params
	thresh  indicators.Thresholds
}

// NewSnapshotUseCase creates a snapshot usecase. A nil cache disables
// caching.
func NewSnapshotUseCase(
	store domrepo.Storage,
	metrics domrepo.Metrics,
	c cache.Service,
	ttl time.Duration,
	params indicators.Params,
	thresh indicators.Thresholds,
) *SnapshotUseCase {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotUseCase{
		store:   store,
		metrics: metrics,
		cache:   c,
		ttl:     ttl,
		params:  params,
		thresh:  thresh,
	}
}

// Snapshot builds the market context for one symbol and timeframe.
func (uc *SnapshotUseCase) Snapshot(ctx context.Context, symbol string, tf domrepo.Timeframe) (models.MarketContext, error) {
	if symbol == "" {
		return models.MarketContext{}, fmt.Errorf("symbol required")
	}

	key := cache.GenerateKeyWithParams("snapshot", symbol, string(tf))
	if uc.cache != nil {
		var cached models.MarketContext
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	start := time.Now()
	candles, err := uc.store.GetLatestNCandles(ctx, symbol, historyDepth, tf)
	if err != nil {
		uc.metrics.RecordError("snapshot_candles")
		return models.MarketContext{}, fmt.Errorf("load candles: %w", err)
	}
	if len(candles) == 0 {
		return models.MarketContext{}, fmt.Errorf("no candles for %s %s", symbol, tf)
	}

	set, ok := indicators.Compute(candles, uc.params)
	if !ok {
		return models.MarketContext{}, fmt.Errorf("not enough history for %s %s: have %d candles", symbol, tf, len(candles))
	}

	// Indicators that lack history come back NaN; zero them so the
	// context stays JSON-safe.
	mctx := models.MarketContext{
		Symbol:         symbol,
		Timestamp:      candles[len(candles)-1].Bucket,
		Price:          set.Price,
		RSI:            finiteOr(set.RSI, 0),
		ADX:            finiteOr(set.ADX, 0),
		Trend:          indicators.TrendDirection(set),
		VolatilityType: indicators.Regime(set, uc.thresh),
		VolumeVsAvg:    finiteOr(set.VolumeRatio, 0),
		EMAShort:       finiteOr(set.EMAShort, 0),
		EMALong:        finiteOr(set.EMALong, 0),
		ATR:            finiteOr(set.ATR, 0),
		BollingerWidth: finiteOr(set.BollingerWidth, 0),
		VWAPDistance:   finiteOr(set.VWAPDistance, 0),
		VolumeSpike:    indicators.VolumeSpike(set, volumeSpikeMultiplier),
		PriceStretched: indicators.PriceStretch(set, priceStretchPercent),
	}

	uc.metrics.RecordLatency("snapshot_build", time.Since(start).Seconds())
	uc.metrics.RecordLastPrice(symbol, set.Price)

	if uc.cache != nil {
		_ = uc.cache.Set(ctx, key, mctx, uc.ttl)
	}
	return mctx, nil
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
