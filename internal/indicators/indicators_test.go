package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinMentor/internal/domain/models"
)

func makeCandles(closes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: "BTCUSDT",
			Open:   c - 5,
			High:   c + 10,
			Low:    c - 10,
			Close:  c,
			Volume: 100,
		}
	}
	return candles
}

func rampCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestEMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ema := EMA(values, 3)

	assert.True(t, math.IsNaN(ema[0]))
	assert.True(t, math.IsNaN(ema[1]))
	// seed is SMA of first 3
	assert.InDelta(t, 2.0, ema[2], 1e-9)
	// next: (4-2)*0.5+2 = 3
	assert.InDelta(t, 3.0, ema[3], 1e-9)
	// EMA trails a rising series from below
	assert.Less(t, ema[len(ema)-1], values[len(values)-1])
}

func TestEMAInsufficientData(t *testing.T) {
	ema := EMA([]float64{1, 2}, 5)
	for _, v := range ema {
		assert.True(t, math.IsNaN(v))
	}
}

func TestRSIExtremes(t *testing.T) {
	// monotone rising closes: RSI should be 100
	up := RSI(rampCloses(30, 100, 1), 14)
	assert.InDelta(t, 100, up[len(up)-1], 1e-9)

	// monotone falling closes: RSI should approach 0
	down := RSI(rampCloses(30, 100, -1), 14)
	assert.InDelta(t, 0, down[len(down)-1], 1e-9)
}

func TestRSIMidrange(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%2) // alternate up/down by 1
	}
	rsi := RSI(closes, 14)
	last := rsi[len(rsi)-1]
	assert.Greater(t, last, 30.0)
	assert.Less(t, last, 70.0)
}

func TestATRConstantRange(t *testing.T) {
	// every candle has high-low = 20 and closes never gap
	candles := makeCandles(rampCloses(30, 100, 0))
	atr := ATR(candles, 14)
	assert.InDelta(t, 20.0, atr[len(atr)-1], 1e-9)
}

func TestADXTrendingMarket(t *testing.T) {
	// strong steady uptrend
	candles := makeCandles(rampCloses(120, 100, 5))
	adx, pdi, mdi := ADX(candles, 14)

	last := len(candles) - 1
	require.False(t, math.IsNaN(adx[last]))
	assert.Greater(t, adx[last], 25.0)
	assert.Greater(t, pdi[last], mdi[last])
}

func TestBollinger(t *testing.T) {
	closes := rampCloses(20, 100, 0) // constant series
	upper, mid, lower := Bollinger(closes, 20, 2)
	assert.InDelta(t, 100, mid, 1e-9)
	assert.InDelta(t, 100, upper, 1e-9)
	assert.InDelta(t, 100, lower, 1e-9)
}

func TestVWAP(t *testing.T) {
	candles := []models.Candle{
		{High: 110, Low: 90, Close: 100, Volume: 10},
		{High: 210, Low: 190, Close: 200, Volume: 30},
	}
	// typical prices 100 and 200, weights 10 and 30
	assert.InDelta(t, 175, VWAP(candles), 1e-9)
}

func TestZScore(t *testing.T) {
	values := append(rampCloses(19, 100, 0), 110)
	z := ZScore(values, 20)
	assert.Greater(t, z, 3.0) // a 10 point jump off a flat series is a big outlier
}

func TestPercentileRank(t *testing.T) {
	values := []float64{math.NaN(), 1, 2, 3, 4, 5}
	assert.InDelta(t, 100, PercentileRank(values), 1e-9)

	values = []float64{5, 4, 3, 2, 1}
	assert.InDelta(t, 20, PercentileRank(values), 1e-9)
}

func TestComputeNeedsHistory(t *testing.T) {
	_, ok := Compute(makeCandles(rampCloses(10, 100, 1)), DefaultParams())
	assert.False(t, ok)
}

func TestComputeFullSet(t *testing.T) {
	candles := makeCandles(rampCloses(250, 100, 1))
	s, ok := Compute(candles, DefaultParams())
	require.True(t, ok)

	assert.InDelta(t, 349, s.Price, 1e-9)
	assert.False(t, math.IsNaN(s.EMAShort))
	assert.False(t, math.IsNaN(s.EMALong))
	assert.Greater(t, s.EMAShort, s.EMALong) // rising series
	assert.False(t, math.IsNaN(s.RSI))
	assert.False(t, math.IsNaN(s.ADX))
	assert.False(t, math.IsNaN(s.VWAP))
	assert.Greater(t, s.VolumeRatio, 0.0)
}

func TestRegimeClassification(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, "volatile", Regime(Set{ATRPercentile: 90, ADX: 30}, th))
	assert.Equal(t, "trending", Regime(Set{ATRPercentile: 50, ADX: 30}, th))
	assert.Equal(t, "ranging", Regime(Set{ATRPercentile: 50, ADX: 15}, th))
}

func TestSpikeAndStretchFlags(t *testing.T) {
	assert.True(t, VolumeSpike(Set{VolumeRatio: 2.5}, 2.0))
	assert.False(t, VolumeSpike(Set{VolumeRatio: 1.0}, 2.0))

	assert.True(t, PriceStretch(Set{VWAPDistance: 4.2}, 3.0))
	assert.True(t, PriceStretch(Set{VWAPDistance: -4.2}, 3.0))
	assert.False(t, PriceStretch(Set{VWAPDistance: 1.1}, 3.0))
}

func TestTrendDirection(t *testing.T) {
	up := Set{Price: 110, EMAShort: 105, EMALong: 100, PlusDI: 30, MinusDI: 10}
	assert.Equal(t, "up", TrendDirection(up))

	down := Set{Price: 90, EMAShort: 95, EMALong: 100, PlusDI: 10, MinusDI: 30}
	assert.Equal(t, "down", TrendDirection(down))

	mixed := Set{Price: 110, EMAShort: 105, EMALong: 100, PlusDI: 10, MinusDI: 30}
	assert.Equal(t, "neutral", TrendDirection(mixed))

	assert.Equal(t, "neutral", TrendDirection(Set{Price: 100, EMAShort: math.NaN(), EMALong: math.NaN()}))
}
