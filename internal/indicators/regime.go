package indicators

import "math"

// Thresholds controls market regime classification.
type Thresholds struct {
	ADXTrending       float64
	ADXStrong         float64
	RSIOversold       float64
	RSIOverbought     float64
	ATRHighPercentile float64
}

// DefaultThresholds matches the dashboard's standard regime settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ADXTrending:       25,
		ADXStrong:         40,
		RSIOversold:       30,
		RSIOverbought:     70,
		ATRHighPercentile: 75,
	}
}

// Regime classifies market state from the indicator set. High ATR rank
// wins over ADX trendiness.
func Regime(s Set, t Thresholds) string {
	if !math.IsNaN(s.ATRPercentile) && s.ATRPercentile > t.ATRHighPercentile {
		return "volatile"
	}
	if !math.IsNaN(s.ADX) && s.ADX > t.ADXTrending {
		return "trending"
	}
	return "ranging"
}

// TrendDirection derives trend from EMA alignment confirmed by the
// directional movement indicators.
func TrendDirection(s Set) string {
	if math.IsNaN(s.EMAShort) || math.IsNaN(s.EMALong) {
		return "neutral"
	}
	switch {
	case s.Price > s.EMAShort && s.EMAShort > s.EMALong && s.PlusDI > s.MinusDI:
		return "up"
	case s.Price < s.EMAShort && s.EMAShort < s.EMALong && s.MinusDI > s.PlusDI:
		return "down"
	default:
		return "neutral"
	}
}

// VolumeSpike reports whether current volume is abnormally high.
func VolumeSpike(s Set, multiplier float64) bool {
	return s.VolumeRatio > multiplier
}

// PriceStretch reports whether price has moved too far from VWAP.
func PriceStretch(s Set, maxPercent float64) bool {
	return math.Abs(s.VWAPDistance) > maxPercent
}
