package indicators

import (
	"math"
	"sort"

	"CoinMentor/internal/domain/models"
)

// Params holds indicator periods.
type Params struct {
	EMAShort        int
	EMALong         int
	RSIPeriod       int
	ATRPeriod       int
	ADXPeriod       int
	VolumeMAPeriod  int
	BollingerPeriod int
	BollingerStd    float64
}

// DefaultParams matches the dashboard's standard indicator settings.
func DefaultParams() Params {
	return Params{
		EMAShort:        50,
		EMALong:         200,
		RSIPeriod:       14,
		ATRPeriod:       14,
		ADXPeriod:       14,
		VolumeMAPeriod:  20,
		BollingerPeriod: 20,
		BollingerStd:    2,
	}
}

// Set is the computed indicator snapshot for the latest candle.
type Set struct {
	Price          float64
	EMAShort       float64
	EMALong        float64
	RSI            float64
	ATR            float64
	ATRPercentile  float64 // rank of the latest ATR within its own history, 0-100
	ADX            float64
	PlusDI         float64
	MinusDI        float64
	BollingerUpper float64
	BollingerMid   float64
	BollingerLower float64
	BollingerWidth float64 // (upper-lower)/mid * 100
	VWAP           float64
	VWAPDistance   float64 // percent distance of close from VWAP
	VolumeMA       float64
	VolumeRatio    float64
	ZScore         float64
}

// EMA computes an exponential moving average series. The first period-1
// entries are NaN; the value at index period-1 seeds from the SMA.
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for _, v := range values[:period] {
		sum += v
	}
	prev := sum / float64(period)
	out[period-1] = prev

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// RSI computes the relative strength index with Wilder smoothing.
func RSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// TrueRange computes the true range series. The first entry uses
// high-low only.
func TrueRange(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		tr := c.High - c.Low
		if i > 0 {
			prevClose := candles[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
		}
		out[i] = tr
	}
	return out
}

// ATR computes the Wilder-smoothed average true range.
func ATR(candles []models.Candle, period int) []float64 {
	out := nanSeries(len(candles))
	if period <= 0 || len(candles) < period+1 {
		return out
	}

	tr := TrueRange(candles)
	sum := 0.0
	for _, v := range tr[1 : period+1] {
		sum += v
	}
	prev := sum / float64(period)
	out[period] = prev

	for i := period + 1; i < len(candles); i++ {
		prev = (prev*float64(period-1) + tr[i]) / float64(period)
		out[i] = prev
	}
	return out
}

// ADX computes the average directional index along with +DI and -DI.
func ADX(candles []models.Candle, period int) (adx, plusDI, minusDI []float64) {
	n := len(candles)
	adx, plusDI, minusDI = nanSeries(n), nanSeries(n), nanSeries(n)
	if period <= 0 || n < 2*period+1 {
		return
	}

	tr := TrueRange(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	// Wilder smoothing of TR and DM
	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := nanSeries(n)
	record := func(i int) {
		if smTR == 0 {
			return
		}
		pdi := 100 * smPlus / smTR
		mdi := 100 * smMinus / smTR
		plusDI[i] = pdi
		minusDI[i] = mdi
		if pdi+mdi > 0 {
			dx[i] = 100 * math.Abs(pdi-mdi) / (pdi + mdi)
		}
	}
	record(period)

	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		record(i)
	}

	// ADX seeds from the average of the first period DX values
	sum := 0.0
	for i := period; i < 2*period; i++ {
		sum += dx[i]
	}
	prev := sum / float64(period)
	adx[2*period-1] = prev
	for i := 2 * period; i < n; i++ {
		prev = (prev*float64(period-1) + dx[i]) / float64(period)
		adx[i] = prev
	}
	return
}

// Bollinger computes the Bollinger bands for the latest candle.
func Bollinger(closes []float64, period int, stddev float64) (upper, mid, lower float64) {
	if period <= 0 || len(closes) < period {
		return math.NaN(), math.NaN(), math.NaN()
	}

	window := closes[len(closes)-period:]
	mid = mean(window)
	sd := stdDev(window, mid)
	return mid + stddev*sd, mid, mid - stddev*sd
}

// VWAP computes the volume weighted average price across candles.
func VWAP(candles []models.Candle) float64 {
	var pvSum, vSum float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		pvSum += typical * c.Volume
		vSum += c.Volume
	}
	if vSum == 0 {
		return math.NaN()
	}
	return pvSum / vSum
}

// ZScore computes the rolling z-score of the latest value.
func ZScore(values []float64, window int) float64 {
	if window <= 0 || len(values) < window {
		return math.NaN()
	}

	tail := values[len(values)-window:]
	m := mean(tail)
	sd := stdDev(tail, m)
	if sd == 0 {
		return 0
	}
	return (tail[len(tail)-1] - m) / sd
}

// PercentileRank returns the percentage of values less than or equal to
// the last value, ignoring NaNs.
func PercentileRank(values []float64) float64 {
	last := math.NaN()
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
			last = v
		}
	}
	if len(clean) == 0 || math.IsNaN(last) {
		return math.NaN()
	}

	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)

	count := sort.SearchFloat64s(sorted, last)
	for count < len(sorted) && sorted[count] <= last {
		count++
	}
	return 100 * float64(count) / float64(len(sorted))
}

// Compute derives the full indicator set for the latest candle. Returns
// false when there is not enough history.
func Compute(candles []models.Candle, p Params) (Set, bool) {
	if len(candles) < p.EMAShort {
		return Set{}, false
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}
	last := len(candles) - 1

	s := Set{Price: closes[last]}
	s.EMAShort = lastValue(EMA(closes, p.EMAShort))
	s.EMALong = lastValue(EMA(closes, p.EMALong))
	s.RSI = lastValue(RSI(closes, p.RSIPeriod))

	atr := ATR(candles, p.ATRPeriod)
	s.ATR = lastValue(atr)
	s.ATRPercentile = PercentileRank(atr)

	adx, pdi, mdi := ADX(candles, p.ADXPeriod)
	s.ADX = lastValue(adx)
	s.PlusDI = lastValue(pdi)
	s.MinusDI = lastValue(mdi)

	s.BollingerUpper, s.BollingerMid, s.BollingerLower = Bollinger(closes, p.BollingerPeriod, p.BollingerStd)
	if s.BollingerMid != 0 && !math.IsNaN(s.BollingerMid) {
		s.BollingerWidth = (s.BollingerUpper - s.BollingerLower) / s.BollingerMid * 100
	}

	s.VWAP = VWAP(candles)
	if s.VWAP != 0 && !math.IsNaN(s.VWAP) {
		s.VWAPDistance = (closes[last] - s.VWAP) / s.VWAP * 100
	}

	if len(volumes) >= p.VolumeMAPeriod {
		s.VolumeMA = mean(volumes[len(volumes)-p.VolumeMAPeriod:])
		if s.VolumeMA > 0 {
			s.VolumeRatio = volumes[last] / s.VolumeMA
		}
	}

	s.ZScore = ZScore(closes, 20)
	return s, true
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func lastValue(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
