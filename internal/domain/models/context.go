package models

import (
	"fmt"
	"strings"
	"time"
)

// MarketContext is the market snapshot handed to advisors for one round.
type MarketContext struct {
	Symbol         string    `json:"symbol"`
	Timestamp      time.Time `json:"timestamp"`
	Price          float64   `json:"price"`
	RSI            float64   `json:"rsi"`
	ADX            float64   `json:"adx"`
	Trend          string    `json:"trend"`           // "up", "down", "neutral"
	VolatilityType string    `json:"volatility_type"` // "volatile", "trending", "ranging"
	VolumeVsAvg    float64   `json:"volume_vs_avg"`   // current volume / moving average
	FundingRate    float64   `json:"funding_rate"`
	EMAShort       float64   `json:"ema_short,omitempty"`
	EMALong        float64   `json:"ema_long,omitempty"`
	ATR            float64   `json:"atr,omitempty"`
	BollingerWidth float64   `json:"bollinger_width,omitempty"`
	VWAPDistance   float64   `json:"vwap_distance,omitempty"`
	VolumeSpike    bool      `json:"volume_spike"`
	PriceStretched bool      `json:"price_stretched"`
	Question       string    `json:"question,omitempty"` // optional user question riding along
}

// Prompt renders the context as the user turn sent to each advisor.
func (m MarketContext) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current market data for %s:\n", m.Symbol)
	fmt.Fprintf(&b, "- Price: %.2f\n", m.Price)
	fmt.Fprintf(&b, "- RSI(14): %.1f\n", m.RSI)
	fmt.Fprintf(&b, "- ADX: %.1f\n", m.ADX)
	fmt.Fprintf(&b, "- Trend: %s\n", m.Trend)
	fmt.Fprintf(&b, "- Volatility regime: %s\n", m.VolatilityType)
	fmt.Fprintf(&b, "- Volume vs average: %.2fx\n", m.VolumeVsAvg)
	fmt.Fprintf(&b, "- Funding rate: %.5f\n", m.FundingRate)
	if m.ATR > 0 {
		fmt.Fprintf(&b, "- ATR(14): %.2f\n", m.ATR)
	}
	if m.BollingerWidth > 0 {
		fmt.Fprintf(&b, "- Bollinger band width: %.4f\n", m.BollingerWidth)
	}
	if m.VolumeSpike {
		b.WriteString("- Note: volume spike in progress\n")
	}
	if m.PriceStretched {
		b.WriteString("- Note: price is stretched far from VWAP\n")
	}
	if m.Question != "" {
		b.WriteString("\n")
		b.WriteString(m.Question)
	} else {
		b.WriteString("\nAnalyze the data and respond with your trading recommendation.")
	}
	return b.String()
}
