package proposal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinMentor/internal/domain/models"
)

func TestExtractFlatForm(t *testing.T) {
	e := NewExtractor(nil)

	reply := `Based on the indicators I recommend entering long.
{"action":"buy","symbol":"BTCUSDT","entry":60000,"stop_loss":58000,"take_profit":64000}
Good luck.`

	p := e.Extract("claude", reply)
	require.NotNil(t, p)
	assert.Equal(t, models.ActionBuy, p.Action)
	assert.Equal(t, "BTCUSDT", p.Symbol)
	assert.Equal(t, 60000.0, p.EntryPrice)
	assert.Equal(t, 58000.0, p.StopLoss)
	assert.Equal(t, 64000.0, p.TakeProfit)
}

func TestExtractStructuredForm(t *testing.T) {
	e := NewExtractor(nil)

	reply := `{"strategy_name":"Breakout momentum","action":"BUY","confidence_score":0.8,` +
		`"rationale":"ADX confirms trend","trade_params":{"symbol":"ETHUSDT","entry_price":3200,` +
		`"stop_loss":3100,"take_profit":3500,"trailing_stop_percent":1.5,"scaling_targets":[3350,3450]}}`

	p := e.Extract("gemini", reply)
	require.NotNil(t, p)
	assert.Equal(t, models.ActionBuy, p.Action)
	assert.Equal(t, "ETHUSDT", p.Symbol)
	assert.Equal(t, 3200.0, p.EntryPrice)
	assert.Equal(t, 0.8, p.ConfidenceScore)
	assert.Equal(t, 1.5, p.TrailingStopPercent)
	assert.Equal(t, []float64{3350, 3450}, p.ScalingTargets)
	assert.Equal(t, "Breakout momentum", p.StrategyName)
}

func TestExtractNoJSONBlock(t *testing.T) {
	e := NewExtractor(nil)

	assert.Nil(t, e.Extract("claude", "The market looks choppy, I would stay out for now."))
	assert.Nil(t, e.Extract("claude", ""))
}

func TestExtractMalformedJSONReturnsNil(t *testing.T) {
	e := NewExtractor(nil)

	p := e.Extract("claude", `here you go {"action":"buy","symbol":"BTCUSDT","entry":}`)
	assert.Nil(t, p)
}

func TestExtractDirectionalConsistency(t *testing.T) {
	e := NewExtractor(nil)

	// stop above entry on a buy
	p := e.Extract("claude", `{"action":"buy","symbol":"BTCUSDT","entry":60000,"stop_loss":61000,"take_profit":64000}`)
	assert.Nil(t, p)

	// valid sell: take_profit < entry < stop_loss
	p = e.Extract("claude", `{"action":"sell","symbol":"BTCUSDT","entry":60000,"stop_loss":62000,"take_profit":57000}`)
	require.NotNil(t, p)
	assert.Equal(t, models.ActionSell, p.Action)

	// inverted sell levels
	p = e.Extract("claude", `{"action":"sell","symbol":"BTCUSDT","entry":60000,"stop_loss":58000,"take_profit":64000}`)
	assert.Nil(t, p)
}

func TestExtractHoldWithoutPrices(t *testing.T) {
	e := NewExtractor(nil)

	p := e.Extract("grok", `{"action":"WAIT","rationale":"No edge in ranging market"}`)
	require.NotNil(t, p)
	assert.Equal(t, models.ActionHold, p.Action)
}

func TestExtractHoldConfidenceOutOfRange(t *testing.T) {
	e := NewExtractor(nil)

	p := e.Extract("grok", `{"action":"WAIT","confidence_score":7,"rationale":"No edge"}`)
	assert.Nil(t, p)
}

func TestExtractIgnoresBracesInStrings(t *testing.T) {
	e := NewExtractor(nil)

	reply := `{"action":"buy","symbol":"BTCUSDT","entry":60000,"stop_loss":58000,` +
		`"take_profit":64000,"rationale":"pattern {cup and handle} confirmed"}`
	p := e.Extract("claude", reply)
	require.NotNil(t, p)
	assert.Contains(t, p.Rationale, "{cup and handle}")
}

func TestExtractFirstBlockWins(t *testing.T) {
	e := NewExtractor(nil)

	reply := `{"action":"buy","symbol":"BTCUSDT","entry":60000,"stop_loss":58000,"take_profit":64000}
{"action":"sell","symbol":"BTCUSDT","entry":60000,"stop_loss":62000,"take_profit":57000}`
	p := e.Extract("claude", reply)
	require.NotNil(t, p)
	assert.Equal(t, models.ActionBuy, p.Action)
}

func TestExtractUnknownAction(t *testing.T) {
	e := NewExtractor(nil)

	p := e.Extract("claude", `{"action":"yolo","symbol":"BTCUSDT","entry":60000,"stop_loss":58000,"take_profit":64000}`)
	assert.Nil(t, p)
}

func TestExtractNegativePrices(t *testing.T) {
	e := NewExtractor(nil)

	p := e.Extract("claude", `{"action":"buy","symbol":"BTCUSDT","entry":-60000,"stop_loss":58000,"take_profit":64000}`)
	assert.Nil(t, p)
}
