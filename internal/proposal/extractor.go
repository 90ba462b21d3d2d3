package proposal

import (
	"encoding/json"
	"strings"

	"CoinMentor/internal/domain/models"
	applogger "CoinMentor/pkg/logger"
)

// Extractor scans free-form advisor replies for an embedded JSON trade
// proposal. Extraction is best-effort: a reply without a parsable or
// valid proposal yields nil rather than an error, since advisors are
// free to answer in prose.
type Extractor struct {
	logger *applogger.Logger
}

// NewExtractor creates a proposal extractor.
func NewExtractor(logger *applogger.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// rawProposal accepts both reply shapes advisors produce: a flat object
// with entry/stop_loss/take_profit, and a structured object carrying a
// trade_params sub-object.
type rawProposal struct {
	StrategyName    string  `json:"strategy_name"`
	Action          string  `json:"action"`
	ConfidenceScore float64 `json:"confidence_score"`
	Rationale       string  `json:"rationale"`

	Symbol     string  `json:"symbol"`
	Entry      float64 `json:"entry"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`

	TradeParams *rawTradeParams `json:"trade_params"`
}

type rawTradeParams struct {
	Symbol              string    `json:"symbol"`
	EntryPrice          float64   `json:"entry_price"`
	StopLoss            float64   `json:"stop_loss"`
	TakeProfit          float64   `json:"take_profit"`
	TrailingStopPercent float64   `json:"trailing_stop_percent"`
	ScalingTargets      []float64 `json:"scaling_targets"`
}

// Extract returns the first valid trade proposal embedded in reply, or
// nil when the reply carries none.
func (e *Extractor) Extract(advisor, reply string) *models.TradeProposal {
	block, ok := firstJSONBlock(reply)
	if !ok {
		return nil
	}

	var raw rawProposal
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		e.warn(advisor, "proposal block is not valid JSON", err)
		return nil
	}

	action, ok := models.NormalizeAction(raw.Action)
	if !ok {
		if raw.Action != "" {
			e.warn(advisor, "proposal has unknown action", nil)
		}
		return nil
	}

	p := &models.TradeProposal{
		StrategyName:    raw.StrategyName,
		Action:          action,
		Symbol:          raw.Symbol,
		EntryPrice:      raw.EntryPrice,
		StopLoss:        raw.StopLoss,
		TakeProfit:      raw.TakeProfit,
		ConfidenceScore: raw.ConfidenceScore,
		Rationale:       raw.Rationale,
	}
	if p.EntryPrice == 0 {
		p.EntryPrice = raw.Entry
	}
	if tp := raw.TradeParams; tp != nil {
		if tp.Symbol != "" {
			p.Symbol = tp.Symbol
		}
		if tp.EntryPrice != 0 {
			p.EntryPrice = tp.EntryPrice
		}
		if tp.StopLoss != 0 {
			p.StopLoss = tp.StopLoss
		}
		if tp.TakeProfit != 0 {
			p.TakeProfit = tp.TakeProfit
		}
		p.TrailingStopPercent = tp.TrailingStopPercent
		p.ScalingTargets = tp.ScalingTargets
	}

	if err := p.Validate(); err != nil {
		e.warn(advisor, "proposal failed validation", err)
		return nil
	}
	return p
}

func (e *Extractor) warn(advisor, msg string, err error) {
	if e.logger == nil {
		return
	}
	fields := []applogger.Field{applogger.String("advisor", advisor)}
	if err != nil {
		fields = append(fields, applogger.Error(err))
	}
	e.logger.Warn(msg, fields...)
}

// firstJSONBlock returns the first balanced top-level {...} block in s.
// Braces inside JSON strings are ignored.
func firstJSONBlock(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
