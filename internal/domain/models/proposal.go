package models

import (
	"fmt"
	"math"
	"strings"
)

// ProposalAction is the normalized trade direction.
type ProposalAction string

const (
	ActionBuy  ProposalAction = "buy"
	ActionSell ProposalAction = "sell"
	ActionHold ProposalAction = "hold"
)

// NormalizeAction maps raw advisor action strings (BUY, Sell, WAIT, ...)
// to a ProposalAction. Returns false for unknown values.
func NormalizeAction(raw string) (ProposalAction, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long":
		return ActionBuy, true
	case "sell", "short":
		return ActionSell, true
	case "hold", "wait", "none":
		return ActionHold, true
	default:
		return "", false
	}
}

// TradeProposal is a machine-actionable trade recommendation extracted
// from a free-form advisor reply.
type TradeProposal struct {
	StrategyName        string         `json:"strategy_name,omitempty"`
	Action              ProposalAction `json:"action"`
	Symbol              string         `json:"symbol"`
	EntryPrice          float64        `json:"entry_price"`
	StopLoss            float64        `json:"stop_loss"`
	TakeProfit          float64        `json:"take_profit"`
	TrailingStopPercent float64        `json:"trailing_stop_percent,omitempty"`
	ScalingTargets      []float64      `json:"scaling_targets,omitempty"`
	ConfidenceScore     float64        `json:"confidence_score,omitempty"`
	Rationale           string         `json:"rationale,omitempty"`
}

// Validate checks structural and directional consistency. Hold proposals
// may omit price levels entirely.
func (p *TradeProposal) Validate() error {
	switch p.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return fmt.Errorf("unknown action %q", p.Action)
	}

	if p.ConfidenceScore < 0 || p.ConfidenceScore > 1 {
		return fmt.Errorf("confidence_score must be within [0, 1]")
	}

	if p.Action == ActionHold {
		return nil
	}

	if p.Symbol == "" {
		return fmt.Errorf("symbol is required for %s", p.Action)
	}
	for name, v := range map[string]float64{
		"entry_price": p.EntryPrice,
		"stop_loss":   p.StopLoss,
		"take_profit": p.TakeProfit,
	} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a positive finite number", name)
		}
	}

	switch p.Action {
	case ActionBuy:
		if !(p.StopLoss < p.EntryPrice && p.EntryPrice < p.TakeProfit) {
			return fmt.Errorf("buy levels must satisfy stop_loss < entry_price < take_profit")
		}
	case ActionSell:
		if !(p.TakeProfit < p.EntryPrice && p.EntryPrice < p.StopLoss) {
			return fmt.Errorf("sell levels must satisfy take_profit < entry_price < stop_loss")
		}
	}
	return nil
}
