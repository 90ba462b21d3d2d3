package models

// Requests for advisory HTTP endpoints. Defined in domain for consistency and reuse.

type AskAllRequest struct {
	Symbol   string `json:"symbol" validate:"required"`
	TF       string `json:"tf" default:"1m" validate:"oneof=1m 5m 15m 1h 4h"`
	Question string `json:"question" validate:"omitempty,max=2000"`
}

type AskOneRequest struct {
	Symbol   string `json:"symbol" validate:"required"`
	TF       string `json:"tf" default:"1m" validate:"oneof=1m 5m 15m 1h 4h"`
	Question string `json:"question" validate:"omitempty,max=2000"`
}

type HistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type SnapshotRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m 15m 1h 4h"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"200" validate:"gte=1,lte=5000"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m 15m 1h 4h"`
}
