package models

import (
	"errors"
	"fmt"
	"time"
)

// ProviderKind identifies the upstream conversational API family.
type ProviderKind string

const (
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderGemini    ProviderKind = "gemini"
	ProviderOpenAI    ProviderKind = "openai"
)

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AdvisorIdentity describes a configured advisor.
type AdvisorIdentity struct {
	Name     string       `json:"name"`
	Provider ProviderKind `json:"provider"`
	Model    string       `json:"model"`
	Enabled  bool         `json:"enabled"`
}

// OutcomeStatus classifies the result of one advisor dispatch.
type OutcomeStatus string

const (
	StatusOK      OutcomeStatus = "ok"
	StatusError   OutcomeStatus = "error"
	StatusTimeout OutcomeStatus = "timeout"
)

// ErrorKind classifies advisor failures so callers can react per cause
// without parsing provider-specific messages.
type ErrorKind string

const (
	ErrKindUnauthenticated   ErrorKind = "unauthenticated"
	ErrKindRateLimited       ErrorKind = "rate_limited"
	ErrKindUnreachable       ErrorKind = "unreachable"
	ErrKindMalformedResponse ErrorKind = "malformed_response"
	ErrKindTimeout           ErrorKind = "timeout"
)

// AdvisorError wraps a provider failure with its classification.
type AdvisorError struct {
	Advisor  string
	Provider ProviderKind
	Kind     ErrorKind
	Err      error
}

func (e *AdvisorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("advisor %s: %s: %v", e.Advisor, e.Kind, e.Err)
	}
	return fmt.Sprintf("advisor %s: %s", e.Advisor, e.Kind)
}

func (e *AdvisorError) Unwrap() error { return e.Err }

// NewAdvisorError builds a classified advisor error.
func NewAdvisorError(advisor string, provider ProviderKind, kind ErrorKind, err error) *AdvisorError {
	return &AdvisorError{Advisor: advisor, Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the error classification, or empty string for
// unclassified errors.
func KindOf(err error) ErrorKind {
	var ae *AdvisorError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// AdvisorOutcome is the per-advisor result of one orchestration round.
type AdvisorOutcome struct {
	Advisor      string         `json:"advisor"`
	Provider     ProviderKind   `json:"provider"`
	Status       OutcomeStatus  `json:"status"`
	Reply        string         `json:"reply,omitempty"`
	Proposal     *TradeProposal `json:"proposal,omitempty"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ResponseTime time.Duration  `json:"response_time_ns"`
}
