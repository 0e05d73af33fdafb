// Package action defines the bridge's unit of work and its result contract:
// the ActionRequest accepted from the extension, the Outcome returned to the
// front door, and the error taxonomy shared across components.
package action

// Type enumerates the supported actions.
type Type string

const (
	TypeSummarize  Type = "summarize"
	TypeExplain    Type = "explain"
	TypeFlashcards Type = "flashcards"
	TypeBookmark   Type = "bookmark"
	TypePrompt     Type = "prompt"
)

// Allowed lists every action the bridge accepts, in stable order.
var Allowed = []Type{TypeSummarize, TypeExplain, TypeFlashcards, TypeBookmark, TypePrompt}

// ResponseMode controls where a completion result is surfaced.
type ResponseMode string

const (
	ModeTelegram ResponseMode = "telegram"
	ModeSilent   ResponseMode = "silent"
	ModeBoth     ResponseMode = "both"
)

// Request is one validated action request. It is immutable within the core;
// only derived text ever reaches disk.
type Request struct {
	Version        string       `json:"version"`
	Action         string       `json:"action"`
	Source         string       `json:"source"`
	URL            string       `json:"url,omitempty"`
	Title          string       `json:"title,omitempty"`
	Selection      string       `json:"selection,omitempty"`
	UserPrompt     string       `json:"userPrompt,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	ResponseMode   ResponseMode `json:"responseMode,omitempty"`
	IdempotencyKey string       `json:"idempotencyKey,omitempty"`
	Timestamp      string       `json:"timestamp"`
}

// Mode returns the effective response mode, defaulting to telegram.
func (r Request) Mode() ResponseMode {
	if r.ResponseMode == "" {
		return ModeTelegram
	}
	return r.ResponseMode
}

// Status is the terminal state of a processed request.
type Status string

const (
	StatusSent   Status = "sent"
	StatusQueued Status = "queued"
	StatusFailed Status = "failed"
)

// ErrorCode classifies failures across the bridge.
type ErrorCode string

const (
	CodeUnauthorizedClient  ErrorCode = "UNAUTHORIZED_CLIENT"
	CodeStaleTimestamp      ErrorCode = "STALE_TIMESTAMP"
	CodeInvalidPayload      ErrorCode = "INVALID_PAYLOAD"
	CodeUnsupportedAction   ErrorCode = "UNSUPPORTED_ACTION"
	CodePayloadTooLarge     ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	CodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	CodeInternalError       ErrorCode = "INTERNAL_ERROR"
)

// Retryable reports whether an error class is worth another upstream attempt.
// Non-retryable classes mean the request itself was rejected; retrying wastes
// a remote call.
func (c ErrorCode) Retryable() bool {
	return c == CodeUpstreamTimeout || c == CodeUpstreamUnavailable
}

// Outcome is the sole contract surface exposed to the front door. Exactly one
// Outcome is produced per request.
type Outcome struct {
	Status       Status    `json:"status"`
	RequestID    string    `json:"requestId"`
	ErrorCode    ErrorCode `json:"errorCode,omitempty"`
	RetryAfterMS int       `json:"retryAfterMs,omitempty"`
}

// Sent builds a success outcome.
func Sent(requestID string) Outcome {
	return Outcome{Status: StatusSent, RequestID: requestID}
}

// Queued builds a deferred outcome with a client retry hint.
func Queued(requestID string, code ErrorCode, retryAfterMS int) Outcome {
	return Outcome{Status: StatusQueued, RequestID: requestID, ErrorCode: code, RetryAfterMS: retryAfterMS}
}

// Failed builds a failure outcome.
func Failed(requestID string, code ErrorCode) Outcome {
	return Outcome{Status: StatusFailed, RequestID: requestID, ErrorCode: code}
}
