package action

import (
	"strings"
	"time"
)

// RejectReason is the machine-readable code for a rejected request. The front
// door owns mapping these to HTTP; the core only names them.
type RejectReason string

const (
	ReasonMissingFields     RejectReason = "missing_required_fields"
	ReasonUnsupportedAction RejectReason = "unsupported_action"
	ReasonInvalidSource     RejectReason = "invalid_source"
	ReasonEmptyContext      RejectReason = "empty_context"
	ReasonMissingUserPrompt RejectReason = "missing_user_prompt"
	ReasonPayloadTooLarge   RejectReason = "payload_too_large"
	ReasonStaleTimestamp    RejectReason = "stale_timestamp"
)

const (
	maxSelectionChars = 20000
	maxTimestampSkew  = 5 * time.Minute
)

// aliases maps deprecated action spellings to canonical names.
var aliases = map[string]string{
	"summarise": string(TypeSummarize),
}

// Normalize canonicalizes a raw request: the action name is lowercased,
// trimmed, and resolved through the alias table; the user prompt is trimmed.
// It is pure and performs no I/O.
func Normalize(req Request) Request {
	name := strings.ToLower(strings.TrimSpace(req.Action))
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	req.Action = name
	req.UserPrompt = strings.TrimSpace(req.UserPrompt)
	return req
}

// Validate checks a normalized request against the payload rules the original
// schema enforced. It returns the first violated rule, or "" when valid.
// The now parameter anchors the timestamp freshness check.
func Validate(req Request, now time.Time) RejectReason {
	if req.Version == "" || req.Action == "" || req.Source == "" || req.Timestamp == "" {
		return ReasonMissingFields
	}
	if !isAllowed(req.Action) {
		return ReasonUnsupportedAction
	}
	if req.Source != "chrome" && req.Source != "macos" {
		return ReasonInvalidSource
	}
	if req.URL == "" && req.Selection == "" && req.UserPrompt == "" {
		return ReasonEmptyContext
	}
	if req.Action == string(TypePrompt) && req.UserPrompt == "" {
		return ReasonMissingUserPrompt
	}
	if len(req.Selection) > maxSelectionChars {
		return ReasonPayloadTooLarge
	}
	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return ReasonStaleTimestamp
	}
	if skew := now.Sub(ts); skew > maxTimestampSkew || skew < -maxTimestampSkew {
		return ReasonStaleTimestamp
	}
	return ""
}

func isAllowed(name string) bool {
	for _, t := range Allowed {
		if name == string(t) {
			return true
		}
	}
	return false
}
