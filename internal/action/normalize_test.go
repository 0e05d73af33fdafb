package action

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validRequest() Request {
	return Request{
		Version:   "1",
		Action:    "summarize",
		Source:    "chrome",
		URL:       "https://example.com/article",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func TestNormalizeLowercasesAndTrims(t *testing.T) {
	req := Normalize(Request{Action: "  Bookmark ", UserPrompt: "  hi  "})
	assert.Equal(t, "bookmark", req.Action)
	assert.Equal(t, "hi", req.UserPrompt)
}

func TestNormalizeResolvesAlias(t *testing.T) {
	req := Normalize(Request{Action: "Summarise"})
	assert.Equal(t, "summarize", req.Action)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	in := Request{Action: " SUMMARISE ", UserPrompt: " p "}
	first := Normalize(in)
	second := Normalize(first)
	assert.Equal(t, first, second)
}

func TestValidate(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name   string
		mutate func(*Request)
		want   RejectReason
	}{
		{"valid", func(r *Request) {}, ""},
		{"missing version", func(r *Request) { r.Version = "" }, ReasonMissingFields},
		{"missing timestamp", func(r *Request) { r.Timestamp = "" }, ReasonMissingFields},
		{"unknown action", func(r *Request) { r.Action = "translate" }, ReasonUnsupportedAction},
		{"bad source", func(r *Request) { r.Source = "firefox" }, ReasonInvalidSource},
		{"empty context", func(r *Request) { r.URL = "" }, ReasonEmptyContext},
		{"prompt without user prompt", func(r *Request) { r.Action = "prompt" }, ReasonMissingUserPrompt},
		{"oversized selection", func(r *Request) { r.Selection = strings.Repeat("x", 20001) }, ReasonPayloadTooLarge},
		{"unparsable timestamp", func(r *Request) { r.Timestamp = "yesterday" }, ReasonStaleTimestamp},
		{"stale timestamp", func(r *Request) {
			r.Timestamp = now.Add(-10 * time.Minute).Format(time.RFC3339)
		}, ReasonStaleTimestamp},
		{"future timestamp", func(r *Request) {
			r.Timestamp = now.Add(10 * time.Minute).Format(time.RFC3339)
		}, ReasonStaleTimestamp},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			assert.Equal(t, tc.want, Validate(req, now))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, CodeUpstreamTimeout.Retryable())
	assert.True(t, CodeUpstreamUnavailable.Retryable())
	assert.False(t, CodeInternalError.Retryable())
	assert.False(t, CodeInvalidPayload.Retryable())
}

func TestModeDefaultsToTelegram(t *testing.T) {
	assert.Equal(t, ModeTelegram, Request{}.Mode())
	assert.Equal(t, ModeSilent, Request{ResponseMode: ModeSilent}.Mode())
}
