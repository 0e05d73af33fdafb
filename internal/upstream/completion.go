package upstream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/openclaw/bridge/internal/action"
	"github.com/openclaw/bridge/internal/resilience"
)

// retryAfterHintMS is the client-facing retry hint attached to queued
// outcomes after an upstream timeout.
const retryAfterHintMS = 5000

// messagePrefix heads every forwarded completion message so the agent can
// recognize structured tool requests.
const messagePrefix = "OpenClaw Tools action request:"

var errRetryableStatus = errors.New("retryable upstream status")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type actionContext struct {
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Selection  string   `json:"selection"`
	UserPrompt string   `json:"userPrompt"`
	Tags       []string `json:"tags"`
}

type actionEnvelope struct {
	RequestID    string        `json:"requestId"`
	Action       string        `json:"action"`
	Source       string        `json:"source"`
	Context      actionContext `json:"context"`
	ResponseMode string        `json:"responseMode"`
	Timestamp    string        `json:"timestamp"`
}

// buildMessage serializes the request into the prefixed envelope the agent
// parses on the other side. Field order is stable.
func buildMessage(req action.Request, requestID string) (string, error) {
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	envelope := actionEnvelope{
		RequestID: requestID,
		Action:    req.Action,
		Source:    req.Source,
		Context: actionContext{
			URL:        req.URL,
			Title:      req.Title,
			Selection:  req.Selection,
			UserPrompt: req.UserPrompt,
			Tags:       tags,
		},
		ResponseMode: string(req.Mode()),
		Timestamp:    req.Timestamp,
	}
	body, err := sonic.Marshal(envelope)
	if err != nil {
		return "", err
	}
	return messagePrefix + "\n" + string(body), nil
}

// Complete performs one completion attempt. On success it returns the
// extracted completion text alongside a sent outcome; every failure mode maps
// to exactly one outcome class so the dispatcher can decide whether to retry.
func (c *Client) Complete(ctx context.Context, req action.Request, requestID string) (string, action.Outcome) {
	if c.cfg.BaseURL == "" || c.cfg.Token == "" {
		c.log.Warn("upstream not configured", zap.String("requestId", requestID))
		return "", action.Failed(requestID, action.CodeUpstreamUnavailable)
	}

	message, err := buildMessage(req, requestID)
	if err != nil {
		c.log.Error("failed to build upstream message", zap.Error(err), zap.String("requestId", requestID))
		return "", action.Failed(requestID, action.CodeInternalError)
	}

	var resp *resty.Response
	execErr := c.breaker.Execute(func() error {
		r, reqErr := c.http.R().
			SetContext(ctx).
			SetBody(chatRequest{
				Model:    c.cfg.Model,
				Messages: []chatMessage{{Role: "user", Content: message}},
			}).
			Post("/v1/chat/completions")
		if reqErr != nil {
			return reqErr
		}
		resp = r
		if retryableStatus(r.StatusCode()) {
			return errRetryableStatus
		}
		return nil
	})

	switch {
	case execErr == nil:
		// Fall through to status inspection below.
	case errors.Is(execErr, errRetryableStatus):
		c.log.Warn("upstream returned retryable status",
			zap.Int("status", resp.StatusCode()),
			zap.String("requestId", requestID))
		return "", action.Failed(requestID, action.CodeUpstreamUnavailable)
	case errors.Is(execErr, resilience.ErrCircuitOpen), errors.Is(execErr, resilience.ErrTooManyRequests):
		c.log.Warn("upstream circuit open, short-circuiting", zap.String("requestId", requestID))
		return "", action.Failed(requestID, action.CodeUpstreamUnavailable)
	case isTimeout(execErr):
		c.log.Warn("upstream request timed out",
			zap.Error(execErr),
			zap.String("requestId", requestID))
		return "", action.Queued(requestID, action.CodeUpstreamTimeout, retryAfterHintMS)
	default:
		c.log.Warn("upstream request failed",
			zap.Error(execErr),
			zap.String("requestId", requestID))
		return "", action.Failed(requestID, action.CodeUpstreamUnavailable)
	}

	if !resp.IsSuccess() {
		c.log.Warn("upstream rejected request",
			zap.Int("status", resp.StatusCode()),
			zap.String("requestId", requestID))
		return "", action.Failed(requestID, action.CodeInternalError)
	}

	text, ok := extractText(resp.Body())
	if !ok {
		c.log.Error("upstream response had no usable completion text",
			zap.String("requestId", requestID))
		return "", action.Failed(requestID, action.CodeInternalError)
	}
	return text, action.Sent(requestID)
}

// retryableStatus covers transient upstream conditions: timeouts, throttling
// and server errors.
func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// extractText pulls the first choice's textual content. Content may be a
// plain string or a list of typed parts; only text-bearing parts contribute,
// in order.
func extractText(body []byte) (string, bool) {
	var parsed chatResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if len(parsed.Choices) == 0 {
		return "", false
	}

	switch content := parsed.Choices[0].Message.Content.(type) {
	case string:
		return content, content != ""
	case []any:
		var b strings.Builder
		for _, part := range content {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				b.WriteString(text)
			}
		}
		return b.String(), b.Len() > 0
	default:
		return "", false
	}
}
