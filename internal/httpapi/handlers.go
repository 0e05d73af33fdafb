// Package httpapi is the HTTP front door: it authenticates, decodes,
// validates, hands requests to the dispatcher, and maps outcomes to status
// codes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openclaw/bridge/internal/action"
	"github.com/openclaw/bridge/internal/logging"
	"github.com/openclaw/bridge/internal/shared/id"
)

// ServiceName identifies the bridge in health responses.
const ServiceName = "openclaw-tools-bridge"

// ActionDispatcher processes one validated request to its terminal outcome.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, req action.Request, requestID string) action.Outcome
}

// Handlers contains the HTTP handlers.
type Handlers struct {
	dispatcher   ActionDispatcher
	log          *logging.Logger
	maxBodyBytes int64

	// now anchors timestamp freshness checks. Overridable in tests.
	now func() time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(dispatcher ActionDispatcher, maxBodyBytes int64, log *logging.Logger) *Handlers {
	return &Handlers{
		dispatcher:   dispatcher,
		log:          log,
		maxBodyBytes: maxBodyBytes,
		now:          time.Now,
	}
}

// Health returns service health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": ServiceName,
	})
}

// Action accepts one action request and responds with its outcome.
func (h *Handlers) Action(c *gin.Context) {
	requestID := string(id.NewRequestID())
	start := time.Now()

	req, errCode := h.decode(c)
	if errCode != "" {
		h.reject(c, requestID, errCode)
		return
	}

	req = action.Normalize(req)
	if reason := action.Validate(req, h.now()); reason != "" {
		h.reject(c, requestID, rejectCode(reason))
		return
	}

	log := h.log.WithRequest(requestID, req.Action)
	log.Info("action accepted", zap.String("source", req.Source))

	outcome := h.dispatcher.Dispatch(c.Request.Context(), req, requestID)

	log.Info("action finished",
		zap.String("status", string(outcome.Status)),
		zap.String("errorCode", string(outcome.ErrorCode)),
		zap.Duration("latency", time.Since(start)))

	c.JSON(outcomeStatus(outcome), outcome)
}

// decode reads the body with a hard size cap and strict field checking.
func (h *Handlers) decode(c *gin.Context) (action.Request, action.ErrorCode) {
	var req action.Request

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return req, action.CodePayloadTooLarge
		}
		return req, action.CodeInvalidPayload
	}
	return req, ""
}

func (h *Handlers) reject(c *gin.Context, requestID string, code action.ErrorCode) {
	h.log.Warn("action rejected",
		zap.String("requestId", requestID),
		zap.String("errorCode", string(code)))
	c.JSON(rejectStatus(code), action.Failed(requestID, code))
}

// rejectCode maps validation reasons onto the error taxonomy.
func rejectCode(reason action.RejectReason) action.ErrorCode {
	switch reason {
	case action.ReasonUnsupportedAction:
		return action.CodeUnsupportedAction
	case action.ReasonStaleTimestamp:
		return action.CodeStaleTimestamp
	case action.ReasonPayloadTooLarge:
		return action.CodePayloadTooLarge
	default:
		return action.CodeInvalidPayload
	}
}

func rejectStatus(code action.ErrorCode) int {
	switch code {
	case action.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case action.CodeUnauthorizedClient:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// outcomeStatus maps dispatcher outcomes to HTTP: sent is 200, queued is 202,
// failed is 502. The pipeline ran, so client-side 4xx codes do not apply.
func outcomeStatus(outcome action.Outcome) int {
	switch outcome.Status {
	case action.StatusSent:
		return http.StatusOK
	case action.StatusQueued:
		return http.StatusAccepted
	default:
		return http.StatusBadGateway
	}
}
