// Package dispatch routes validated requests to their terminal outcome:
// bookmarks go straight to disk, everything else goes upstream for a
// completion, with flashcard results persisted and other results delivered
// to the notification sink.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/bridge/internal/action"
	"github.com/openclaw/bridge/internal/config"
	"github.com/openclaw/bridge/internal/logging"
	"github.com/openclaw/bridge/internal/monitoring"
	"github.com/openclaw/bridge/internal/store"
	"github.com/openclaw/bridge/internal/upstream"
)

// Completer performs one upstream completion attempt.
type Completer interface {
	Complete(ctx context.Context, req action.Request, requestID string) (string, action.Outcome)
}

// Appender persists one entry to an append-only store.
type Appender interface {
	Append(req action.Request, requestID string, content string) (store.Result, error)
}

// Sink delivers user-facing result text.
type Sink interface {
	Configured() bool
	Send(ctx context.Context, text string) error
	SendAsync(text string)
}

// Dispatcher owns the retry policy and the action-type routing. Exactly one
// Outcome comes back per request.
type Dispatcher struct {
	completer  Completer
	bookmarks  Appender
	flashcards Appender
	sink       Sink
	metrics    *monitoring.Metrics
	log        *logging.Logger

	maxRetries     int
	retryBaseDelay time.Duration
}

// New creates a Dispatcher.
func New(
	cfg config.OpenClawConfig,
	completer Completer,
	bookmarks Appender,
	flashcards Appender,
	sink Sink,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Dispatcher {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Dispatcher{
		completer:      completer,
		bookmarks:      bookmarks,
		flashcards:     flashcards,
		sink:           sink,
		metrics:        metrics,
		log:            log,
		maxRetries:     maxRetries,
		retryBaseDelay: cfg.RetryBaseDelay(),
	}
}

// Dispatch processes one validated request to completion.
func (d *Dispatcher) Dispatch(ctx context.Context, req action.Request, requestID string) action.Outcome {
	outcome := d.dispatch(ctx, req, requestID)
	d.metrics.RecordAction(req.Action, string(outcome.Status))
	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, req action.Request, requestID string) action.Outcome {
	if action.Type(req.Action) == action.TypeBookmark {
		return d.handleBookmark(req, requestID)
	}
	return d.handleCompletion(ctx, req, requestID)
}

// handleBookmark never touches the upstream: persistence is the whole job.
// Duplicates still count as sent, the entry exists either way.
func (d *Dispatcher) handleBookmark(req action.Request, requestID string) action.Outcome {
	res, err := d.bookmarks.Append(req, requestID, "")
	if err != nil {
		d.log.Error("bookmark append failed",
			zap.Error(err),
			zap.String("requestId", requestID))
		return action.Failed(requestID, action.CodeInternalError)
	}

	if res.Deduped {
		d.metrics.RecordDedup("bookmarks", string(res.Reason))
		if res.Reason == store.DedupURL {
			d.notifyAsync(req, "Already bookmarked: "+displayTitle(req))
		}
		return action.Sent(requestID)
	}

	d.notifyAsync(req, "Bookmark saved: "+displayTitle(req))
	return action.Sent(requestID)
}

func (d *Dispatcher) handleCompletion(ctx context.Context, req action.Request, requestID string) action.Outcome {
	text, outcome := d.completeWithRetry(ctx, req, requestID)
	if outcome.Status != action.StatusSent {
		return outcome
	}

	if action.Type(req.Action) == action.TypeFlashcards {
		return d.handleFlashcards(req, requestID, text)
	}

	// The completion result IS the deliverable for the remaining actions, so
	// a configured sink makes delivery part of the contract.
	if d.sink.Configured() && req.Mode() != action.ModeSilent {
		if err := d.sink.Send(ctx, text); err != nil {
			d.metrics.RecordNotifyFailure()
			d.log.Error("result delivery failed",
				zap.Error(err),
				zap.String("requestId", requestID),
				zap.String("action", req.Action))
			return action.Failed(requestID, action.CodeUpstreamUnavailable)
		}
	}
	return action.Sent(requestID)
}

// handleFlashcards persists the completion before anything user-facing
// happens. A store failure overrides the successful completion.
func (d *Dispatcher) handleFlashcards(req action.Request, requestID string, text string) action.Outcome {
	content := text
	notice := "Flashcards saved: "

	if set, ok := upstream.ParseCardSet(text); ok {
		content = set.Render()
		if strings.TrimSpace(req.Title) == "" {
			req.Title = set.Title
		}
		notice += fmt.Sprintf("%s (%d cards)", displayTitle(req), len(set.Cards))
	} else {
		if strings.TrimSpace(req.Title) == "" {
			req.Title = "Generated flashcards"
		}
		notice += displayTitle(req)
		d.log.Warn("flashcard completion did not parse, storing raw text",
			zap.String("requestId", requestID))
	}

	res, err := d.flashcards.Append(req, requestID, content)
	if err != nil {
		d.log.Error("flashcard append failed",
			zap.Error(err),
			zap.String("requestId", requestID))
		return action.Failed(requestID, action.CodeInternalError)
	}
	if res.Deduped {
		d.metrics.RecordDedup("flashcards", string(res.Reason))
		d.notifyAsync(req, "Flashcards already saved: "+displayTitle(req))
		return action.Sent(requestID)
	}

	d.notifyAsync(req, notice)
	return action.Sent(requestID)
}

// completeWithRetry runs attempts 0 through maxRetries with linear backoff.
// Only retryable outcomes earn another attempt; the last outcome is returned
// verbatim.
func (d *Dispatcher) completeWithRetry(ctx context.Context, req action.Request, requestID string) (string, action.Outcome) {
	var text string
	var outcome action.Outcome

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, d.retryBaseDelay*time.Duration(attempt)); err != nil {
				return "", outcome
			}
			d.log.Info("retrying upstream completion",
				zap.Int("attempt", attempt),
				zap.String("requestId", requestID))
		}

		text, outcome = d.completer.Complete(ctx, req, requestID)
		d.metrics.RecordUpstreamAttempt(attemptResult(outcome))

		if outcome.Status == action.StatusSent {
			return text, outcome
		}
		if !outcome.ErrorCode.Retryable() {
			break
		}
	}
	return "", outcome
}

func attemptResult(outcome action.Outcome) string {
	switch {
	case outcome.Status == action.StatusSent:
		return "sent"
	case outcome.ErrorCode.Retryable():
		return "retryable"
	default:
		return "fatal"
	}
}

func (d *Dispatcher) notifyAsync(req action.Request, text string) {
	if !d.sink.Configured() || req.Mode() == action.ModeSilent {
		return
	}
	d.sink.SendAsync(text)
}

func displayTitle(req action.Request) string {
	if title := strings.TrimSpace(req.Title); title != "" {
		return title
	}
	if url := strings.TrimSpace(req.URL); url != "" {
		return url
	}
	return "untitled"
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
