// Package store implements the append-only markdown logs for bookmarks and
// flashcards. Entries are pure accumulation: never rewritten, never removed.
// Duplicate suppression happens before the write, first by idempotency key,
// then (bookmarks only) by canonical URL.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/bridge/internal/action"
	"github.com/openclaw/bridge/internal/canonical"
	"github.com/openclaw/bridge/internal/logging"
)

// DedupReason says which check suppressed a write.
type DedupReason string

const (
	DedupIdempotency DedupReason = "idempotency"
	DedupURL         DedupReason = "url"
)

// Result reports whether an append was suppressed as a duplicate.
type Result struct {
	Deduped bool
	Reason  DedupReason
}

type kind int

const (
	kindBookmark kind = iota
	kindFlashcard
)

// Store appends entries to one markdown file. The read-modify-append sequence
// is serialized per file path; two Stores pointed at the same path share a
// lock.
type Store struct {
	path   string
	kind   kind
	header string
	log    *logging.Logger

	// Now is the entry timestamp source. Overridable in tests.
	Now func() time.Time
}

// NewBookmarks creates the bookmark store variant.
func NewBookmarks(path string, log *logging.Logger) *Store {
	return &Store{path: path, kind: kindBookmark, header: "# BOOKMARKS", log: log, Now: time.Now}
}

// NewFlashcards creates the flashcard store variant.
func NewFlashcards(path string, log *logging.Logger) *Store {
	return &Store{path: path, kind: kindFlashcard, header: "# FLASHCARDS", log: log, Now: time.Now}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// pathLocks serializes appends per file path. Without this, two concurrent
// requests can both pass the duplicate-check read before either writes.
var pathLocks sync.Map // map[string]*sync.Mutex

func lockFor(path string) *sync.Mutex {
	key := filepath.Clean(path)
	mu, _ := pathLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// linkPattern matches the URL inside this store's own `[title](<url>)`
// markdown link syntax.
var linkPattern = regexp.MustCompile(`\]\(<([^>]+)>\)`)

// Append records one entry. Content is the flashcard body (ignored for
// bookmarks). Filesystem failures propagate as errors, distinct from the
// deduped results.
func (s *Store) Append(req action.Request, requestID string, content string) (Result, error) {
	mu := lockFor(s.path)
	mu.Lock()
	defer mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, fmt.Errorf("create store directory: %w", err)
		}
	}

	raw, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("read store %s: %w", s.path, err)
	}
	existing := string(raw)

	// Idempotency short-circuits before any URL comparison.
	if req.IdempotencyKey != "" && strings.Contains(existing, "idempotencyKey: "+req.IdempotencyKey) {
		s.log.Debug("append deduped",
			zap.String("path", s.path),
			zap.String("requestId", requestID),
			zap.String("reason", string(DedupIdempotency)))
		return Result{Deduped: true, Reason: DedupIdempotency}, nil
	}

	if s.kind == kindBookmark && req.URL != "" {
		if s.hasCanonicalDuplicate(existing, req.URL) {
			s.log.Debug("append deduped",
				zap.String("path", s.path),
				zap.String("requestId", requestID),
				zap.String("reason", string(DedupURL)))
			return Result{Deduped: true, Reason: DedupURL}, nil
		}
	}

	var entry string
	switch s.kind {
	case kindBookmark:
		entry = renderBookmarkEntry(req, requestID, s.Now().UTC())
	case kindFlashcard:
		entry = renderFlashcardEntry(req, requestID, content, s.Now().UTC())
	}

	var prefix string
	switch {
	case strings.TrimSpace(existing) == "":
		prefix = s.header + "\n\n"
	case strings.HasSuffix(existing, "\n"):
		prefix = "\n"
	default:
		prefix = "\n\n"
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("open store %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(prefix + entry + "\n"); err != nil {
		return Result{}, fmt.Errorf("append to store %s: %w", s.path, err)
	}

	s.log.Debug("entry appended",
		zap.String("path", s.path),
		zap.String("requestId", requestID))
	return Result{}, nil
}

// hasCanonicalDuplicate scans previously recorded link URLs and compares
// canonical forms. Unparsable URLs, incoming or recorded, never match.
func (s *Store) hasCanonicalDuplicate(existing, incoming string) bool {
	target, ok := canonical.URL(incoming)
	if !ok {
		return false
	}
	for _, match := range linkPattern.FindAllStringSubmatch(existing, -1) {
		if prior, ok := canonical.URL(match[1]); ok && prior == target {
			return true
		}
	}
	return false
}
