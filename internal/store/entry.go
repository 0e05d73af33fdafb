package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/openclaw/bridge/internal/action"
)

const (
	maxTitleChars     = 180
	maxSelectionChars = 280
	maxTags           = 8
	maxTagChars       = 24
	maxCardsTextChars = 12000

	truncationMarker = "…"
)

// entryTimestamp renders to the minute, UTC. The format is grep-relevant:
// external tooling keys off these lines.
func entryTimestamp(now time.Time) string {
	return now.Format("2006-01-02 15:04") + " UTC"
}

// singleLine collapses whitespace runs and caps length, appending the
// truncation marker when clipped. Empty results stay empty.
func singleLine(input string, maxChars int) string {
	value := strings.Join(strings.Fields(input), " ")
	if value == "" {
		return ""
	}
	runes := []rune(value)
	if len(runes) > maxChars {
		return string(runes[:maxChars]) + truncationMarker
	}
	return value
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"`", "\\`",
)

// escapeMarkdown neutralizes characters that would break the link and
// metadata syntax the store writes.
func escapeMarkdown(input string) string {
	return markdownEscaper.Replace(input)
}

// sanitizeTag slugs a tag to lowercase [a-z0-9-_], capped in length.
// Returns "" for tags with nothing left after cleaning.
func sanitizeTag(tag string) string {
	cleaned := strings.ToLower(strings.TrimSpace(tag))
	cleaned = strings.Join(strings.Fields(cleaned), "-")
	var b strings.Builder
	for _, r := range cleaned {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxTagChars {
		out = out[:maxTagChars]
	}
	return out
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if cleaned := sanitizeTag(tag); cleaned != "" {
			out = append(out, cleaned)
		}
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func safeTitle(title string) string {
	line := singleLine(title, maxTitleChars)
	if line == "" {
		line = "Untitled"
	}
	return escapeMarkdown(line)
}

// renderBookmarkEntry produces one markdown list item with indented metadata.
// The display line keeps the original URL untouched; canonicalization is for
// comparison only.
func renderBookmarkEntry(req action.Request, requestID string, now time.Time) string {
	title := safeTitle(req.Title)

	var lines []string
	if url := strings.TrimSpace(req.URL); url != "" {
		lines = append(lines, fmt.Sprintf("- %s — [%s](<%s>)", entryTimestamp(now), title, url))
	} else {
		lines = append(lines, fmt.Sprintf("- %s — %s", entryTimestamp(now), title))
	}

	lines = append(lines, "  - source: "+req.Source)

	if tags := cleanTags(req.Tags); len(tags) > 0 {
		lines = append(lines, "  - tags: #"+strings.Join(tags, " #"))
	}
	if snippet := singleLine(req.Selection, maxSelectionChars); snippet != "" {
		lines = append(lines, "  - note: "+escapeMarkdown(snippet))
	}
	if req.IdempotencyKey != "" {
		lines = append(lines, "  - idempotencyKey: "+req.IdempotencyKey)
	}
	lines = append(lines, "  - requestId: "+requestID)

	return strings.Join(lines, "\n")
}

// renderFlashcardEntry produces one markdown section with a blockquoted card
// body.
func renderFlashcardEntry(req action.Request, requestID string, cardsText string, now time.Time) string {
	lines := []string{
		fmt.Sprintf("## %s — %s", entryTimestamp(now), safeTitle(req.Title)),
		"- source: " + req.Source,
	}
	if url := strings.TrimSpace(req.URL); url != "" {
		lines = append(lines, "- url: <"+url+">")
	}
	if req.IdempotencyKey != "" {
		lines = append(lines, "- idempotencyKey: "+req.IdempotencyKey)
	}
	lines = append(lines,
		"- requestId: "+requestID,
		"",
		"### Cards",
		quotedBlock(capCardsText(cardsText)),
	)
	return strings.Join(lines, "\n")
}

func capCardsText(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) > maxCardsTextChars {
		return string(runes[:maxCardsTextChars]) + truncationMarker
	}
	return trimmed
}

// quotedBlock prefixes every line with "> "; blank lines become a bare ">".
func quotedBlock(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}
