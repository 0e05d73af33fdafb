package upstream

import (
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
)

// maxCards bounds how many cards a single completion can persist.
const maxCards = 50

// Card is one question/answer pair.
type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// CardSet is the structured payload flashcard completions are expected to
// return.
type CardSet struct {
	Title string `json:"title"`
	Cards []Card `json:"cards"`
}

var fencedBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\n(.*?)```")

// ParseCardSet attempts to recover a CardSet from completion text. Models
// wrap JSON in prose or code fences often enough that three strategies are
// tried in order: the raw text, the first fenced code block, then the span
// from the first '{' to the last '}'. The first strategy yielding a valid
// set wins.
func ParseCardSet(text string) (CardSet, bool) {
	for _, candidate := range parseCandidates(text) {
		if set, ok := decodeCardSet(candidate); ok {
			return set, true
		}
	}
	return CardSet{}, false
}

func parseCandidates(text string) []string {
	candidates := []string{strings.TrimSpace(text)}

	if m := fencedBlockPattern.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first >= 0 && last > first {
		candidates = append(candidates, text[first:last+1])
	}

	return candidates
}

func decodeCardSet(candidate string) (CardSet, bool) {
	if candidate == "" {
		return CardSet{}, false
	}

	var set CardSet
	if err := sonic.Unmarshal([]byte(candidate), &set); err != nil {
		return CardSet{}, false
	}

	set.Title = strings.TrimSpace(set.Title)
	if set.Title == "" {
		return CardSet{}, false
	}

	cards := make([]Card, 0, len(set.Cards))
	for _, card := range set.Cards {
		question := strings.TrimSpace(card.Question)
		answer := strings.TrimSpace(card.Answer)
		if question == "" || answer == "" {
			continue
		}
		cards = append(cards, Card{Question: question, Answer: answer})
		if len(cards) == maxCards {
			break
		}
	}
	if len(cards) == 0 {
		return CardSet{}, false
	}

	set.Cards = cards
	return set, true
}

// Render formats the set as the question/answer markdown the flashcard store
// persists.
func (s CardSet) Render() string {
	blocks := make([]string, 0, len(s.Cards))
	for _, card := range s.Cards {
		blocks = append(blocks, "**Q:** "+card.Question+"\n**A:** "+card.Answer)
	}
	return strings.Join(blocks, "\n\n")
}
