package ranking

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"smartaudit/internal/model"
)

// Item is one rule or reference document competing for a place in a prompt.
type Item struct {
	ID      string
	Title   string
	Content string
}

type scoredItem struct {
	item  Item
	score int
}

func FromRules(rules []model.Rule) []Item {
	items := make([]Item, 0, len(rules))
	for _, r := range rules {
		items = append(items, Item{ID: r.ID, Title: r.Title, Content: r.Content})
	}
	return items
}

func FromReferences(refs []model.ReferenceDocument) []Item {
	items := make([]Item, 0, len(refs))
	for _, r := range refs {
		items = append(items, Item{ID: r.ID, Title: r.Title, Content: r.Content})
	}
	return items
}

// Tokenize lower-cases the query and splits it on anything that is not a letter
// or digit. Latin tokens shorter than two runes are dropped; Han runs become bigrams.
func Tokenize(query string) []string {
	seen := map[string]bool{}
	var tokens []string
	add := func(tok string) {
		if tok != "" && !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}

	var run []rune
	runHan := false
	flush := func() {
		defer func() { run = run[:0] }()
		if len(run) == 0 {
			return
		}
		if !runHan {
			if len(run) >= 2 {
				add(string(run))
			}
			return
		}
		if len(run) == 1 {
			add(string(run))
			return
		}
		for i := 0; i+1 < len(run); i++ {
			add(string(run[i : i+2]))
		}
	}

	for _, r := range strings.ToLower(query) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		isHan := unicode.Is(unicode.Han, r)
		if len(run) > 0 && isHan != runHan {
			flush()
		}
		runHan = isHan
		run = append(run, r)
	}
	flush()
	return tokens
}

// Score counts the distinct tokens found in the item's title or content.
func Score(tokens []string, item Item) int {
	haystack := strings.ToLower(item.Title + "\n" + item.Content)
	score := 0
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			score++
		}
	}
	return score
}

// Rank keeps the items that share at least one token with query, best first,
// capped at limit. Ties keep their input order.
func Rank(query string, items []Item, limit int) []Item {
	tokens := Tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return nil
	}

	scored := make([]scoredItem, 0, len(items))
	for _, it := range items {
		if s := Score(tokens, it); s > 0 {
			scored = append(scored, scoredItem{item: it, score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	out := make([]Item, len(scored))
	for i := range scored {
		out[i] = scored[i].item
	}
	return out
}

// MatchBooleanQuery matches text against whitespace-separated terms. Every plain
// term must appear and no "-" prefixed term may appear, case-insensitively.
func MatchBooleanQuery(text, query string) bool {
	haystack := strings.ToLower(text)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if negated, ok := strings.CutPrefix(term, "-"); ok {
			if negated != "" && strings.Contains(haystack, negated) {
				return false
			}
			continue
		}
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// FormatSources renders the selected items as "[SOURCE: title] content" blocks.
func FormatSources(items []Item) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		blocks = append(blocks, "[SOURCE: "+it.Title+"] "+it.Content)
	}
	return strings.Join(blocks, "\n\n")
}

var sourceMarker = regexp.MustCompile(`\[SOURCE:\s*([^\]]*)\]`)

// StripSourceMarkers removes citation markers from an answer for display.
func StripSourceMarkers(answer string) string {
	stripped := sourceMarker.ReplaceAllString(answer, "")
	return strings.TrimSpace(strings.ReplaceAll(stripped, "  ", " "))
}

// ParseCitations lists the cited source titles in order of first appearance.
func ParseCitations(answer string) []string {
	seen := map[string]bool{}
	var titles []string
	for _, m := range sourceMarker.FindAllStringSubmatch(answer, -1) {
		title := strings.TrimSpace(m[1])
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		titles = append(titles, title)
	}
	return titles
}
