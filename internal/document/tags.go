package document

import (
	"regexp"
	"sort"
	"strings"
)

// TagLimits caps tag normalization: per-tag rune length and per-document count.
type TagLimits struct {
	MaxLength int
	MaxCount  int
}

func DefaultTagLimits() TagLimits { return TagLimits{MaxLength: 48, MaxCount: 20} }

var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeTags normalizes a tag list: internal whitespace runs collapse to a
// single space, results are trimmed, empties dropped, each tag truncated to
// lim.MaxLength runes, duplicates removed case-insensitively keeping the
// first-seen casing and insertion order, and the list capped at lim.MaxCount.
// Normalizing an already-normalized list yields the same list.
func SanitizeTags(tags []string, lim TagLimits) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		t := strings.TrimSpace(whitespaceRun.ReplaceAllString(raw, " "))
		if t == "" {
			continue
		}
		if runes := []rune(t); len(runes) > lim.MaxLength {
			// the cut can land just past a space; trim so a second pass
			// yields the same tag
			t = strings.TrimRight(string(runes[:lim.MaxLength]), " ")
			if t == "" {
				continue
			}
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
		if len(out) == lim.MaxCount {
			break
		}
	}
	return out
}

// TagVocabulary merges many tag lists into the aggregate vocabulary: each
// list sanitized, the union deduplicated case-insensitively keeping the
// first-seen casing, sorted lexicographically.
func TagVocabulary(lists [][]string, lim TagLimits) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, t := range SanitizeTags(list, lim) {
			key := strings.ToLower(t)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
