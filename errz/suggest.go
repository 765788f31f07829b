package errz

import (
	"sort"
	"strings"
)

// MaxSuggestions is the maximum number of names Suggest returns.
const MaxSuggestions = 3

// Suggest returns the candidates closest to name by edit distance, closest
// first and alphabetically among equals. Short names tolerate fewer edits.
func Suggest(name string, candidates []string) []string {
	if name == "" || len(candidates) == 0 {
		return nil
	}
	limit := 3
	switch {
	case len(name) <= 3:
		limit = 1
	case len(name) <= 5:
		limit = 2
	}

	type scored struct {
		name     string
		distance int
	}
	var matches []scored
	seen := map[string]bool{}
	for _, c := range candidates {
		if c == "" || c == name || seen[c] {
			continue
		}
		seen[c] = true
		if d := editDistance(name, c); d <= limit {
			matches = append(matches, scored{c, d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > MaxSuggestions {
		matches = matches[:MaxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

// Hint renders suggestions as a question for the user, or "" when there are
// none.
func Hint(suggestions []string) string {
	switch len(suggestions) {
	case 0:
		return ""
	case 1:
		return "Did you mean '" + suggestions[0] + "'?"
	}
	quoted := make([]string, len(suggestions))
	for i, s := range suggestions {
		quoted[i] = "'" + s + "'"
	}
	return "Did you mean one of: " + strings.Join(quoted, ", ") + "?"
}

// editDistance is the Levenshtein distance between a and b, computed over
// runes with two rows.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}
