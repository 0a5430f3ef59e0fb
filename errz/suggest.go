package errz

import (
	"fmt"
	"slices"
	"strings"
)

// maxHints caps the number of names offered by Hint.
const maxHints = 3

// Hint returns a "did you mean" hint naming the candidates closest to a
// misspelled mnemonic, label or example name, or "" when none is close.
// Case is ignored, so "halt" finds "HALT".
func Hint(name string, candidates []string) string {
	matches := closest(name, candidates)
	switch len(matches) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("did you mean '%s'?", matches[0])
	}
	quoted := make([]string, len(matches))
	for i, m := range matches {
		quoted[i] = "'" + m + "'"
	}
	return "did you mean one of: " + strings.Join(quoted, ", ") + "?"
}

// closest returns up to maxHints candidates within the edit budget of name,
// nearest first and alphabetical among equals.
func closest(name string, candidates []string) []string {
	if name == "" {
		return nil
	}
	budget := editBudget(name)
	key := []rune(strings.ToLower(name))

	type match struct {
		name string
		dist int
	}
	var matches []match
	for _, c := range candidates {
		if c == "" || c == name {
			continue
		}
		if d := editDistance(key, []rune(strings.ToLower(c))); d <= budget {
			matches = append(matches, match{c, d})
		}
	}
	slices.SortFunc(matches, func(a, b match) int {
		if a.dist != b.dist {
			return a.dist - b.dist
		}
		return strings.Compare(a.name, b.name)
	})

	out := make([]string, 0, min(len(matches), maxHints))
	for _, m := range matches[:min(len(matches), maxHints)] {
		out = append(out, m.name)
	}
	return out
}

// editBudget is the largest edit distance accepted for a name. Short names
// get a tight budget so "JZ" does not suggest every two-letter mnemonic.
func editBudget(name string) int {
	switch n := len([]rune(name)); {
	case n <= 3:
		return 1
	case n <= 5:
		return 2
	default:
		return 3
	}
}

// editDistance is the Levenshtein distance between a and b, kept in a single
// row indexed by b.
func editDistance(a, b []rune) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			up := row[j]
			if a[i-1] == b[j-1] {
				row[j] = diag
			} else {
				row[j] = 1 + min(diag, up, row[j-1])
			}
			diag = up
		}
	}
	return row[len(b)]
}
