// Package diff synthesizes short "what changed" statements between two
// analysis texts.
//
// The comparison is a line-level set difference, not a sequence diff: a
// reordered or partially edited line counts as new. Callers only need a
// rough hint of what is new, and the contract (1 to 5 ordered statements,
// never empty) stays the same if a finer diff replaces this one.
package diff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// Synthesize returns the difference statements for current against
// previous. An empty previous means there is no earlier version.
func Synthesize(current, previous string) []string {
	if previous == "" {
		return []string{core.DiffFirstVersion}
	}
	if current == previous {
		return []string{core.DiffNoChange}
	}

	added := NewLines(current, previous)
	if len(added) == 0 {
		return []string{core.DiffEvolvedOnly}
	}

	if len(added) > core.MaxSynthesizedDifferences {
		added = added[:core.MaxSynthesizedDifferences]
	}
	out := make([]string, 0, len(added))
	for _, line := range added {
		out = append(out, fmt.Sprintf(core.DiffNewPointFmt, truncate(line, core.MaxDifferenceLength)))
	}
	return out
}

// NewLines returns the trimmed, non-blank lines of current that do not occur
// verbatim in previous, deduplicated, in order of first appearance.
func NewLines(current, previous string) []string {
	seen := make(map[string]struct{})
	for _, line := range lines(previous) {
		seen[line] = struct{}{}
	}

	var added []string
	for _, line := range lines(current) {
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		added = append(added, line)
	}
	return added
}

func lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
