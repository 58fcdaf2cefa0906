package logs

import "strings"

// Tag identifies which configured endpoint a highlighted span refers to.
type Tag string

const (
	TagLocal  Tag = "local-address"
	TagRemote Tag = "remote-address"
)

// Span marks a half-open [Start, End) byte range of a line's text.
type Span struct {
	Start int
	End   int
	Tag   Tag
}

type matchTarget struct {
	literal string
	tag     Tag
}

// Matcher scans raw lines for literal occurrences of the tunnel's local
// and remote endpoint strings. Targets are fixed at construction; matching
// is exact and case-sensitive.
type Matcher struct {
	targets []matchTarget
}

// NewMatcher builds a matcher for the given endpoint display strings.
// Empty strings (unset address, port 0) are skipped, so lines simply get
// no highlighting for that endpoint.
func NewMatcher(local, remote string) *Matcher {
	m := &Matcher{}
	if local != "" {
		m.targets = append(m.targets, matchTarget{literal: local, tag: TagLocal})
	}
	if remote != "" {
		m.targets = append(m.targets, matchTarget{literal: remote, tag: TagRemote})
	}
	return m
}

// Scan returns the highlighted spans for text, ordered by start offset.
// Overlapping candidates are resolved first-come: once a byte is claimed
// by a span no later target may claim it again.
func (m *Matcher) Scan(text string) []Span {
	if len(m.targets) == 0 || text == "" {
		return nil
	}

	var spans []Span
	for _, target := range m.targets {
		from := 0
		for {
			i := strings.Index(text[from:], target.literal)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(target.literal)
			if !overlaps(spans, start, end) {
				spans = append(spans, Span{Start: start, End: end, Tag: target.tag})
			}
			from = end
		}
	}

	sortSpans(spans)
	return spans
}

func overlaps(spans []Span, start, end int) bool {
	for _, s := range spans {
		if start < s.End && end > s.Start {
			return true
		}
	}
	return false
}

// Insertion sort; lines carry at most a handful of spans.
func sortSpans(spans []Span) {
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].Start < spans[j-1].Start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
}
