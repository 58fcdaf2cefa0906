package logs

import (
	"strings"
	"sync"
	"time"
)

// Source tags a line with the stream it came from.
type Source string

const (
	SourceStdout Source = "stdout"
	SourceStderr Source = "stderr"
	SourceSystem Source = "system"
)

// Line is one decorated log line. Immutable once appended.
type Line struct {
	Seq    uint64
	Text   string
	Spans  []Span
	Source Source
	Time   time.Time
}

const DefaultCapacity = 2000

// Buffer is a bounded, append-only sequence of decorated lines. When full,
// the oldest line is evicted. A ring over a fixed slice keeps Append O(1).
// Safe for concurrent use: reader goroutines append while the TUI slices.
type Buffer struct {
	matcher *Matcher
	ring    []Line
	head    int // index of the oldest line
	count   int
	nextSeq uint64
	evicted uint64
	mu      sync.RWMutex
}

func NewBuffer(capacity int, matcher *Matcher) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if matcher == nil {
		matcher = NewMatcher("", "")
	}
	return &Buffer{
		matcher: matcher,
		ring:    make([]Line, capacity),
		nextSeq: 1,
	}
}

// Append classifies text, assigns the next sequence number and stores the
// line, evicting the oldest entry if the buffer is at capacity.
func (b *Buffer) Append(text string, source Source) Line {
	line := Line{
		Text:   text,
		Spans:  b.matcher.Scan(text),
		Source: source,
		Time:   time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	line.Seq = b.nextSeq
	b.nextSeq++

	if b.count == len(b.ring) {
		b.ring[b.head] = line
		b.head = (b.head + 1) % len(b.ring)
		b.evicted++
	} else {
		b.ring[(b.head+b.count)%len(b.ring)] = line
		b.count++
	}

	return line
}

// Slice returns up to count lines starting at start (0 = oldest retained
// line). Out-of-range bounds are clamped; only the requested window is
// copied, never the whole buffer.
func (b *Buffer) Slice(start, count int) []Line {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if start < 0 {
		start = 0
	}
	if start >= b.count || count <= 0 {
		return nil
	}
	if start+count > b.count {
		count = b.count - start
	}

	out := make([]Line, count)
	for i := 0; i < count; i++ {
		out[i] = b.ring[(b.head+start+i)%len(b.ring)]
	}
	return out
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int {
	return len(b.ring)
}

// FindFrom returns the index of the first line at or after start whose
// text contains query, case-insensitively, or -1. Scans in place under
// the read lock instead of copying the buffer out.
func (b *Buffer) FindFrom(start int, query string) int {
	if query == "" {
		return -1
	}
	query = strings.ToLower(query)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if start < 0 {
		start = 0
	}
	for i := start; i < b.count; i++ {
		text := b.ring[(b.head+i)%len(b.ring)].Text
		if strings.Contains(strings.ToLower(text), query) {
			return i
		}
	}
	return -1
}

// Evicted returns how many lines have been evicted since creation. The
// renderer uses the delta between two reads to shift its scroll offset,
// since index 0 moves forward one logical line per eviction.
func (b *Buffer) Evicted() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.evicted
}
