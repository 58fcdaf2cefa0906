package logs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFindsSingleLocalOccurrence(t *testing.T) {
	m := NewMatcher("127.0.0.1:8080", "172.18.0.2:5432")

	spans := m.Scan("connected 127.0.0.1:8080 -> remote")

	require.Len(t, spans, 1)
	assert.Equal(t, Span{Start: 10, End: 24, Tag: TagLocal}, spans[0])
}

func TestScanSpanTextMatchesTarget(t *testing.T) {
	m := NewMatcher("127.0.0.1:8080", "172.18.0.2:5432")

	tests := []struct {
		name string
		line string
	}{
		{"ssh listen line", "debug1: Local forwarding listening on 127.0.0.1:8080."},
		{"both endpoints", "forward 127.0.0.1:8080 => 172.18.0.2:5432 established"},
		{"repeated local", "127.0.0.1:8080 rebound to 127.0.0.1:8080"},
		{"no endpoints", "debug1: Authenticating to miniserver.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := m.Scan(tt.line)
			for _, s := range spans {
				text := tt.line[s.Start:s.End]
				switch s.Tag {
				case TagLocal:
					assert.Equal(t, "127.0.0.1:8080", text)
				case TagRemote:
					assert.Equal(t, "172.18.0.2:5432", text)
				default:
					t.Errorf("unexpected tag %q", s.Tag)
				}
			}
		})
	}
}

func TestScanBothEndpointsOrderedByOffset(t *testing.T) {
	m := NewMatcher("127.0.0.1:8080", "172.18.0.2:5432")

	spans := m.Scan("forward 172.18.0.2:5432 <= 127.0.0.1:8080")

	require.Len(t, spans, 2)
	assert.Equal(t, TagRemote, spans[0].Tag)
	assert.Equal(t, TagLocal, spans[1].Tag)
	assert.Less(t, spans[0].Start, spans[1].Start)
}

func TestScanNoOverlappingSpans(t *testing.T) {
	// The local target is a substring of the remote one; the longer match
	// claims the bytes first only if its target is scanned first, so verify
	// claimed ranges never intersect regardless.
	m := NewMatcher("127.0.0.1:80", "127.0.0.1:8080")

	spans := m.Scan("listening on 127.0.0.1:8080")

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			assert.False(t, a.Start < b.End && b.Start < a.End,
				"spans %v and %v overlap", a, b)
		}
	}
}

func TestScanCaseSensitive(t *testing.T) {
	m := NewMatcher("localhost:8080", "")

	assert.Empty(t, m.Scan("listening on LOCALHOST:8080"))
	assert.Len(t, m.Scan("listening on localhost:8080"), 1)
}

func TestScanEmptyTargetsSkipped(t *testing.T) {
	m := NewMatcher("", "")

	assert.Nil(t, m.Scan("anything at all 127.0.0.1:8080"))

	onlyRemote := NewMatcher("", "10.0.0.1:443")
	spans := onlyRemote.Scan("remote 10.0.0.1:443 up")
	require.Len(t, spans, 1)
	assert.Equal(t, TagRemote, spans[0].Tag)
}

func TestScanUnixSocketTargets(t *testing.T) {
	m := NewMatcher("/tmp/docker.sock", "/var/run/docker.sock")

	spans := m.Scan("debug1: Local forwarding listening on path /tmp/docker.sock.")

	require.Len(t, spans, 1)
	assert.Equal(t, TagLocal, spans[0].Tag)
}
