package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunview/tunview/internal/logs"
	"github.com/tunview/tunview/internal/tunnel"
)

func TestViewBeforeFirstSizeReport(t *testing.T) {
	m := NewModel(testTunnelSpec(), nil, logs.NewBuffer(10, nil), nil)
	assert.Equal(t, "Loading...", m.View())
}

func TestViewShowsTunnelEndpoints(t *testing.T) {
	m := newTestModel(t, 100)
	view := m.View()

	assert.Contains(t, view, "SSH Forward Tunnel")
	assert.Contains(t, view, "127.0.0.1:8080")
	assert.Contains(t, view, "analytics-web")
	assert.Contains(t, view, "miniserver.local")
}

func TestViewOccupiesViewportRows(t *testing.T) {
	m := newTestModel(t, 100)
	m = appendLines(m, 3)

	// Body rows are padded so the footer stays pinned regardless of how
	// few lines the buffer holds.
	rows := strings.Split(m.View(), "\n")
	assert.Len(t, rows, headerHeight+m.rows+footerHeight)
}

func TestViewShowsOnlyVisibleWindow(t *testing.T) {
	m := newTestModel(t, 100)
	m = appendLines(m, 25)
	m = press(m, "home")

	view := m.View()
	assert.Contains(t, view, "line-0")
	assert.NotContains(t, view, "line-15")
}

func TestViewNewOutputIndicator(t *testing.T) {
	m := newTestModel(t, 100)
	m = appendLines(m, 25)

	assert.NotContains(t, m.View(), "new output below")

	m = press(m, "home")
	m = appendLines(m, 1)
	assert.Contains(t, m.View(), "new output below")
}

func TestViewExitStates(t *testing.T) {
	tests := []struct {
		name  string
		state tunnel.State
		code  int
		want  string
	}{
		{"exited", tunnel.StateExited, 1, "exited (1)"},
		{"killed", tunnel.StateKilled, -1, "terminated"},
		{"crashed", tunnel.StateCrashed, -1, "crashed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, 100)
			updated, _ := m.Update(tunnelExitMsg{state: tt.state, code: tt.code})
			m = updated.(Model)
			assert.Contains(t, m.View(), tt.want)
		})
	}
}

func TestRenderLineTruncatesToColumns(t *testing.T) {
	line := logs.Line{Text: "debug1: a very long diagnostic line from ssh", Source: logs.SourceStderr}

	out := renderLine(line, 12)
	assert.Equal(t, "debug1: a v…", out)

	// Short lines pass through untouched.
	short := logs.Line{Text: "ok", Source: logs.SourceStdout}
	assert.Equal(t, "ok", renderLine(short, 12))
}

func TestRenderLineKeepsSpanText(t *testing.T) {
	matcher := logs.NewMatcher("127.0.0.1:8080", "172.18.0.2:5432")
	buf := logs.NewBuffer(10, matcher)
	line := buf.Append("listening on 127.0.0.1:8080 for 172.18.0.2:5432", logs.SourceStderr)

	out := renderLine(line, 200)
	// Styling may insert escapes around the spans but the span text
	// itself stays intact.
	assert.Contains(t, out, "127.0.0.1:8080")
	assert.Contains(t, out, "172.18.0.2:5432")
	require.Contains(t, out, "listening on ")
}

func TestViewSearchPromptVisibleWhileSearching(t *testing.T) {
	m := newTestModel(t, 100)
	m = press(m, "/")

	assert.Contains(t, m.View(), "search logs...")
}

func TestPositionIndicator(t *testing.T) {
	m := newTestModel(t, 100)
	assert.Equal(t, "empty", m.renderPosition())

	m = appendLines(m, 25)
	assert.Equal(t, "16-25/25", m.renderPosition())

	m = press(m, "home")
	assert.Equal(t, "1-10/25", m.renderPosition())
}
