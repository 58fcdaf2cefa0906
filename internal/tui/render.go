// Rendering for the log dashboard.
//
// Wrapping policy: lines longer than the viewport are truncated, ANSI
// aware, never wrapped. One buffer line always occupies exactly one
// screen row, which keeps the scroll arithmetic exact.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/tunview/tunview/internal/logs"
	"github.com/tunview/tunview/internal/tunnel"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("255"))

	headerParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Background(lipgloss.Color("255")).
				Bold(true)

	localSpanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	remoteSpanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			Bold(true)

	systemLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	statusRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusDownStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	indicatorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	subtleStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderBody(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := strings.Join([]string{
		headerStyle.Render("SSH Forward Tunnel "),
		headerParamStyle.Render(orUnknown(m.spec.Local())),
		headerStyle.Render("["),
		headerParamStyle.Render(m.spec.TargetName),
		headerStyle.Render("] => "),
		headerParamStyle.Render(orUnknown(m.spec.Remote())),
		headerStyle.Render("["),
		headerParamStyle.Render(m.spec.SSHHost),
		headerStyle.Render("]"),
	}, "")

	bar := headerStyle.Width(m.cols).Render("")
	title = truncate.String(title, uint(m.cols))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		overlay(title, bar),
		strings.Repeat("─", m.cols),
	)
}

// overlay keeps the styled title but lets the background bar fill the
// full header width when the title is shorter.
func overlay(title, bar string) string {
	tw := lipgloss.Width(title)
	bw := lipgloss.Width(bar)
	if tw >= bw {
		return title
	}
	return title + headerStyle.Render(strings.Repeat(" ", bw-tw))
}

func (m Model) renderBody() string {
	lines := m.buf.Slice(m.offset, m.rows)

	rendered := make([]string, m.rows)
	for i := range rendered {
		if i < len(lines) {
			rendered[i] = renderLine(lines[i], m.cols)
		}
	}
	return strings.Join(rendered, "\n")
}

// renderLine styles the highlighted spans and truncates to the viewport
// width.
func renderLine(line logs.Line, cols int) string {
	var out string

	if line.Source == logs.SourceSystem {
		out = systemLineStyle.Render(line.Text)
	} else {
		var b strings.Builder
		last := 0
		for _, span := range line.Spans {
			b.WriteString(line.Text[last:span.Start])
			b.WriteString(spanStyle(span.Tag).Render(line.Text[span.Start:span.End]))
			last = span.End
		}
		b.WriteString(line.Text[last:])
		out = b.String()
	}

	return truncate.StringWithTail(out, uint(cols), "…")
}

func spanStyle(tag logs.Tag) lipgloss.Style {
	if tag == logs.TagRemote {
		return remoteSpanStyle
	}
	return localSpanStyle
}

func (m Model) renderFooter() string {
	if m.searching {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			m.searchInput.View(),
			m.help.View(m.keys),
		)
	}

	parts := []string{m.renderState()}

	if m.follow {
		parts = append(parts, subtleStyle.Render("following"))
	}
	if m.hasUnseenOutput() {
		parts = append(parts, indicatorStyle.Render("▼ new output below"))
	}
	if note := m.currentStatus(); note != "" {
		parts = append(parts, note)
	}
	parts = append(parts, subtleStyle.Render(m.renderPosition()))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		truncate.String(strings.Join(parts, "  "), uint(m.cols)),
		m.help.View(m.keys),
	)
}

func (m Model) renderState() string {
	if !m.tunnelDown {
		return statusRunningStyle.Render("● running")
	}

	switch m.exitState {
	case tunnel.StateKilled:
		return statusDownStyle.Render("■ terminated")
	case tunnel.StateCrashed:
		return statusDownStyle.Render("■ crashed")
	default:
		return statusDownStyle.Render(fmt.Sprintf("■ exited (%d)", m.exitCode))
	}
}

func (m Model) renderPosition() string {
	total := m.buf.Len()
	if total == 0 {
		return "empty"
	}
	first := m.offset + 1
	last := m.offset + m.rows
	if last > total {
		last = total
	}
	return fmt.Sprintf("%d-%d/%d", first, last, total)
}

func orUnknown(endpoint string) string {
	if endpoint == "" {
		return "?"
	}
	return endpoint
}
