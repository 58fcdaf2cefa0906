package tui

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// queryPaneSize asks tmux for the current pane dimensions. The terminal's
// own size reports the whole client window, which may be larger than the
// pane this process actually renders into.
func queryPaneSize() tea.Msg {
	out, err := exec.Command("tmux", "display-message", "-p", "#{pane_width} #{pane_height}").Output()
	if err != nil {
		return paneSizeMsg{err: err}
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) != 2 {
		return paneSizeMsg{err: fmt.Errorf("unexpected tmux output %q", out)}
	}

	cols, err := strconv.Atoi(fields[0])
	if err != nil {
		return paneSizeMsg{err: err}
	}
	rows, err := strconv.Atoi(fields[1])
	if err != nil {
		return paneSizeMsg{err: err}
	}

	return paneSizeMsg{cols: cols, rows: rows}
}
