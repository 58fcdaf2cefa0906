package tui

import "github.com/tunview/tunview/internal/tunnel"

// logUpdateMsg signals that new lines landed in the buffer. It carries no
// payload: the next render slices the buffer, so dropped notifications
// coalesce for free.
type logUpdateMsg struct{}

// tunnelExitMsg is the supervisor's terminal event, bridged off the bus.
type tunnelExitMsg struct {
	state tunnel.State
	code  int
}

// layoutTickMsg fires when the resize debounce window closes.
type layoutTickMsg struct{}

// paneSizeMsg is the result of a tmux pane dimension query.
type paneSizeMsg struct {
	cols int
	rows int
	err  error
}

// statusMsg sets the transient status note in the footer.
type statusMsg struct {
	text string
}
