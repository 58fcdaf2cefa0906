package tui

import (
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tunview/tunview/internal/logs"
	"github.com/tunview/tunview/internal/tunnel"
	"github.com/tunview/tunview/pkg/events"
)

const (
	headerHeight = 2
	footerHeight = 2

	// Rapid resize events within this window collapse into one layout
	// application.
	resizeDebounce = 75 * time.Millisecond

	statusLifetime = 3 * time.Second
)

// Model is the single-threaded event loop: keyboard input, buffer-append
// notifications, resize ticks and the tunnel's exit event all arrive as
// tea.Msg values and are handled synchronously in Update.
type Model struct {
	spec tunnel.Spec
	sup  *tunnel.Supervisor
	buf  *logs.Buffer
	bus  *events.EventBus

	// updates bridges the bus (supervisor goroutines) into the loop.
	updates chan tea.Msg

	// Raw terminal size, and the tmux pane size when running inside a
	// multiplexer; the effective viewport is the smaller of the two.
	width, height      int
	paneCols, paneRows int
	inTmux             bool
	queryPane          tea.Cmd

	// Debounced resize state: the latest reported dimensions, applied
	// when the debounce tick fires.
	pendingWidth, pendingHeight int
	resizeArmed                 bool

	// Viewport geometry and scroll state. offset is the buffer index of
	// the top visible line, always within [0, max(0, len-rows)].
	cols, rows  int
	offset      int
	follow      bool
	seenEvicted uint64

	tunnelDown bool
	exitState  tunnel.State
	exitCode   int

	searching   bool
	searchInput textinput.Model
	searchQuery string

	status     string
	statusTime time.Time

	help help.Model
	keys keyMap
}

func NewModel(spec tunnel.Spec, sup *tunnel.Supervisor, buf *logs.Buffer, bus *events.EventBus) Model {
	searchInput := textinput.New()
	searchInput.Placeholder = "search logs..."
	searchInput.Prompt = "/"

	return Model{
		spec:        spec,
		sup:         sup,
		buf:         buf,
		bus:         bus,
		updates:     make(chan tea.Msg, 64),
		inTmux:      os.Getenv("TMUX") != "",
		queryPane:   queryPaneSize,
		follow:      true,
		searchInput: searchInput,
		help:        help.New(),
		keys:        keys,
	}
}

func (m Model) Init() tea.Cmd {
	if m.bus != nil {
		m.bus.Subscribe(events.LogLine, func(e events.Event) {
			m.notify(logUpdateMsg{})
		})
		m.bus.Subscribe(events.StreamError, func(e events.Event) {
			m.notify(logUpdateMsg{})
		})
		m.bus.Subscribe(events.TunnelExited, func(e events.Event) {
			state, _ := e.Data["state"].(string)
			code, _ := e.Data["code"].(int)
			m.deliver(tunnelExitMsg{state: tunnel.State(state), code: code})
		})
	}

	cmds := []tea.Cmd{m.waitForUpdates()}
	if m.inTmux {
		cmds = append(cmds, m.queryPane)
	}
	return tea.Batch(cmds...)
}

// notify is the lossy path for high-volume signals: if the channel is
// full an earlier notification already covers this one.
func (m Model) notify(msg tea.Msg) {
	select {
	case m.updates <- msg:
	default:
	}
}

// deliver never drops its message; the exit event must arrive exactly once.
func (m Model) deliver(msg tea.Msg) {
	select {
	case m.updates <- msg:
	default:
		go func() { m.updates <- msg }()
	}
}

func (m Model) waitForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.pendingWidth = msg.Width
		m.pendingHeight = msg.Height
		if m.width == 0 {
			// First size report: apply immediately so the initial
			// paint does not wait out the debounce window.
			m.width, m.height = msg.Width, msg.Height
			m.applyLayout()
			return m, nil
		}
		if !m.resizeArmed {
			m.resizeArmed = true
			cmds = append(cmds, tea.Tick(resizeDebounce, func(time.Time) tea.Msg {
				return layoutTickMsg{}
			}))
		}

	case layoutTickMsg:
		m.resizeArmed = false
		m.width, m.height = m.pendingWidth, m.pendingHeight
		m.applyLayout()
		if m.inTmux {
			cmds = append(cmds, m.queryPane)
		}

	case paneSizeMsg:
		if msg.err != nil {
			// Query failures keep the previous layout.
			m.setStatus("pane size query failed")
			break
		}
		m.paneCols, m.paneRows = msg.cols, msg.rows
		m.applyLayout()

	case logUpdateMsg:
		m.reconcileEviction()
		if m.follow {
			m.gotoBottom()
		}
		cmds = append(cmds, m.waitForUpdates())

	case tunnelExitMsg:
		m.exitState = msg.state
		m.exitCode = msg.code
		m.buf.Append(exitText(msg.state, msg.code), logs.SourceSystem)
		m.tunnelDown = true
		m.follow = false
		m.gotoBottom()
		cmds = append(cmds, m.waitForUpdates())

	case statusMsg:
		m.setStatus(msg.text)

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		sup := m.sup
		if sup == nil {
			return m, tea.Quit
		}
		return m, tea.Sequence(
			func() tea.Msg {
				if sup != nil {
					sup.Stop()
				}
				return nil
			},
			tea.Quit,
		)

	case key.Matches(msg, m.keys.Up):
		m.scrollBy(-1)

	case key.Matches(msg, m.keys.Down):
		m.scrollBy(1)

	case key.Matches(msg, m.keys.PageUp):
		m.scrollBy(-m.rows)

	case key.Matches(msg, m.keys.PageDown):
		m.scrollBy(m.rows)

	case key.Matches(msg, m.keys.Top):
		m.offset = 0
		m.follow = false

	case key.Matches(msg, m.keys.Bottom):
		m.gotoBottom()
		if !m.tunnelDown {
			m.follow = true
		}

	case key.Matches(msg, m.keys.Follow):
		if m.tunnelDown {
			m.setStatus("tunnel has ended")
			break
		}
		m.follow = !m.follow
		if m.follow {
			m.gotoBottom()
		}

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.NextHit):
		m.jumpToMatch(m.offset + 1)

	case key.Matches(msg, m.keys.Copy):
		local := m.spec.Local()
		if local == "" {
			m.setStatus("no local endpoint to copy")
			break
		}
		return m, copyEndpoint(local)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.searchInput.Blur()
		return m, nil

	case tea.KeyEnter:
		m.searchQuery = m.searchInput.Value()
		m.searching = false
		m.searchInput.Blur()
		m.jumpToMatch(m.offset)
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// scrollBy moves the viewport and drops out of follow mode: the user is
// reading history now.
func (m *Model) scrollBy(delta int) {
	m.offset = clamp(m.offset+delta, 0, m.maxOffset())
	m.follow = false
}

func (m *Model) gotoBottom() {
	m.offset = m.maxOffset()
}

func (m *Model) maxOffset() int {
	max := m.buf.Len() - m.rows
	if max < 0 {
		max = 0
	}
	return max
}

// reconcileEviction shifts the scroll offset when the buffer evicted
// lines, so the viewport keeps showing the same logical lines.
func (m *Model) reconcileEviction() {
	evicted := m.buf.Evicted()
	delta := int(evicted - m.seenEvicted)
	m.seenEvicted = evicted
	if delta > 0 && !m.follow {
		m.offset = clamp(m.offset-delta, 0, m.maxOffset())
	}
}

func (m *Model) applyLayout() {
	cols, rows := m.width, m.height
	if m.paneCols > 0 && m.paneCols < cols {
		cols = m.paneCols
	}
	if m.paneRows > 0 && m.paneRows < rows {
		rows = m.paneRows
	}

	m.cols = cols
	m.rows = rows - headerHeight - footerHeight
	if m.rows < 0 {
		m.rows = 0
	}

	m.offset = clamp(m.offset, 0, m.maxOffset())
	if m.follow {
		m.gotoBottom()
	}
}

func (m *Model) jumpToMatch(from int) {
	if m.searchQuery == "" {
		return
	}

	idx := m.buf.FindFrom(from, m.searchQuery)
	if idx < 0 && from > 0 {
		idx = m.buf.FindFrom(0, m.searchQuery)
		if idx >= 0 {
			m.setStatus("search wrapped")
		}
	}
	if idx < 0 {
		m.setStatus("no match: " + m.searchQuery)
		return
	}

	m.offset = clamp(idx, 0, m.maxOffset())
	m.follow = false
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusTime = time.Now()
}

func (m Model) currentStatus() string {
	if m.status != "" && time.Since(m.statusTime) < statusLifetime {
		return m.status
	}
	return ""
}

// hasUnseenOutput reports whether appended lines are below the viewport:
// the "new lines available" indicator while the user reads history.
func (m Model) hasUnseenOutput() bool {
	return !m.follow && m.offset < m.maxOffset()
}

func copyEndpoint(local string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(local); err != nil {
			return statusMsg{text: "copy failed: " + err.Error()}
		}
		return statusMsg{text: "copied " + local}
	}
}

func exitText(state tunnel.State, code int) string {
	st := tunnel.ExitStatus{State: state, Code: code}
	return "--- " + st.String() + " ---"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
