package tunnel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tunview/tunview/pkg/events"
)

// Executable is the tunneling command the supervisor shells out to.
const Executable = "ssh"

type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateExited   State = "exited"
	StateKilled   State = "killed"
	StateCrashed  State = "crashed"
)

// Terminal reports whether the state is absorbing. A terminated tunnel is
// never restarted; failures are surfaced to the user instead of retried.
func (s State) Terminal() bool {
	return s == StateExited || s == StateKilled || s == StateCrashed
}

// StreamSource tags a supervisor line with its origin.
type StreamSource int

const (
	StreamStdout StreamSource = iota
	StreamStderr
	StreamInternal
)

// Line is one raw output line from the child, tagged by origin.
// StreamInternal lines are synthesized by the supervisor itself
// (stream read errors).
type Line struct {
	Text   string
	Source StreamSource
}

// ExitStatus is the single terminal event of a supervised tunnel.
type ExitStatus struct {
	State State
	Code  int
	Err   error
}

func (e ExitStatus) String() string {
	switch e.State {
	case StateKilled:
		return "tunnel terminated"
	case StateCrashed:
		if e.Err != nil {
			return fmt.Sprintf("tunnel crashed: %v", e.Err)
		}
		return "tunnel crashed"
	default:
		return fmt.Sprintf("tunnel exited with code %d", e.Code)
	}
}

// LaunchError means the tunnel command could not be found or spawned.
// It is fatal: no interactive session starts after it.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("cannot launch %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Supervisor owns the tunnel child process: it spawns it, streams its
// combined output line by line and delivers exactly one exit event.
//
// State machine: starting -> running -> {exited, killed, crashed}.
type Supervisor struct {
	ID   string
	Spec Spec

	bus   *events.EventBus
	exe   string
	argv  []string
	grace time.Duration

	cmd           *exec.Cmd
	cancel        context.CancelFunc
	state         State
	stopRequested bool
	mu            sync.Mutex

	lines  chan Line
	done   chan ExitStatus
	exited chan struct{}
}

func NewSupervisor(spec Spec, bus *events.EventBus) *Supervisor {
	return &Supervisor{
		ID:    uuid.NewString(),
		Spec:  spec,
		bus:   bus,
		exe:   Executable,
		grace: 3 * time.Second,
		state: StateStarting,
		lines:  make(chan Line, 256),
		done:   make(chan ExitStatus, 1),
		exited: make(chan struct{}),
	}
}

// Lines returns the merged output stream. Each stream's own order is
// preserved; interleaving between stdout and stderr is best-effort. The
// channel is closed once both streams end.
func (s *Supervisor) Lines() <-chan Line {
	return s.lines
}

// Done yields the exit status. It is delivered exactly once and the
// channel is closed afterwards.
func (s *Supervisor) Done() <-chan ExitStatus {
	return s.done
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches the tunnel command. It returns a *LaunchError when the
// executable cannot be found or spawned.
func (s *Supervisor) Start(ctx context.Context) error {
	path, err := exec.LookPath(s.exe)
	if err != nil {
		s.mu.Lock()
		s.state = StateCrashed
		s.mu.Unlock()
		return &LaunchError{Command: s.exe, Err: err}
	}

	argv := s.argv
	if argv == nil {
		argv = s.Spec.Args()
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, path, argv...)
	cmd.Env = os.Environ()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return &LaunchError{Command: s.exe, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return &LaunchError{Command: s.exe, Err: err}
	}

	if err := cmd.Start(); err != nil {
		cancel()
		s.mu.Lock()
		s.state = StateCrashed
		s.mu.Unlock()
		return &LaunchError{Command: s.exe, Err: fmt.Errorf("failed to start %v: %w", cmd.Args, err)}
	}

	s.mu.Lock()
	s.cmd = cmd
	s.cancel = cancel
	s.state = StateRunning
	s.mu.Unlock()

	s.publish(events.TunnelStarted, map[string]interface{}{
		"target": s.Spec.TargetName,
		"host":   s.Spec.SSHHost,
		"cmd":    cmd.Args,
	})

	var readers sync.WaitGroup
	readers.Add(2)
	go s.streamLines(stdout, StreamStdout, &readers)
	go s.streamLines(stderr, StreamStderr, &readers)

	go s.reap(cmd, &readers)

	return nil
}

// streamLines reads one output stream line by line. A read error is
// reported as a single synthetic line instead of crashing the supervisor.
func (s *Supervisor) streamLines(r io.Reader, source StreamSource, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 256*1024)
	for scanner.Scan() {
		s.lines <- Line{Text: scanner.Text(), Source: source}
	}

	if err := scanner.Err(); err != nil {
		s.lines <- Line{
			Text:   fmt.Sprintf("stream closed: %v", err),
			Source: StreamInternal,
		}
		s.publish(events.StreamError, map[string]interface{}{"error": err.Error()})
	}
}

// reap waits for the readers to drain, collects the exit status and
// delivers the terminal event.
func (s *Supervisor) reap(cmd *exec.Cmd, readers *sync.WaitGroup) {
	readers.Wait()
	err := cmd.Wait()

	s.mu.Lock()
	status := ExitStatus{Code: 0, State: StateExited}
	switch {
	case s.stopRequested:
		status.State = StateKilled
		status.Code = -1
	case err == nil:
		// exited cleanly
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			status.Code = exitErr.ExitCode()
			if status.Code < 0 {
				// killed by a signal we did not send
				status.State = StateCrashed
				status.Err = err
			}
		} else {
			status.State = StateCrashed
			status.Code = -1
			status.Err = err
		}
	}
	s.state = status.State
	s.mu.Unlock()

	close(s.exited)
	close(s.lines)
	s.done <- status
	close(s.done)

	s.publish(events.TunnelExited, map[string]interface{}{
		"state": string(status.State),
		"code":  status.Code,
	})
}

// Stop requests graceful termination: interrupt first, escalate to a hard
// kill if the child does not exit within the grace period. Calling Stop on
// a tunnel that never started or already terminated is a no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.cmd == nil || s.stopRequested || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.stopRequested = true
	cmd := s.cmd
	cancel := s.cancel
	s.mu.Unlock()

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cancel()
		return
	}

	select {
	case <-s.exited:
	case <-time.After(s.grace):
		cancel()
	}
}

func (s *Supervisor) publish(typ events.EventType, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: typ, SessionID: s.ID, Data: data})
}
