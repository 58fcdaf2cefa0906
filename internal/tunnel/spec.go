package tunnel

import "fmt"

// Spec describes one forward tunnel: where to bind locally, where to
// forward on the remote side, and which ssh host carries it. Built once
// by config resolution and never mutated.
type Spec struct {
	SSHHost    string
	TargetName string

	LocalAddress  string
	LocalPort     int
	RemoteAddress string
	RemotePort    int

	// Unix socket forwarding, mutually exclusive with the address/port
	// fields above.
	LocalSocket  string
	RemoteSocket string

	Description string

	// Verbose is the ssh verbosity suffix: "v", "vv" or "vvv".
	Verbose string
}

// IsSocket reports whether this spec forwards a unix socket instead of a
// TCP port.
func (s Spec) IsSocket() bool {
	return s.LocalSocket != ""
}

// Local renders the local endpoint for display and highlighting. Empty
// when the spec has no usable local endpoint (no highlighting happens
// then).
func (s Spec) Local() string {
	if s.LocalSocket != "" {
		return s.LocalSocket
	}
	if s.LocalAddress == "" || s.LocalPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", s.LocalAddress, s.LocalPort)
}

// Remote renders the remote endpoint for display and highlighting.
func (s Spec) Remote() string {
	if s.RemoteSocket != "" {
		return s.RemoteSocket
	}
	if s.RemoteAddress == "" || s.RemotePort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", s.RemoteAddress, s.RemotePort)
}

// Args builds the ssh argument vector:
//
//	-v -NL local_addr:local_port:remote_addr:remote_port host
//	-v -NL local_sock:remote_sock host
//
// -N skips the remote command, -L sets up the forward.
func (s Spec) Args() []string {
	verbose := s.Verbose
	if verbose == "" {
		verbose = "v"
	}

	var forward string
	if s.IsSocket() {
		forward = fmt.Sprintf("%s:%s", s.LocalSocket, s.RemoteSocket)
	} else {
		forward = fmt.Sprintf("%s:%d:%s:%d", s.LocalAddress, s.LocalPort, s.RemoteAddress, s.RemotePort)
	}

	return []string{"-" + verbose, "-NL", forward, s.SSHHost}
}
