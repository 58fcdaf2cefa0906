package tunnel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrSessionActive means another tunview session already holds the lock
// for the same local bind.
var ErrSessionActive = errors.New("another session is already forwarding this local endpoint")

// SessionLock keeps two sessions from racing over the same local bind.
// The lock lives in the temp dir and is released on Unlock or process
// exit.
type SessionLock struct {
	fl *flock.Flock
}

// AcquireSessionLock takes a non-blocking file lock derived from the
// spec's local endpoint. Specs with no local endpoint (nothing to
// collide on) get a no-op lock.
func AcquireSessionLock(spec Spec) (*SessionLock, error) {
	local := spec.Local()
	if local == "" {
		return &SessionLock{}, nil
	}

	path := filepath.Join(os.TempDir(), "tunview-"+sanitizeLockName(local)+".lock")
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (%s)", ErrSessionActive, local)
	}

	return &SessionLock{fl: fl}, nil
}

func (l *SessionLock) Unlock() {
	if l.fl != nil {
		l.fl.Unlock()
	}
}

func sanitizeLockName(endpoint string) string {
	r := strings.NewReplacer("/", "_", ":", "-", "\\", "_")
	return r.Replace(endpoint)
}
