package ports

import (
	"fmt"
	"net"
)

// Available reports whether addr:port can be bound locally. The tunnel's
// listen side is checked before ssh is launched, so a taken port fails
// fast with a clear error instead of a buried ssh diagnostic.
func Available(addr string, port int) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort(addr, fmt.Sprintf("%d", port)))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// CheckBind returns a descriptive error when the local bind is already
// taken.
func CheckBind(addr string, port int) error {
	if addr == "" || port == 0 {
		return nil
	}
	if !Available(addr, port) {
		return fmt.Errorf("local bind %s:%d is already in use", addr, port)
	}
	return nil
}
