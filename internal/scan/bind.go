package scan

import (
	"fmt"
	"net"
)

// Checker reports whether a TCP port can currently be bound on the local
// host. Used as a last sanity check on suggested ports; a port can still be
// claimed by another process between the check and the caller's bind.
type Checker interface {
	IsFree(port uint16) bool
}

// TCPChecker probes by briefly binding the port on the loopback interface.
type TCPChecker struct{}

func (TCPChecker) IsFree(port uint16) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}
