package remote

import (
	"fmt"
	"time"
)

// Transport names accepted by NewTransport.
const (
	TransportExec   = "exec"
	TransportNative = "native"
)

// NewTransport returns the transport registered under kind.
func NewTransport(kind string, connectTimeout time.Duration) (Transport, error) {
	switch kind {
	case TransportExec, "":
		return NewExecTransport(connectTimeout), nil
	case TransportNative:
		return NewNativeTransport(connectTimeout), nil
	default:
		return nil, fmt.Errorf("unknown remote transport %q", kind)
	}
}
