// Package decoder implements the two telemetry wire formats
package decoder

import (
	"fmt"
	"time"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

// Protocol names a wire format
const (
	ProtocolBinary = "binary"
	ProtocolText   = "text"
)

// New returns the decoder for protocol. The choice is made once per session;
// formats are never sniffed or mixed at runtime.
func New(protocol string, text TextOptions, clock func() time.Time) (ports.FrameDecoder, error) {
	switch protocol {
	case ProtocolBinary:
		return NewBinary(clock), nil
	case ProtocolText:
		return NewText(text, clock), nil
	}
	return nil, fmt.Errorf("unknown protocol %q (want %q or %q)", protocol, ProtocolBinary, ProtocolText)
}
