package ports

import (
	"context"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

// Link is an open byte-oriented channel to the microcontroller
// This is a PORT - adapters (serial, mock) will implement it
type Link interface {
	// IsOpen reports whether the underlying handle is usable
	IsOpen() bool

	// ReadFull blocks until exactly n bytes arrive.
	// Fewer bytes before the read timeout is domain.ErrShortRead.
	ReadFull(n int) ([]byte, error)

	// ReadLine blocks until a full line arrives and returns it without the trailing "\n".
	// Nothing arriving before the read timeout is domain.ErrShortRead.
	ReadLine() (string, error)

	// Close releases the handle
	Close() error
}

// Opener opens a Link by port name
type Opener interface {
	Open(name string) (Link, error)
}

// Enumerator lists the serial endpoints currently attached
type Enumerator interface {
	ListPorts() ([]domain.PortDescriptor, error)
}

// FrameDecoder turns one frame read from a Link into a Sample
// Each call consumes exactly one frame; callers loop.
type FrameDecoder interface {
	Next(link Link) (domain.Sample, error)

	// Protocol names the wire encoding, for logs and the archive
	Protocol() string
}

// Exporter writes the full session history once at shutdown
type Exporter interface {
	Export(history []domain.Sample) error
}

// Source is what a display pulls from on every refresh tick
type Source interface {
	// Tick runs one decode/append cycle and returns the current window
	Tick(ctx context.Context) (domain.View, error)
}

// Display renders the rolling window and owns the refresh cadence
// Run returns when the user closes the view or a Tick fails.
type Display interface {
	Run(ctx context.Context, src Source) error
}

// Metrics records acquisition progress for scraping
type Metrics interface {
	ObserveSample(s domain.Sample)
	RecordDecodeError(kind string)
	SetWindowSize(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveSample(domain.Sample) {}
func (nopMetrics) RecordDecodeError(string)    {}
func (nopMetrics) SetWindowSize(int)           {}
