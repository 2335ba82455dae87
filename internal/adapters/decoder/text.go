package decoder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

const (
	DefaultMarker = "Temperature"
	DefaultPrefix = "Temperature: "
	lineEnd       = "\r"
)

// TextOptions describes the line format, e.g. "Temperature: 23.45\r\n"
type TextOptions struct {
	Marker string // lines without it are ignored
	Prefix string // the value starts right after it
}

// Text decodes line-oriented telemetry
type Text struct {
	marker string
	prefix string
	clock  func() time.Time
}

// NewText creates a text line decoder, filling empty options with defaults
func NewText(opts TextOptions, clock func() time.Time) *Text {
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if clock == nil {
		clock = time.Now
	}
	return &Text{marker: opts.Marker, prefix: opts.Prefix, clock: clock}
}

// Protocol implements ports.FrameDecoder
func (d *Text) Protocol() string {
	return ProtocolText
}

// Next reads lines until one carries the marker and decodes it.
// There is no retry limit: a device that only ever sends other lines blocks
// here for good, and only the link's read timeout can end the wait.
// A matching line that does not parse is not retried.
func (d *Text) Next(link ports.Link) (domain.Sample, error) {
	for {
		line, err := link.ReadLine()
		if err != nil {
			return domain.Sample{}, err
		}
		if !strings.Contains(line, d.marker) {
			continue
		}
		at := d.clock()

		value, err := d.extract(line)
		if err != nil {
			return domain.Sample{}, err
		}
		return domain.NewTextSample(value, at)
	}
}

func (d *Text) extract(line string) (float64, error) {
	start := strings.Index(line, d.prefix)
	if start < 0 {
		return 0, fmt.Errorf("%w: missing %q in %q", domain.ErrMalformedFrame, d.prefix, line)
	}
	rest := line[start+len(d.prefix):]

	end := strings.Index(rest, lineEnd)
	if end < 0 {
		return 0, fmt.Errorf("%w: unterminated value in %q", domain.ErrMalformedFrame, line)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(rest[:end]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)
	}
	return value, nil
}
