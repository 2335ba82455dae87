package mock

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/decoder"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

// noiseEvery is how often the simulated text firmware prints a status line
const noiseEvery = 5

// FakeLink simulates the microcontroller for development
// This implements the ports.Link interface
type FakeLink struct {
	mu        sync.Mutex
	rng       *rand.Rand
	baseValue float64
	variation float64
	seq       uint16
	lines     int
	pending   []byte
	closed    bool

	interval time.Duration // minimum time between readings, 0 for none
	last     time.Time
}

// NewFakeLink creates a link that serves both binary frames and text lines
// baseValue: average temperature in °C (e.g., 42 for a console outlet)
// variation: +/- range (e.g., 3 means 39-45)
func NewFakeLink(baseValue, variation float64, seed int64) *FakeLink {
	return &FakeLink{
		rng:       rand.New(rand.NewSource(seed)),
		baseValue: baseValue,
		variation: variation,
	}
}

// IsOpen reports whether Close has not been called
func (l *FakeLink) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed
}

// ReadFull returns the next n bytes of the binary stream
func (l *FakeLink) ReadFull(n int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, fmt.Errorf("%w: link closed", domain.ErrShortRead)
	}

	for len(l.pending) < n {
		l.pace()
		l.pending = append(l.pending, decoder.EncodeFrame(l.nextADC(), l.seq)...)
		l.seq++
	}
	out := l.pending[:n]
	l.pending = l.pending[n:]
	return out, nil
}

// ReadLine returns the next line of the text stream, with an occasional status line
func (l *FakeLink) ReadLine() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return "", fmt.Errorf("%w: link closed", domain.ErrShortRead)
	}

	l.lines++
	if l.lines%noiseEvery == 0 {
		return fmt.Sprintf("status: uptime=%ds\r", l.lines), nil
	}
	l.pace()
	return fmt.Sprintf("%s%.2f\r", decoder.DefaultPrefix, l.nextTemperature()), nil
}

// Close marks the link closed
func (l *FakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// pace blocks until interval has passed since the previous reading,
// like firmware that prints once per period
func (l *FakeLink) pace() {
	if l.interval <= 0 {
		return
	}
	if !l.last.IsZero() {
		if wait := l.interval - time.Since(l.last); wait > 0 {
			time.Sleep(wait)
		}
	}
	l.last = time.Now()
}

// nextTemperature returns base ± variation
func (l *FakeLink) nextTemperature() float64 {
	variance := (l.rng.Float64() - 0.5) * 2 * l.variation
	return l.baseValue + variance
}

// nextADC inverts the sensor transfer function for a simulated temperature
func (l *FakeLink) nextADC() uint16 {
	volts := l.nextTemperature()*0.0225 + 1.375
	adc := math.Round(volts * domain.MaxADC / 5.0)
	return uint16(math.Max(0, math.Min(domain.MaxADC, adc)))
}

// Opener hands out fake links regardless of port name
type Opener struct {
	BaseValue float64
	Variation float64
	Seed      int64
	Interval  time.Duration // time between readings, 0 serves them immediately
}

// Open implements ports.Opener
func (o Opener) Open(name string) (ports.Link, error) {
	link := NewFakeLink(o.BaseValue, o.Variation, o.Seed)
	link.interval = o.Interval
	return link, nil
}

// Enumerator reports a fixed set of ports
type Enumerator struct {
	Ports []domain.PortDescriptor
	Err   error
}

// ListPorts implements ports.Enumerator
func (e Enumerator) ListPorts() ([]domain.PortDescriptor, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([]domain.PortDescriptor, len(e.Ports))
	copy(out, e.Ports)
	return out, nil
}
