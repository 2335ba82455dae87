// Package serial connects to the microcontroller over a serial port
package serial

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	bugserial "go.bug.st/serial"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

// errReadTimeout marks a read that returned no bytes before the port's read timeout
var errReadTimeout = errors.New("read timeout")

// timeoutReader turns the (0, nil) a serial port returns on timeout into an error,
// so buffered readers stop instead of spinning on empty reads
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil {
		return 0, errReadTimeout
	}
	return n, err
}

// Link is an open serial port
type Link struct {
	name   string
	port   io.ReadCloser
	reader *bufio.Reader

	mu     sync.Mutex
	closed bool
}

func newLink(name string, port io.ReadCloser) *Link {
	return &Link{
		name:   name,
		port:   port,
		reader: bufio.NewReader(timeoutReader{r: port}),
	}
}

// IsOpen reports whether Close has not been called yet
func (l *Link) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed && l.port != nil
}

// ReadFull reads exactly n bytes
func (l *Link) ReadFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(l.reader, buf)
	if err != nil {
		return buf[:got], l.readError(err, fmt.Sprintf("got %d of %d bytes", got, n))
	}
	return buf, nil
}

// ReadLine reads up to and including "\n" and returns the line without it.
// A "\r" before the newline is kept; the text format uses it as a value terminator.
func (l *Link) ReadLine() (string, error) {
	line, err := l.reader.ReadString('\n')
	if err != nil {
		return "", l.readError(err, fmt.Sprintf("partial line %q", line))
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func (l *Link) readError(err error, detail string) error {
	if errors.Is(err, errReadTimeout) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w on %s: %s", domain.ErrShortRead, l.name, detail)
	}
	return fmt.Errorf("read %s: %w", l.name, err)
}

// Close closes the port; closing twice is a no-op
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.port.Close()
}

// Opener opens serial ports at a fixed baud rate and read timeout
type Opener struct {
	baud        int
	readTimeout time.Duration
}

// NewOpener creates an opener. The firmware writes 8N1.
func NewOpener(baud int, readTimeout time.Duration) *Opener {
	return &Opener{baud: baud, readTimeout: readTimeout}
}

// Open opens the named port
func (o *Opener) Open(name string) (ports.Link, error) {
	mode := &bugserial.Mode{
		BaudRate: o.baud,
		DataBits: 8,
		StopBits: bugserial.OneStopBit,
		Parity:   bugserial.NoParity,
	}

	port, err := bugserial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}

	if err := port.SetReadTimeout(o.readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}

	return newLink(name, port), nil
}
