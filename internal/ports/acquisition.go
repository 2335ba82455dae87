package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

// ErrLoopClosed is returned when the loop is driven after it has closed
var ErrLoopClosed = errors.New("acquisition loop is closed")

// DecodePolicy decides what a short read or malformed frame does to the session
type DecodePolicy string

const (
	// DecodeAbort ends streaming on the first decode failure and exports what was
	// collected. This is the default: a device that stops producing frames is
	// reported instead of silently leaving gaps in the history.
	DecodeAbort DecodePolicy = "abort"

	// DecodeSkip logs the failure and keeps streaming
	DecodeSkip DecodePolicy = "skip"
)

// ParseDecodePolicy validates a configured decode policy
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch DecodePolicy(s) {
	case DecodeAbort, DecodeSkip:
		return DecodePolicy(s), nil
	}
	return "", fmt.Errorf("unknown decode policy %q (want %q or %q)", s, DecodeAbort, DecodeSkip)
}

// State of the acquisition loop
type State int

const (
	StateIdle State = iota
	StatePortOpen
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePortOpen:
		return "port-open"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LoopConfig holds the session settings the loop needs
type LoopConfig struct {
	Port          string // explicit override, skips enumeration
	Keyword       string
	Window        domain.WindowSpec
	OnDecodeError DecodePolicy
}

// LoopOption configures optional collaborators
type LoopOption func(*AcquisitionLoop)

// WithArchive archives the session after export
func WithArchive(repo domain.SessionRepository) LoopOption {
	return func(l *AcquisitionLoop) { l.archive = repo }
}

// WithLiveView publishes every window snapshot to lv
func WithLiveView(lv *LiveView) LoopOption {
	return func(l *AcquisitionLoop) { l.live = lv }
}

// WithMetrics records samples, decode failures and the window size
func WithMetrics(m Metrics) LoopOption {
	return func(l *AcquisitionLoop) { l.metrics = m }
}

// WithClock overrides the wall clock used for windowing and session times
func WithClock(clock func() time.Time) LoopOption {
	return func(l *AcquisitionLoop) { l.clock = clock }
}

// AcquisitionLoop owns the link and the sample buffer for one session.
// It moves Idle -> PortOpen -> Streaming -> Closed exactly once.
// The display drives it through Tick; ticks never overlap.
type AcquisitionLoop struct {
	mu sync.Mutex

	cfg      LoopConfig
	locator  *PortLocator
	opener   Opener
	decoder  FrameDecoder
	exporter Exporter
	archive  domain.SessionRepository
	live     *LiveView
	metrics  Metrics
	clock    func() time.Time

	state     State
	link      Link
	port      domain.PortDescriptor
	buffer    *domain.WindowBuffer
	startedAt time.Time
	skipped   int
}

// NewAcquisitionLoop creates an idle loop
func NewAcquisitionLoop(cfg LoopConfig, locator *PortLocator, opener Opener, decoder FrameDecoder, exporter Exporter, opts ...LoopOption) *AcquisitionLoop {
	if cfg.OnDecodeError == "" {
		cfg.OnDecodeError = DecodeAbort
	}

	l := &AcquisitionLoop{
		cfg:      cfg,
		locator:  locator,
		opener:   opener,
		decoder:  decoder,
		exporter: exporter,
		metrics:  nopMetrics{},
		clock:    time.Now,
		state:    StateIdle,
		buffer:   domain.NewWindowBuffer(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current state
func (l *AcquisitionLoop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Run opens the port, hands the loop to display until it closes, then
// tears down. Export runs on every path, including a failed start.
func (l *AcquisitionLoop) Run(ctx context.Context, display Display) error {
	if err := l.Open(); err != nil {
		log.Error().Err(err).Msg("failed to start acquisition")
		return l.Close(ctx, err)
	}

	err := display.Run(ctx, l)
	if err != nil {
		log.Error().Err(err).Msg("streaming stopped")
	} else {
		log.Info().Msg("display closed")
	}

	return l.Close(ctx, err)
}

// Open locates and opens the serial endpoint
func (l *AcquisitionLoop) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateIdle {
		return fmt.Errorf("open in state %s: %w", l.state, ErrLoopClosed)
	}

	port, err := l.locator.Locate(l.cfg.Port, l.cfg.Keyword)
	if err != nil {
		return err
	}

	link, err := l.opener.Open(port.Name)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", domain.ErrPortUnavailable, port.Name, err)
	}
	if !link.IsOpen() {
		_ = link.Close()
		return fmt.Errorf("%w: %s is not open", domain.ErrPortUnavailable, port.Name)
	}

	l.link = link
	l.port = port
	l.state = StatePortOpen
	l.startedAt = l.clock()

	log.Info().
		Str("port", port.Name).
		Str("description", port.Description).
		Str("protocol", l.decoder.Protocol()).
		Msg("connected")

	return nil
}

// Tick decodes one frame, appends it and returns the current window.
// With DecodeSkip a decode failure returns the unchanged window and no error.
func (l *AcquisitionLoop) Tick(ctx context.Context) (domain.View, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StatePortOpen:
		l.state = StateStreaming
	case StateStreaming:
	default:
		return domain.View{}, fmt.Errorf("tick in state %s: %w", l.state, ErrLoopClosed)
	}

	if err := ctx.Err(); err != nil {
		return domain.View{}, err
	}

	sample, err := l.decoder.Next(l.link)
	if err != nil {
		l.metrics.RecordDecodeError(decodeErrorKind(err))
		if domain.IsDecodeError(err) && l.cfg.OnDecodeError == DecodeSkip {
			l.skipped++
			log.Warn().Err(err).Int("skipped", l.skipped).Msg("skipping frame")
			return l.publish(), nil
		}
		return domain.View{}, err
	}

	l.buffer.Append(sample)
	l.metrics.ObserveSample(sample)

	log.Debug().
		Float64("temperature", sample.Temperature).
		Uint16("sequence", sample.Sequence).
		Time("at", sample.Timestamp).
		Msg("sample")

	return l.publish(), nil
}

func (l *AcquisitionLoop) publish() domain.View {
	view := domain.NewView(l.buffer.Window(l.cfg.Window, l.clock()), l.buffer.Len())
	if l.live != nil {
		l.live.Publish(view)
	}
	l.metrics.SetWindowSize(len(view.Points))
	return view
}

func decodeErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrShortRead):
		return "short_read"
	case errors.Is(err, domain.ErrMalformedFrame):
		return "malformed"
	}
	return "link"
}

// Close releases the link, exports the history and archives the session.
// cause is the error that ended the session, if any. Export and archive
// failures are joined to it, never substituted for it.
func (l *AcquisitionLoop) Close(ctx context.Context, cause error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateClosed {
		return fmt.Errorf("close: %w", ErrLoopClosed)
	}
	l.state = StateClosed

	if l.link != nil {
		if err := l.link.Close(); err != nil {
			log.Warn().Err(err).Str("port", l.port.Name).Msg("failed to close port")
		}
		l.link = nil
	}

	history := l.buffer.History()
	errs := []error{cause}

	if err := l.exporter.Export(history); err != nil {
		log.Error().Err(err).Msg("failed to export session")
		errs = append(errs, err)
	} else {
		log.Info().Int("samples", len(history)).Msg("exported session")
	}

	if l.archive != nil {
		session := &domain.Session{
			Port:      l.port.Name,
			Protocol:  l.decoder.Protocol(),
			StartedAt: l.startedAt,
			EndedAt:   l.clock(),
			Samples:   history,
		}
		if session.StartedAt.IsZero() {
			session.StartedAt = session.EndedAt
		}
		// the session context may already be cancelled by a signal
		if err := l.archive.SaveSession(context.WithoutCancel(ctx), session); err != nil {
			log.Error().Err(err).Msg("failed to archive session")
			errs = append(errs, fmt.Errorf("archive session: %w", err))
		} else {
			log.Info().Int64("session_id", session.ID).Msg("archived session")
		}
	}

	return errors.Join(errs...)
}
