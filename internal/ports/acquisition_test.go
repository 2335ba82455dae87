package ports_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/csv"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/decoder"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/memory"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/mock"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

const header = "Number,Time / hh:mm:ss,Temperature / C\n"

var btPorts = mock.Enumerator{Ports: []domain.PortDescriptor{
	{Name: "COM3", Description: "Standard Serial over Bluetooth link A"},
	{Name: "COM4", Description: "Other"},
	{Name: "COM5", Description: "Standard Serial over Bluetooth link B"},
}}

// tickingDisplay pulls a fixed number of ticks, like a user closing the
// window after n refreshes
type tickingDisplay struct {
	ticks int
	views []domain.View
}

func (d *tickingDisplay) Run(ctx context.Context, src ports.Source) error {
	for i := 0; i < d.ticks; i++ {
		view, err := src.Tick(ctx)
		if err != nil {
			return err
		}
		d.views = append(d.views, view)
	}
	return nil
}

// framesLink serves a fixed number of 20 °C binary frames, then times out
type framesLink struct {
	frames int
	served int
	closed bool
}

func (l *framesLink) IsOpen() bool { return !l.closed }

func (l *framesLink) ReadFull(n int) ([]byte, error) {
	if l.served >= l.frames {
		return nil, fmt.Errorf("%w: read timeout", domain.ErrShortRead)
	}
	l.served++
	return decoder.EncodeFrame(373, uint16(l.served-1)), nil
}

func (l *framesLink) ReadLine() (string, error) {
	return "", errors.New("not a text link")
}

func (l *framesLink) Close() error {
	l.closed = true
	return nil
}

type linkOpener struct {
	link   ports.Link
	err    error
	opened []string
}

func (o *linkOpener) Open(name string) (ports.Link, error) {
	o.opened = append(o.opened, name)
	if o.err != nil {
		return nil, o.err
	}
	return o.link, nil
}

// spyExporter records what it was given and whether the link was already released
type spyExporter struct {
	link        ports.Link
	calls       int
	history     []domain.Sample
	linkWasOpen bool
	err         error
}

func (e *spyExporter) Export(history []domain.Sample) error {
	e.calls++
	e.history = history
	if e.link != nil {
		e.linkWasOpen = e.link.IsOpen()
	}
	return e.err
}

func newLoop(t *testing.T, cfg ports.LoopConfig, opener ports.Opener, exporter ports.Exporter, opts ...ports.LoopOption) *ports.AcquisitionLoop {
	t.Helper()
	if cfg.Keyword == "" {
		cfg.Keyword = "Standard Serial over Bluetooth link"
	}
	if cfg.Window.Size == 0 {
		cfg.Window = domain.WindowSpec{Mode: domain.WindowByCount, Size: 60}
	}
	return ports.NewAcquisitionLoop(cfg, ports.NewPortLocator(btPorts), opener, decoder.NewBinary(nil), exporter, opts...)
}

func readExport(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	return string(data)
}

func TestRun_StreamsAndExports(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_temp_vals.csv")
	opener := &linkOpener{link: mock.NewFakeLink(42, 2, 7)}
	archive := memory.NewSessionRepository()
	live := ports.NewLiveView()

	loop := newLoop(t, ports.LoopConfig{}, opener, csv.NewExporter(path),
		ports.WithArchive(archive), ports.WithLiveView(live))
	display := &tickingDisplay{ticks: 5}

	if err := loop.Run(context.Background(), display); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(opener.opened) != 1 || opener.opened[0] != "COM5" {
		t.Errorf("opened %v, want [COM5]", opener.opened)
	}
	if loop.State() != ports.StateClosed {
		t.Errorf("got state %s, want closed", loop.State())
	}

	lines := strings.Split(strings.TrimSuffix(readExport(t, path), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header + 5 rows, got %d lines", len(lines))
	}
	for i, line := range lines[1:] {
		if !strings.HasPrefix(line, fmt.Sprintf("%d,", i)) {
			t.Errorf("row %d not renumbered from 0: %q", i, line)
		}
	}

	if got := len(display.views); got != 5 {
		t.Fatalf("display saw %d views, want 5", got)
	}
	for i, v := range display.views {
		if len(v.Points) != i+1 {
			t.Errorf("view %d has %d points, want %d", i, len(v.Points), i+1)
		}
	}
	if live.Snapshot().Total != 5 {
		t.Errorf("live view total %d, want 5", live.Snapshot().Total)
	}

	session, err := archive.GetLatestSession(context.Background())
	if err != nil {
		t.Fatalf("GetLatestSession failed: %v", err)
	}
	if session.Port != "COM5" || session.Protocol != decoder.ProtocolBinary || len(session.Samples) != 5 {
		t.Errorf("unexpected session %+v", session)
	}
}

func TestRun_WindowIsBounded(t *testing.T) {
	exporter := &spyExporter{}
	opener := &linkOpener{link: mock.NewFakeLink(20, 0, 1)}
	loop := newLoop(t, ports.LoopConfig{Window: domain.WindowSpec{Mode: domain.WindowByCount, Size: 3}}, opener, exporter)
	display := &tickingDisplay{ticks: 10}

	if err := loop.Run(context.Background(), display); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	last := display.views[len(display.views)-1]
	if len(last.Points) != 3 {
		t.Errorf("window has %d points, want 3", len(last.Points))
	}
	if last.Total != 10 || len(exporter.history) != 10 {
		t.Errorf("history should keep all 10 samples, got total=%d exported=%d", last.Total, len(exporter.history))
	}
}

func TestRun_PortUnavailableExportsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	opener := &linkOpener{err: errors.New("access denied")}

	loop := newLoop(t, ports.LoopConfig{}, opener, csv.NewExporter(path))
	display := &tickingDisplay{ticks: 3}

	err := loop.Run(context.Background(), display)
	if !errors.Is(err, domain.ErrPortUnavailable) {
		t.Fatalf("expected ErrPortUnavailable, got %v", err)
	}
	if len(display.views) != 0 {
		t.Error("display must not run when the port failed to open")
	}
	if got := readExport(t, path); got != header {
		t.Errorf("expected header-only export, got %q", got)
	}
}

func TestRun_LinkNotOpen(t *testing.T) {
	link := &framesLink{closed: true}
	exporter := &spyExporter{}

	loop := newLoop(t, ports.LoopConfig{}, &linkOpener{link: link}, exporter)
	err := loop.Run(context.Background(), &tickingDisplay{ticks: 1})

	if !errors.Is(err, domain.ErrPortUnavailable) {
		t.Fatalf("expected ErrPortUnavailable, got %v", err)
	}
	if exporter.calls != 1 || len(exporter.history) != 0 {
		t.Errorf("expected one empty export, got calls=%d samples=%d", exporter.calls, len(exporter.history))
	}
}

func TestRun_NoDeviceFoundExportsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	opener := &linkOpener{link: &framesLink{frames: 1}}

	loop := ports.NewAcquisitionLoop(
		ports.LoopConfig{Keyword: "Arduino", Window: domain.WindowSpec{Mode: domain.WindowByCount, Size: 60}},
		ports.NewPortLocator(btPorts), opener, decoder.NewBinary(nil), csv.NewExporter(path))

	err := loop.Run(context.Background(), &tickingDisplay{ticks: 1})
	if !errors.Is(err, domain.ErrNoDeviceFound) {
		t.Fatalf("expected ErrNoDeviceFound, got %v", err)
	}
	if len(opener.opened) != 0 {
		t.Errorf("nothing should be opened, got %v", opener.opened)
	}
	if got := readExport(t, path); got != header {
		t.Errorf("expected header-only export, got %q", got)
	}
}

func TestRun_DecodeAbortExportsPartialHistory(t *testing.T) {
	link := &framesLink{frames: 2}
	exporter := &spyExporter{link: link}

	loop := newLoop(t, ports.LoopConfig{OnDecodeError: ports.DecodeAbort}, &linkOpener{link: link}, exporter)
	display := &tickingDisplay{ticks: 5}

	err := loop.Run(context.Background(), display)
	if !errors.Is(err, domain.ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
	if len(display.views) != 2 {
		t.Errorf("display saw %d views, want 2", len(display.views))
	}
	if len(exporter.history) != 2 {
		t.Errorf("exported %d samples, want 2", len(exporter.history))
	}
	if exporter.linkWasOpen {
		t.Error("link must be released before export")
	}
	if !link.closed {
		t.Error("link was not closed")
	}
}

func TestRun_DecodeSkipKeepsStreaming(t *testing.T) {
	link := &framesLink{frames: 2}
	exporter := &spyExporter{}

	loop := newLoop(t, ports.LoopConfig{OnDecodeError: ports.DecodeSkip}, &linkOpener{link: link}, exporter)
	display := &tickingDisplay{ticks: 5}

	if err := loop.Run(context.Background(), display); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(display.views) != 5 {
		t.Errorf("display saw %d views, want 5", len(display.views))
	}
	if len(exporter.history) != 2 {
		t.Errorf("exported %d samples, want 2", len(exporter.history))
	}
}

func TestRun_ExportFailureDoesNotMaskCause(t *testing.T) {
	exportErr := fmt.Errorf("%w: disk full", domain.ErrExportWrite)
	exporter := &spyExporter{err: exportErr}

	loop := newLoop(t, ports.LoopConfig{}, &linkOpener{err: errors.New("busy")}, exporter)
	err := loop.Run(context.Background(), &tickingDisplay{})

	if !errors.Is(err, domain.ErrPortUnavailable) {
		t.Errorf("expected the start-up failure to survive, got %v", err)
	}
	if !errors.Is(err, domain.ErrExportWrite) {
		t.Errorf("expected the export failure to be reported, got %v", err)
	}
}

func TestRun_ExportFailureAfterCleanClose(t *testing.T) {
	exporter := &spyExporter{err: fmt.Errorf("%w: read-only", domain.ErrExportWrite)}

	loop := newLoop(t, ports.LoopConfig{}, &linkOpener{link: &framesLink{frames: 3}}, exporter)
	err := loop.Run(context.Background(), &tickingDisplay{ticks: 3})

	if !errors.Is(err, domain.ErrExportWrite) {
		t.Errorf("expected ErrExportWrite, got %v", err)
	}
}

func TestLoop_RunsOnce(t *testing.T) {
	exporter := &spyExporter{}
	loop := newLoop(t, ports.LoopConfig{}, &linkOpener{link: &framesLink{frames: 10}}, exporter)
	ctx := context.Background()

	if _, err := loop.Tick(ctx); !errors.Is(err, ports.ErrLoopClosed) {
		t.Errorf("tick before open: expected ErrLoopClosed, got %v", err)
	}

	if err := loop.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if loop.State() != ports.StatePortOpen {
		t.Errorf("got state %s, want port-open", loop.State())
	}
	if err := loop.Open(); !errors.Is(err, ports.ErrLoopClosed) {
		t.Errorf("second open: expected ErrLoopClosed, got %v", err)
	}

	if _, err := loop.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if loop.State() != ports.StateStreaming {
		t.Errorf("got state %s, want streaming", loop.State())
	}

	if err := loop.Close(ctx, nil); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := loop.Tick(ctx); !errors.Is(err, ports.ErrLoopClosed) {
		t.Errorf("tick after close: expected ErrLoopClosed, got %v", err)
	}
	if err := loop.Close(ctx, nil); !errors.Is(err, ports.ErrLoopClosed) {
		t.Errorf("second close: expected ErrLoopClosed, got %v", err)
	}
	if exporter.calls != 1 {
		t.Errorf("exported %d times, want exactly once", exporter.calls)
	}
}

func TestLoop_TickHonoursCancelledContext(t *testing.T) {
	link := &framesLink{frames: 10}
	loop := newLoop(t, ports.LoopConfig{}, &linkOpener{link: link}, &spyExporter{})
	if err := loop.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := loop.Tick(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if link.served != 0 {
		t.Errorf("no frame should be read after cancellation, read %d", link.served)
	}
}

func TestLoop_ArchiveSurvivesCancelledContext(t *testing.T) {
	archive := memory.NewSessionRepository()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	loop := newLoop(t, ports.LoopConfig{}, &linkOpener{link: &framesLink{frames: 2}}, &spyExporter{},
		ports.WithArchive(archive), ports.WithClock(func() time.Time { return now }))

	ctx, cancel := context.WithCancel(context.Background())
	if err := loop.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := loop.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	cancel()

	if err := loop.Close(ctx, nil); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	session, err := archive.GetLatestSession(context.Background())
	if err != nil {
		t.Fatalf("session was not archived: %v", err)
	}
	if len(session.Samples) != 1 || !session.StartedAt.Equal(now) {
		t.Errorf("unexpected session %+v", session)
	}
}

type spyMetrics struct {
	samples      int
	decodeErrors map[string]int
	window       int
}

func (m *spyMetrics) ObserveSample(domain.Sample) { m.samples++ }
func (m *spyMetrics) SetWindowSize(n int)         { m.window = n }

func (m *spyMetrics) RecordDecodeError(kind string) {
	if m.decodeErrors == nil {
		m.decodeErrors = map[string]int{}
	}
	m.decodeErrors[kind]++
}

func TestRun_RecordsMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	metrics := &spyMetrics{}
	cfg := ports.LoopConfig{
		Window:        domain.WindowSpec{Mode: domain.WindowByCount, Size: 2},
		OnDecodeError: ports.DecodeSkip,
	}

	loop := newLoop(t, cfg, &linkOpener{link: &framesLink{frames: 3}}, csv.NewExporter(path), ports.WithMetrics(metrics))
	if err := loop.Run(context.Background(), &tickingDisplay{ticks: 5}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if metrics.samples != 3 {
		t.Errorf("got %d samples, want 3", metrics.samples)
	}
	if metrics.decodeErrors["short_read"] != 2 {
		t.Errorf("got decode errors %v, want 2 short reads", metrics.decodeErrors)
	}
	if metrics.window != 2 {
		t.Errorf("got window size %d, want 2", metrics.window)
	}
}
