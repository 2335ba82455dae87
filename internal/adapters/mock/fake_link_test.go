package mock

import (
	"errors"
	"testing"
	"time"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/decoder"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

func TestFakeLink_BinaryFrames(t *testing.T) {
	link := NewFakeLink(42.0, 3.0, 1)
	d := decoder.NewBinary(nil)

	for i := 0; i < 50; i++ {
		s, err := d.Next(link)
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if s.Sequence != uint16(i) {
			t.Errorf("frame %d: got sequence %d", i, s.Sequence)
		}
		// ADC quantisation adds up to ~0.3 °C on top of the variation
		if s.Temperature < 38.5 || s.Temperature > 45.5 {
			t.Errorf("frame %d: temperature %v outside 42±3", i, s.Temperature)
		}
	}
}

func TestFakeLink_TextLines(t *testing.T) {
	link := NewFakeLink(20.0, 0, 1) // deterministic: always 20 °C
	d := decoder.NewText(decoder.TextOptions{}, nil)

	for i := 0; i < 10; i++ {
		s, err := d.Next(link)
		if err != nil {
			t.Fatalf("line %d: unexpected error: %v", i, err)
		}
		if s.Temperature != 20.0 {
			t.Errorf("line %d: got %v, want 20.0", i, s.Temperature)
		}
	}
	// 10 samples with a status line every fifth read
	if link.lines != 12 {
		t.Errorf("read %d lines, want 12", link.lines)
	}
}

func TestFakeLink_Closed(t *testing.T) {
	link := NewFakeLink(20.0, 0, 1)
	if err := link.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if link.IsOpen() {
		t.Error("expected link to be closed")
	}
	if _, err := link.ReadFull(4); !errors.Is(err, domain.ErrShortRead) {
		t.Errorf("expected ErrShortRead, got %v", err)
	}
	if _, err := link.ReadLine(); !errors.Is(err, domain.ErrShortRead) {
		t.Errorf("expected ErrShortRead, got %v", err)
	}
}

func TestEnumerator(t *testing.T) {
	e := Enumerator{Ports: []domain.PortDescriptor{{Name: "COM1", Description: "Communications Port"}}}
	ports, err := e.ListPorts()
	if err != nil || len(ports) != 1 {
		t.Fatalf("got %v, %v", ports, err)
	}

	boom := errors.New("boom")
	if _, err := (Enumerator{Err: boom}).ListPorts(); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestOpener_PacesReadings(t *testing.T) {
	const interval = 20 * time.Millisecond

	link, err := Opener{BaseValue: 20, Interval: interval}.Open("MOCK0")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	d := decoder.NewBinary(nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := d.Next(link); err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
	}
	// the first frame is immediate, the next two wait one interval each
	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Errorf("3 frames took %v, want at least %v", elapsed, 2*interval)
	}

	unpaced, _ := Opener{BaseValue: 20}.Open("MOCK0")
	start = time.Now()
	for i := 0; i < 100; i++ {
		if _, err := d.Next(unpaced); err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("unpaced link took %v for 100 frames", elapsed)
	}
}
