package tui

import (
	"strings"
	"testing"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

func TestRenderChart_Dimensions(t *testing.T) {
	lines := renderChart([]float64{41, 42, 43}, limits, 30, 8)
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8", len(lines))
	}
	for i, line := range lines {
		if !strings.Contains(line, " │ ") {
			t.Errorf("line %d has no axis: %q", i, line)
		}
	}
}

func TestRenderChart_RangeCoversLimits(t *testing.T) {
	lines := renderChart([]float64{42}, limits, 20, 6)

	if !strings.HasPrefix(lines[0], "  45.0") {
		t.Errorf("top label = %q, want 45.0", lines[0])
	}
	if !strings.HasPrefix(lines[5], "  40.0") {
		t.Errorf("bottom label = %q, want 40.0", lines[5])
	}
	// both limits sit on the edges as dashed rows
	if !strings.Contains(lines[0], "- -") || !strings.Contains(lines[5], "- -") {
		t.Errorf("expected dashed limit rows:\n%s", strings.Join(lines, "\n"))
	}
}

func TestRenderChart_ExtremesOnEdges(t *testing.T) {
	lines := renderChart([]float64{30, 50}, limits, 20, 5)

	if !strings.HasPrefix(lines[0], "  50.0") || !strings.HasPrefix(lines[4], "  30.0") {
		t.Fatalf("unexpected range:\n%s", strings.Join(lines, "\n"))
	}
	if !strings.ContainsRune(lines[0], pointRune) {
		t.Error("max value should be plotted on the top row")
	}
	if !strings.ContainsRune(lines[4], pointRune) {
		t.Error("min value should be plotted on the bottom row")
	}
}

func TestRenderChart_Empty(t *testing.T) {
	lines := renderChart(nil, domain.Limits{Max: 20, Min: 20}, 0, 0)
	if len(lines) != defaultChartHeight {
		t.Fatalf("got %d lines, want %d", len(lines), defaultChartHeight)
	}
	for _, line := range lines {
		if strings.ContainsRune(line, pointRune) {
			t.Errorf("empty chart plotted a point: %q", line)
		}
	}
}

func TestResample(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}

	got := resample(values, 10)
	if len(got) != 10 {
		t.Fatalf("got %d values, want 10", len(got))
	}
	if got[0] != 0 || got[9] != 99 {
		t.Errorf("resample should keep both ends, got %v", got)
	}

	short := resample(values[:5], 10)
	if len(short) != 5 {
		t.Errorf("short series should pass through, got %d values", len(short))
	}
}
