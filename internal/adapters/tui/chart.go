package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

const (
	defaultChartHeight = 12
	minChartWidth      = 10
	axisWidth          = 9 // "%6.1f │ "
	pointRune          = '•'
	thresholdRune      = '-'
)

// renderChart draws values left to right as a dot plot with the limits as
// dashed rows. The y range always covers both limits so they stay on screen.
func renderChart(values []float64, limits domain.Limits, width, height int) []string {
	if height <= 0 {
		height = defaultChartHeight
	}
	if width < minChartWidth {
		width = minChartWidth
	}

	lo, hi := chartRange(values, limits)
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	rowOf := func(v float64) int {
		r := int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
		return max(0, min(height-1, r))
	}

	for _, th := range limits.Thresholds() {
		r := rowOf(th.Value)
		for x := 0; x < width; x += 2 {
			grid[r][x] = thresholdRune
		}
	}

	for x, v := range resample(values, width) {
		grid[rowOf(v)][x] = pointRune
	}

	lines := make([]string, height)
	for i, row := range grid {
		label := strings.Repeat(" ", axisWidth-3)
		switch i {
		case 0:
			label = fmt.Sprintf("%6.1f", hi)
		case height - 1:
			label = fmt.Sprintf("%6.1f", lo)
		}
		lines[i] = label + " │ " + strings.TrimRight(string(row), " ")
	}
	return lines
}

func chartRange(values []float64, limits domain.Limits) (float64, float64) {
	lo := math.Min(limits.Min, limits.Max)
	hi := math.Max(limits.Min, limits.Max)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		lo--
		hi++
	}
	return lo, hi
}

// resample keeps at most width values, evenly spaced, always ending on the
// newest one
func resample(values []float64, width int) []float64 {
	if len(values) <= width {
		return values
	}
	out := make([]float64, width)
	step := float64(len(values)-1) / float64(width-1)
	for i := range out {
		out[i] = values[int(math.Round(float64(i)*step))]
	}
	return out
}
