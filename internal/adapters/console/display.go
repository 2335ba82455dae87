// Package console is a headless display that logs every refresh
package console

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

// Display pulls a sample every refresh interval and logs it
// This implements the ports.Display interface
type Display struct {
	refresh time.Duration
	limits  domain.Limits
}

// NewDisplay creates a headless display
func NewDisplay(refresh time.Duration, limits domain.Limits) *Display {
	return &Display{refresh: refresh, limits: limits}
}

// Run ticks until ctx is cancelled, which is how the user closes a headless
// session, or until a tick fails
func (d *Display) Run(ctx context.Context, src ports.Source) error {
	ticker := time.NewTicker(d.refresh)
	defer ticker.Stop()

	for {
		view, err := src.Tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		d.report(view)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (d *Display) report(view domain.View) {
	if !view.HasLatest {
		return
	}

	temp := view.Latest.Temperature
	event := log.Info()
	switch {
	case d.limits.TooHot(temp):
		event = log.Warn().Float64("t_max", d.limits.Max)
	case d.limits.TooCold(temp):
		event = log.Warn().Float64("t_min", d.limits.Min)
	}

	event.
		Float64("temperature", temp).
		Str("time", view.Latest.TimeLabel()).
		Uint16("frame", view.Latest.Sequence).
		Int("window", len(view.Points)).
		Int("total", view.Total).
		Msg("temperature")
}
