package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

// Display runs the Bubble Tea program until the user quits
// This implements the ports.Display interface
type Display struct {
	refresh time.Duration
	limits  domain.Limits
	opts    []tea.ProgramOption
}

// NewDisplay creates a full screen display
func NewDisplay(refresh time.Duration, limits domain.Limits, opts ...tea.ProgramOption) *Display {
	return &Display{refresh: refresh, limits: limits, opts: opts}
}

// Run blocks until the window is closed. Closing the window and cancelling
// ctx are both a normal end; a failed tick is returned.
func (d *Display) Run(ctx context.Context, src ports.Source) error {
	model := NewModel(ctx, src, d.refresh, d.limits)

	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, d.opts...)
	program := tea.NewProgram(model, opts...)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run terminal display: %w", err)
	}

	if err := model.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
