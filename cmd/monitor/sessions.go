package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/sqlite"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/config"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

var flagSessionID int64

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show an archived session, the latest one by default",
		Args:  cobra.NoArgs,
		RunE:  runSessionsCmd,
	}
	cmd.Flags().Int64Var(&flagSessionID, "id", 0, "session ID")
	cmd.Flags().StringVar(&flagDBPath, "db", config.Default().Export.DBPath, "SQLite archive path")
	return cmd
}

func runSessionsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	override(cmd, "db", &cfg.Export.DBPath, flagDBPath)

	// opening would create an empty database
	if _, err := os.Stat(cfg.Export.DBPath); err != nil {
		return fmt.Errorf("no archive at %s: %w", cfg.Export.DBPath, err)
	}

	repo, err := sqlite.NewSessionRepository(cfg.Export.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite archive %s: %w", cfg.Export.DBPath, err)
	}
	defer repo.Close()

	return printSession(cmd.Context(), cmd.OutOrStdout(), repo, flagSessionID)
}

// printSession writes a summary of session id, or of the latest session when id is 0
func printSession(ctx context.Context, w io.Writer, repo domain.SessionRepository, id int64) error {
	var (
		session *domain.Session
		err     error
	)
	if id > 0 {
		session, err = repo.GetSession(ctx, id)
	} else {
		session, err = repo.GetLatestSession(ctx)
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		if id > 0 {
			return fmt.Errorf("session %d: %w", id, err)
		}
		return fmt.Errorf("archive is empty: %w", err)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "session\t%d\n", session.ID)
	fmt.Fprintf(tw, "port\t%s\n", session.Port)
	fmt.Fprintf(tw, "protocol\t%s\n", session.Protocol)
	fmt.Fprintf(tw, "started\t%s\n", session.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "duration\t%s\n", session.Duration())
	fmt.Fprintf(tw, "samples\t%d\n", len(session.Samples))
	if len(session.Samples) > 0 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, s := range session.Samples {
			lo = math.Min(lo, s.Temperature)
			hi = math.Max(hi, s.Temperature)
		}
		last := session.Samples[len(session.Samples)-1]
		fmt.Fprintf(tw, "range\t%.1f .. %.1f °C\n", lo, hi)
		fmt.Fprintf(tw, "last\t%.1f °C at %s\n", last.Temperature, last.TimeLabel())
	}
	return tw.Flush()
}
