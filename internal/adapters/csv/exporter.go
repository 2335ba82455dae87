// Package csv writes the session history as a flat CSV file
package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

// Header is the first row of every export
var Header = []string{"Number", "Time / hh:mm:ss", "Temperature / C"}

// Exporter writes the full history to a single file, replacing what was there
// This implements the ports.Exporter interface
type Exporter struct {
	path string
}

// NewExporter creates an exporter for path
func NewExporter(path string) *Exporter {
	return &Exporter{path: path}
}

// Path returns the export destination
func (e *Exporter) Path() string {
	return e.path
}

// Export truncates the file and writes the header plus one row per sample.
// Rows are numbered from 0 in history order; the protocol sequence is not used.
func (e *Exporter) Export(history []domain.Sample) error {
	f, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExportWrite, err)
	}

	if err := write(f, history); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %s: %v", domain.ErrExportWrite, e.path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrExportWrite, e.path, err)
	}

	log.Debug().Str("path", e.path).Int("rows", len(history)).Msg("output data written")
	return nil
}

func write(f *os.File, history []domain.Sample) error {
	w := csv.NewWriter(f)

	if err := w.Write(Header); err != nil {
		return err
	}
	for i, s := range history {
		row := []string{
			strconv.Itoa(i),
			FormatTimestamp(s.Timestamp),
			strconv.FormatFloat(s.Temperature, 'f', 1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// FormatTimestamp renders local wall-clock time with microseconds,
// leaving the fraction off when it is zero
func FormatTimestamp(t time.Time) string {
	if t.Nanosecond()/1000 == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.000000")
}
