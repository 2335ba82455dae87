// Package httpapi serves the live window and Prometheus metrics over HTTP
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

// PointResponse is one window entry
type PointResponse struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature"`
}

// ThresholdResponse is one limit line
type ThresholdResponse struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// WindowResponse is the body of GET /api/window
type WindowResponse struct {
	Points     []PointResponse     `json:"points"`
	Thresholds []ThresholdResponse `json:"thresholds"`
	Total      int                 `json:"total"`
}

// LatestResponse is the body of GET /api/latest
type LatestResponse struct {
	Timestamp   time.Time `json:"timestamp"`
	Time        string    `json:"time"`
	Temperature float64   `json:"temperature"`
	Sequence    *uint16   `json:"sequence,omitempty"`
}

// Server wraps an Echo instance
type Server struct {
	echo       *echo.Echo
	live       *ports.LiveView
	thresholds []domain.Threshold
}

// NewServer registers the routes. gatherer may be nil to skip /metrics.
func NewServer(live *ports.LiveView, thresholds []domain.Threshold, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, live: live, thresholds: thresholds}

	e.GET("/healthz", s.health)
	e.GET("/api/window", s.window)
	e.GET("/api/latest", s.latest)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Listen binds addr without serving yet, so a busy port fails early
func (s *Server) Listen(addr string) (net.Addr, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.echo.Listener = l
	return l.Addr(), nil
}

// Serve handles requests on the bound listener until Shutdown
func (s *Server) Serve() error {
	if s.echo.Listener == nil {
		return errors.New("serve before listen")
	}
	log.Info().Str("addr", s.echo.Listener.Addr().String()).Msg("HTTP server listening")
	if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) window(c echo.Context) error {
	view := s.live.Snapshot()

	resp := WindowResponse{
		Points:     make([]PointResponse, len(view.Points)),
		Thresholds: make([]ThresholdResponse, len(s.thresholds)),
		Total:      view.Total,
	}
	for i, p := range view.Points {
		resp.Points[i] = PointResponse{Time: p.TimeLabel, Temperature: p.Temperature}
	}
	for i, th := range s.thresholds {
		resp.Thresholds[i] = ThresholdResponse{Label: th.Label, Value: th.Value}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) latest(c echo.Context) error {
	view := s.live.Snapshot()
	if !view.HasLatest {
		return echo.NewHTTPError(http.StatusNotFound, "no samples yet")
	}

	resp := LatestResponse{
		Timestamp:   view.Latest.Timestamp,
		Time:        view.Latest.TimeLabel(),
		Temperature: view.Latest.Temperature,
	}
	if view.Latest.HasSequence {
		seq := view.Latest.Sequence
		resp.Sequence = &seq
	}

	return c.JSON(http.StatusOK, resp)
}
