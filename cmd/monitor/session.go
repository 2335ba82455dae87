package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/console"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/csv"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/decoder"
	grpcAdapter "github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/grpc"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/httpapi"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/metrics"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/mock"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/serial"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/sqlite"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/tui"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/config"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
	"github.com/quentinrf/plant-monitor/services/temperature-service/pkg/tlsconfig"
)

const (
	mockPortName = "MOCK0"
	mockInterval = time.Second // the firmware prints once per second
)

func runSession(parent context.Context, cfg config.Config) error {
	exporter := csv.NewExporter(cfg.Export.Path)

	// Initialize logger
	logFile, err := setupLogging(cfg)
	if err != nil {
		return exportOnStartFailure(exporter, err)
	}
	defer logFile.Close()

	log.Info().
		Str("transport", cfg.Serial.Transport).
		Str("protocol", cfg.Serial.Protocol).
		Str("display", cfg.Display.Mode).
		Msg("starting temperature monitor")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames, err := decoder.New(cfg.Serial.Protocol, decoder.TextOptions{
		Marker: cfg.Serial.TextMarker,
		Prefix: cfg.Serial.TextPrefix,
	}, time.Now)
	if err != nil {
		return exportOnStartFailure(exporter, err)
	}

	opts := []ports.LoopOption{}

	// Initialize archive
	if cfg.Export.Archive == "sqlite" {
		repo, err := sqlite.NewSessionRepository(cfg.Export.DBPath)
		if err != nil {
			return exportOnStartFailure(exporter, fmt.Errorf("failed to open SQLite archive %s: %w", cfg.Export.DBPath, err))
		}
		defer repo.Close()
		opts = append(opts, ports.WithArchive(repo))
		log.Info().Str("db_path", cfg.Export.DBPath).Msg("initialized SQLite archive")
	}

	var live *ports.LiveView
	if cfg.GRPC.Addr != "" || cfg.HTTP.Addr != "" {
		live = ports.NewLiveView()
		opts = append(opts, ports.WithLiveView(live))
	}

	// Start the status and metrics endpoint
	if cfg.HTTP.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, ports.WithMetrics(metrics.New(reg)))

		srv := httpapi.NewServer(live, cfg.Limits().Thresholds(), reg)
		if _, err := srv.Listen(cfg.HTTP.Addr); err != nil {
			return exportOnStartFailure(exporter, err)
		}
		go func() {
			if err := srv.Serve(); err != nil {
				log.Error().Err(err).Msg("HTTP server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("HTTP server shutdown")
			}
		}()
	}

	// Start the live gRPC service
	if cfg.GRPC.Addr != "" {
		srv, err := serveLive(cfg, live)
		if err != nil {
			return exportOnStartFailure(exporter, err)
		}
		defer func() {
			srv.GracefulStop()
			log.Info().Msg("gRPC server stopped")
		}()
	}

	policy, _ := ports.ParseDecodePolicy(cfg.Decode.OnError)
	loop := ports.NewAcquisitionLoop(
		ports.LoopConfig{
			Port:          cfg.Serial.Port,
			Keyword:       cfg.Serial.Keyword,
			Window:        cfg.WindowSpec(),
			OnDecodeError: policy,
		},
		ports.NewPortLocator(newEnumerator(cfg)),
		newOpener(cfg),
		frames,
		exporter,
		opts...,
	)

	if err := loop.Run(ctx, newDisplay(cfg)); err != nil {
		return err
	}

	log.Info().Str("path", exporter.Path()).Msg("session finished")
	return nil
}

// exportOnStartFailure writes the header-only export for a session that
// failed before streaming, keeping cause as the primary error
func exportOnStartFailure(exporter *csv.Exporter, cause error) error {
	log.Error().Err(cause).Msg("failed to start session")
	if err := exporter.Export(nil); err != nil {
		log.Error().Err(err).Str("path", exporter.Path()).Msg("failed to export session")
		return errors.Join(cause, err)
	}
	return cause
}

func serveLive(cfg config.Config, live *ports.LiveView) (*grpc.Server, error) {
	var serverOpts []grpc.ServerOption

	files := tlsconfig.Files{Cert: cfg.GRPC.TLSCert, Key: cfg.GRPC.TLSKey, CA: cfg.GRPC.TLSCA}
	if files.Enabled() {
		tlsCfg, err := tlsconfig.LoadServerTLS(files)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(tlsCfg)))
		log.Info().Bool("mtls", files.CA != "").Msg("TLS enabled")
	} else {
		log.Warn().Msg("grpc.tls_cert not set, serving the live window without TLS")
	}

	listener, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
	}

	grpcServer := grpc.NewServer(serverOpts...)
	grpcAdapter.Register(grpcServer, grpcAdapter.NewLiveTelemetryHandler(live, cfg.Limits().Thresholds()))
	reflection.Register(grpcServer)

	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			log.Error().Err(err).Msg("gRPC server failed")
		}
	}()

	log.Info().Str("addr", listener.Addr().String()).Msg("gRPC server listening")
	return grpcServer, nil
}

func newEnumerator(cfg config.Config) ports.Enumerator {
	if cfg.Serial.Transport == "mock" {
		return mock.Enumerator{Ports: []domain.PortDescriptor{
			{Name: mockPortName, Description: cfg.Serial.Keyword + " (simulated)"},
		}}
	}
	return serial.Enumerator{}
}

func newOpener(cfg config.Config) ports.Opener {
	if cfg.Serial.Transport == "mock" {
		// 42±3 °C, around the default limits
		return mock.Opener{BaseValue: 42, Variation: 3, Seed: time.Now().UnixNano(), Interval: mockInterval}
	}
	return serial.NewOpener(cfg.Serial.Baud, cfg.Serial.ReadTimeout.Duration)
}

func newDisplay(cfg config.Config) ports.Display {
	if cfg.Display.Mode == "console" {
		return console.NewDisplay(cfg.Display.Refresh.Duration, cfg.Limits())
	}
	return tui.NewDisplay(cfg.Display.Refresh.Duration, cfg.Limits())
}
