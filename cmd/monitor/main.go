// Package main provides the CLI entrypoint for the temperature monitor.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/config"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

var (
	configPath string

	flagPort       string
	flagKeyword    string
	flagBaud       int
	flagProtocol   string
	flagTransport  string
	flagWindow     int
	flagWindowMode string
	flagOnError    string
	flagDisplay    string
	flagRefresh    time.Duration
	flagTMax       float64
	flagTMin       float64
	flagOutput     string
	flagArchive    string
	flagDBPath     string
	flagGRPCAddr   string
	flagHTTPAddr   string
	flagLogFile    string
	flagLogLevel   string
	flagInitConfig bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:          "temperature-monitor",
		Short:        "Stream, plot and export temperature telemetry from a serial device",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runSessionCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "TOML config file")

	f := rootCmd.Flags()
	f.StringVar(&flagPort, "port", defaults.Serial.Port, "serial port, skips discovery")
	f.StringVar(&flagKeyword, "keyword", defaults.Serial.Keyword, "port description keyword used for discovery")
	f.IntVar(&flagBaud, "baud", defaults.Serial.Baud, "baud rate")
	f.StringVar(&flagProtocol, "protocol", defaults.Serial.Protocol, "wire format: binary or text")
	f.StringVar(&flagTransport, "transport", defaults.Serial.Transport, "serial or mock")
	f.IntVar(&flagWindow, "window", defaults.Window.Size, "rolling window size")
	f.StringVar(&flagWindowMode, "window-mode", defaults.Window.Mode, "count (last N samples) or time (last N seconds)")
	f.StringVar(&flagOnError, "on-decode-error", defaults.Decode.OnError, "abort or skip")
	f.StringVar(&flagDisplay, "display", defaults.Display.Mode, "tui or console")
	f.DurationVar(&flagRefresh, "refresh", defaults.Display.Refresh.Duration, "display refresh interval")
	f.Float64Var(&flagTMax, "t-max", defaults.Display.TMax, "hot limit in °C")
	f.Float64Var(&flagTMin, "t-min", defaults.Display.TMin, "cold limit in °C")
	f.StringVar(&flagOutput, "output", defaults.Export.Path, "CSV file written when the session ends")
	f.StringVar(&flagArchive, "archive", defaults.Export.Archive, "session archive: none or sqlite")
	f.StringVar(&flagDBPath, "db", defaults.Export.DBPath, "SQLite archive path")
	f.StringVar(&flagGRPCAddr, "grpc-addr", defaults.GRPC.Addr, "serve the live window over gRPC on this address")
	f.StringVar(&flagHTTPAddr, "http-addr", defaults.HTTP.Addr, "serve the live window and /metrics over HTTP on this address")
	f.StringVar(&flagLogFile, "log-file", defaults.Log.File, "log file used while the terminal display is active")
	f.StringVar(&flagLogLevel, "log-level", defaults.Log.Level, "log level")

	rootCmd.AddCommand(newPortsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSessionsCmd())

	return rootCmd
}

func runSessionCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	return runSession(cmd.Context(), cfg)
}

// applyFlags lets explicitly set flags win over the config file
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	override(cmd, "port", &cfg.Serial.Port, flagPort)
	override(cmd, "keyword", &cfg.Serial.Keyword, flagKeyword)
	override(cmd, "baud", &cfg.Serial.Baud, flagBaud)
	override(cmd, "protocol", &cfg.Serial.Protocol, flagProtocol)
	override(cmd, "transport", &cfg.Serial.Transport, flagTransport)
	override(cmd, "window", &cfg.Window.Size, flagWindow)
	override(cmd, "window-mode", &cfg.Window.Mode, flagWindowMode)
	override(cmd, "on-decode-error", &cfg.Decode.OnError, flagOnError)
	override(cmd, "display", &cfg.Display.Mode, flagDisplay)
	override(cmd, "refresh", &cfg.Display.Refresh.Duration, flagRefresh)
	override(cmd, "t-max", &cfg.Display.TMax, flagTMax)
	override(cmd, "t-min", &cfg.Display.TMin, flagTMin)
	override(cmd, "output", &cfg.Export.Path, flagOutput)
	override(cmd, "archive", &cfg.Export.Archive, flagArchive)
	override(cmd, "db", &cfg.Export.DBPath, flagDBPath)
	override(cmd, "grpc-addr", &cfg.GRPC.Addr, flagGRPCAddr)
	override(cmd, "http-addr", &cfg.HTTP.Addr, flagHTTPAddr)
	override(cmd, "log-file", &cfg.Log.File, flagLogFile)
	override(cmd, "log-level", &cfg.Log.Level, flagLogLevel)
}

func override[T any](cmd *cobra.Command, name string, dst *T, value T) {
	if cmd.Flags().Changed(name) {
		*dst = value
	}
}

func newPortsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports and mark the one discovery would pick",
		Args:  cobra.NoArgs,
		RunE:  runPortsCmd,
	}
	cmd.Flags().StringVar(&flagKeyword, "keyword", config.Default().Serial.Keyword, "port description keyword used for discovery")
	cmd.Flags().StringVar(&flagTransport, "transport", config.Default().Serial.Transport, "serial or mock")
	return cmd
}

func runPortsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	override(cmd, "keyword", &cfg.Serial.Keyword, flagKeyword)
	override(cmd, "transport", &cfg.Serial.Transport, flagTransport)

	enum := newEnumerator(cfg)
	list, err := enum.ListPorts()
	if err != nil {
		return fmt.Errorf("failed to list ports: %w", err)
	}

	picked := ""
	if port, err := ports.NewPortLocator(enum).Locate("", cfg.Serial.Keyword); err == nil {
		picked = port.Name
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, p := range list {
		mark := " "
		if p.Name == picked {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", mark, p.Name, p.Description)
	}
	return w.Flush()
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
	cmd.Flags().BoolVar(&flagInitConfig, "init", false, "write the default config if the file does not exist")
	return cmd
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	if flagInitConfig {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), configPath)
	return nil
}
