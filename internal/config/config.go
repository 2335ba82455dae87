// Package config loads session settings from a TOML file
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/adapters/decoder"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

// Config is the full session configuration
type Config struct {
	Serial  SerialConfig  `toml:"serial"`
	Window  WindowConfig  `toml:"window"`
	Decode  DecodeConfig  `toml:"decode"`
	Display DisplayConfig `toml:"display"`
	Export  ExportConfig  `toml:"export"`
	GRPC    GRPCConfig    `toml:"grpc"`
	HTTP    HTTPConfig    `toml:"http"`
	Log     LogConfig     `toml:"log"`
}

type SerialConfig struct {
	Port        string   `toml:"port"` // explicit override, skips discovery
	Keyword     string   `toml:"keyword" validate:"required_without=Port"`
	Baud        int      `toml:"baud" validate:"gt=0"`
	ReadTimeout Duration `toml:"read_timeout" validate:"gt=0"`
	Protocol    string   `toml:"protocol" validate:"oneof=binary text"`
	Transport   string   `toml:"transport" validate:"oneof=serial mock"`
	TextMarker  string   `toml:"text_marker"`
	TextPrefix  string   `toml:"text_prefix"`
}

type WindowConfig struct {
	Size int    `toml:"size" validate:"gte=0"`
	Mode string `toml:"mode" validate:"oneof=count time"`
}

type DecodeConfig struct {
	OnError string `toml:"on_error" validate:"oneof=abort skip"`
}

type DisplayConfig struct {
	Mode    string   `toml:"mode" validate:"oneof=tui console"`
	Refresh Duration `toml:"refresh" validate:"gt=0"`
	TMax    float64  `toml:"t_max"`
	TMin    float64  `toml:"t_min" validate:"ltefield=TMax"`
}

type ExportConfig struct {
	Path    string `toml:"path" validate:"required"`
	Archive string `toml:"archive" validate:"oneof=none sqlite"`
	DBPath  string `toml:"db_path" validate:"required_if=Archive sqlite"`
}

type GRPCConfig struct {
	Addr    string `toml:"addr"` // empty disables the live service
	TLSCert string `toml:"tls_cert" validate:"required_with=TLSKey"`
	TLSKey  string `toml:"tls_key" validate:"required_with=TLSCert"`
	TLSCA   string `toml:"tls_ca"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"` // empty disables the status and metrics endpoint
}

type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
}

// Duration decodes TOML strings such as "200ms"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Keyword:     "Standard Serial over Bluetooth link",
			Baud:        115200,
			ReadTimeout: Duration{time.Second},
			Protocol:    decoder.ProtocolBinary,
			Transport:   "serial",
			TextMarker:  decoder.DefaultMarker,
			TextPrefix:  decoder.DefaultPrefix,
		},
		Window: WindowConfig{
			Size: 60,
			Mode: string(domain.WindowByCount),
		},
		Decode: DecodeConfig{
			OnError: string(ports.DecodeAbort),
		},
		Display: DisplayConfig{
			Mode:    "tui",
			Refresh: Duration{200 * time.Millisecond},
			TMax:    45,
			TMin:    40,
		},
		Export: ExportConfig{
			Path:    "all_temp_vals.csv",
			Archive: "none",
			DBPath:  "temperature.db",
		},
		Log: LogConfig{
			File:  "temperature_sensor.log",
			Level: "debug",
		},
	}
}

// Load decodes path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to stat config: %w", err)
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Validate checks every enumerated and numeric setting
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, errors.New(describe(fe)))
	}
	return errors.Join(errs...)
}

// WindowSpec converts the window settings, which Validate has checked
func (c Config) WindowSpec() domain.WindowSpec {
	mode, _ := domain.ParseWindowMode(c.Window.Mode)
	return domain.WindowSpec{Mode: mode, Size: c.Window.Size}
}

// Limits returns the display thresholds
func (c Config) Limits() domain.Limits {
	return domain.Limits{Max: c.Display.TMax, Min: c.Display.TMin}
}

// ConfigHome returns XDG_CONFIG_HOME or its usual fallback
func ConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// DefaultPath returns the default TOML config path
func DefaultPath() string {
	return filepath.Join(ConfigHome(), "temperature-service", "config.toml")
}

// Save writes cfg as TOML, creating the parent directory
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return f.Close()
}
