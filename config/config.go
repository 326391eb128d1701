// Package config loads the export server configuration: defaults, then an
// optional TOML file, then INVOICE_EXPORT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/goliatone/go-invoice-export/export"
)

// Config holds the server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Export   ExportConfig   `toml:"export"`
	Chromium ChromiumConfig `toml:"chromium"`
	Share    ShareConfig    `toml:"share"`
	Storage  StorageConfig  `toml:"storage"`
	Sessions SessionsConfig `toml:"sessions"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	BasePath string `toml:"base_path"`
}

// ExportConfig holds export pipeline settings.
type ExportConfig struct {
	Page         string   `toml:"page"`
	MarginMM     float64  `toml:"margin_mm"`
	Scale        float64  `toml:"scale"`
	Quality      int      `toml:"quality"`
	Encoding     string   `toml:"encoding"`
	SettleDelay  Duration `toml:"settle_delay"`
	MaxPages     int      `toml:"max_pages"`
	ReferenceDPI float64  `toml:"reference_dpi"`
	ViewKey      string   `toml:"view_key"`
	Renderer     string   `toml:"renderer"`
	Assembler    string   `toml:"assembler"`
}

// ChromiumConfig configures the headless browser used by the chromium renderer.
type ChromiumConfig struct {
	ExecPath string   `toml:"exec_path"`
	Headless bool     `toml:"headless"`
	Timeout  Duration `toml:"timeout"`
	Args     []string `toml:"args"`
}

// ShareConfig selects the share target. With neither set, sharing is unsupported.
type ShareConfig struct {
	Webhook WebhookConfig `toml:"webhook"`
	Email   EmailConfig   `toml:"email"`
}

type WebhookConfig struct {
	URL     string            `toml:"url"`
	Headers map[string]string `toml:"headers"`
}

type EmailConfig struct {
	Addr     string   `toml:"addr"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	From     string   `toml:"from"`
	To       []string `toml:"to"`
}

// Enabled reports whether an SMTP target is configured.
func (e EmailConfig) Enabled() bool {
	return strings.TrimSpace(e.Addr) != ""
}

// StorageConfig configures stored downloads. An empty Dir keeps them in memory,
// bounded by MaxMemoryMB.
type StorageConfig struct {
	Dir         string   `toml:"dir"`
	BaseURL     string   `toml:"base_url"`
	Secret      string   `toml:"secret"`
	TTL         Duration `toml:"ttl"`
	MaxMemoryMB int      `toml:"max_memory_mb"`
}

// SessionsConfig bounds the editing sessions kept per X-Session-ID.
type SessionsConfig struct {
	IdleTTL Duration `toml:"idle_ttl"`
	Max     int      `toml:"max"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:     "localhost",
			Port:     "8080",
			BasePath: "/invoice",
		},
		Export: ExportConfig{
			Page:         export.PageA4.Name,
			Scale:        export.DefaultScale,
			Quality:      export.DefaultJPEGQuality,
			Encoding:     string(export.EncodingJPEG),
			SettleDelay:  Duration(export.DefaultSettleDelay),
			MaxPages:     export.DefaultMaxPages,
			ReferenceDPI: export.ReferenceDPI,
			ViewKey:      export.DefaultViewKey,
			Renderer:     "canvas",
			Assembler:    "fpdf",
		},
		Chromium: ChromiumConfig{
			Headless: true,
			Timeout:  Duration(30 * time.Second),
		},
		Storage: StorageConfig{
			TTL:         Duration(time.Hour),
			MaxMemoryMB: 64,
		},
		Sessions: SessionsConfig{
			IdleTTL: Duration(30 * time.Minute),
			Max:     1000,
		},
	}
}

// DefaultPath is read when no config path is given.
const DefaultPath = "invoice-export.toml"

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	return load(path, false)
}

// LoadOptional is Load for a default location: a missing file yields defaults.
func LoadOptional(path string) (Config, error) {
	return load(path, true)
}

func load(path string, optional bool) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c.Export,
		validation.Field(&c.Export.Page, validation.Required, validation.By(func(v any) error {
			if _, ok := export.LookupPageSize(v.(string)); !ok {
				return errors.New("unknown page size")
			}
			return nil
		})),
		validation.Field(&c.Export.MarginMM, validation.Min(0.0)),
		validation.Field(&c.Export.Scale, validation.Required, validation.Min(1.0), validation.Max(8.0)),
		validation.Field(&c.Export.Quality, validation.Min(1), validation.Max(100)),
		validation.Field(&c.Export.Encoding, validation.In(string(export.EncodingJPEG), string(export.EncodingPNG))),
		validation.Field(&c.Export.SettleDelay, validation.Min(Duration(0))),
		validation.Field(&c.Export.MaxPages, validation.Required, validation.Min(1)),
		validation.Field(&c.Export.ReferenceDPI, validation.Required, validation.Min(1.0)),
		validation.Field(&c.Export.Renderer, validation.In("canvas", "chromium")),
		validation.Field(&c.Export.Assembler, validation.In("fpdf", "canvas")),
	)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Required),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validation.ValidateStruct(&c.Storage,
		validation.Field(&c.Storage.TTL, validation.Min(Duration(0))),
		validation.Field(&c.Storage.MaxMemoryMB, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := validation.ValidateStruct(&c.Sessions,
		validation.Field(&c.Sessions.IdleTTL, validation.Min(Duration(0))),
		validation.Field(&c.Sessions.Max, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	if c.Share.Email.Enabled() {
		if err := validation.ValidateStruct(&c.Share.Email,
			validation.Field(&c.Share.Email.From, validation.Required),
			validation.Field(&c.Share.Email.To, validation.Required),
		); err != nil {
			return fmt.Errorf("share.email: %w", err)
		}
	}
	return nil
}

// Layout returns the configured page layout.
func (c Config) Layout() export.PageLayout {
	page, ok := export.LookupPageSize(c.Export.Page)
	if !ok {
		page = export.PageA4
	}
	return export.PageLayout{Page: page, Margins: export.UniformMargins(c.Export.MarginMM)}
}

// ExportOptions maps the export section onto exporter options.
func (c Config) ExportOptions() export.Options {
	opts := export.DefaultOptions()
	opts.Layout = c.Layout()
	opts.Scale = c.Export.Scale
	opts.ReferenceDPI = c.Export.ReferenceDPI
	opts.Encoding = export.Encoding(c.Export.Encoding)
	opts.Quality = c.Export.Quality
	opts.MaxPages = c.Export.MaxPages
	opts.SettleDelay = c.Export.SettleDelay.Std()
	return opts
}

// Address returns host:port.
func (c Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}
