package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INVOICE_EXPORT_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from INVOICE_EXPORT_<SECTION>_<FIELD> variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []string
	num := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, EnvPrefix+key)
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, EnvPrefix+key)
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, EnvPrefix+key)
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if err := dst.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
				errs = append(errs, EnvPrefix+key)
			}
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = splitList(v)
		}
	}

	str("SERVER_HOST", &c.Server.Host)
	str("SERVER_PORT", &c.Server.Port)
	str("SERVER_BASE_PATH", &c.Server.BasePath)

	str("EXPORT_PAGE", &c.Export.Page)
	num("EXPORT_MARGIN_MM", &c.Export.MarginMM)
	num("EXPORT_SCALE", &c.Export.Scale)
	integer("EXPORT_QUALITY", &c.Export.Quality)
	str("EXPORT_ENCODING", &c.Export.Encoding)
	duration("EXPORT_SETTLE_DELAY", &c.Export.SettleDelay)
	integer("EXPORT_MAX_PAGES", &c.Export.MaxPages)
	num("EXPORT_REFERENCE_DPI", &c.Export.ReferenceDPI)
	str("EXPORT_VIEW_KEY", &c.Export.ViewKey)
	str("EXPORT_RENDERER", &c.Export.Renderer)
	str("EXPORT_ASSEMBLER", &c.Export.Assembler)

	str("CHROMIUM_EXEC_PATH", &c.Chromium.ExecPath)
	boolean("CHROMIUM_HEADLESS", &c.Chromium.Headless)
	duration("CHROMIUM_TIMEOUT", &c.Chromium.Timeout)
	list("CHROMIUM_ARGS", &c.Chromium.Args)

	str("SHARE_WEBHOOK_URL", &c.Share.Webhook.URL)
	str("SHARE_EMAIL_ADDR", &c.Share.Email.Addr)
	str("SHARE_EMAIL_USERNAME", &c.Share.Email.Username)
	str("SHARE_EMAIL_PASSWORD", &c.Share.Email.Password)
	str("SHARE_EMAIL_FROM", &c.Share.Email.From)
	list("SHARE_EMAIL_TO", &c.Share.Email.To)

	str("STORAGE_DIR", &c.Storage.Dir)
	str("STORAGE_BASE_URL", &c.Storage.BaseURL)
	str("STORAGE_SECRET", &c.Storage.Secret)
	duration("STORAGE_TTL", &c.Storage.TTL)
	integer("STORAGE_MAX_MEMORY_MB", &c.Storage.MaxMemoryMB)

	duration("SESSIONS_IDLE_TTL", &c.Sessions.IdleTTL)
	integer("SESSIONS_MAX", &c.Sessions.Max)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment overrides: %s", strings.Join(errs, ", "))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
