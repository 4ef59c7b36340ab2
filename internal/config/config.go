// Package config loads runtime settings from the environment and an optional YAML file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys double as environment variable names and (lower-cased) YAML keys.
const (
	KeyDatabaseURL        = "DATABASE_URL"
	KeyViteHost           = "VITE_HOST"
	KeyVitePort           = "VITE_PORT"
	KeyUpstreamOrigin     = "UPSTREAM_ORIGIN"
	KeyAPIHost            = "API_HOST"
	KeyAPIPort            = "API_PORT"
	KeyLogLevel           = "LOG_LEVEL"
	KeyLogFormat          = "LOG_FORMAT"
	KeyShutdownTimeout    = "SHUTDOWN_TIMEOUT"
	KeyMaxListLimit       = "MAX_LIST_LIMIT"
	KeyCORSOrigins        = "CORS_ORIGINS"
	KeyCSRFKey            = "CSRF_KEY"
	KeyCSRFTrusted        = "CSRF_TRUSTED_ORIGINS"
	KeyDBMaxOpenConns     = "DB_MAX_OPEN_CONNS"
	KeySlowQueryMs        = "SLOW_QUERY_MS"
	KeySlowRequestMs      = "SLOW_REQUEST_MS"
	KeyStatusProbeTimeout = "STATUS_PROBE_TIMEOUT"
)

var defaults = map[string]any{
	KeyDatabaseURL:        "vitebridge.db",
	KeyViteHost:           "localhost",
	KeyVitePort:           8000,
	KeyUpstreamOrigin:     "",
	KeyAPIHost:            "",
	KeyAPIPort:            3000,
	KeyLogLevel:           "info",
	KeyLogFormat:          "json",
	KeyShutdownTimeout:    "15s",
	KeyMaxListLimit:       1000,
	KeyCORSOrigins:        "*",
	KeyCSRFKey:            "",
	KeyCSRFTrusted:        "",
	KeyDBMaxOpenConns:     25,
	KeySlowQueryMs:        50,
	KeySlowRequestMs:      200,
	KeyStatusProbeTimeout: "2s",
}

// Config is the validated runtime configuration.
type Config struct {
	DatabaseURL        string
	ViteHost           string
	VitePort           int
	UpstreamOrigin     string
	APIHost            string
	APIPort            int
	LogLevel           slog.Level
	LogFormat          string
	ShutdownTimeout    time.Duration
	MaxListLimit       int
	CORSOrigins        []string
	CSRFKey            []byte
	CSRFKeyGenerated   bool
	CSRFTrustedOrigins []string
	DBMaxOpenConns     int
	SlowQueryMs        int
	SlowRequestMs      int
	StatusProbeTimeout time.Duration
}

// Load reads defaults, then the YAML file at configFile (if non-empty),
// then the environment, which wins.
// PRE: configFile is "" or a readable YAML file
// POST: returns a validated Config or an error naming the bad key
func Load(configFile string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	var errs []error
	intKey := func(key string) int {
		raw := v.GetString(key)
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		}
		return n
	}
	durationKey := func(key string) time.Duration {
		raw := v.GetString(key)
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		}
		return d
	}

	cfg := Config{
		DatabaseURL:        strings.TrimSpace(v.GetString(KeyDatabaseURL)),
		ViteHost:           strings.TrimSpace(v.GetString(KeyViteHost)),
		VitePort:           intKey(KeyVitePort),
		UpstreamOrigin:     strings.TrimRight(strings.TrimSpace(v.GetString(KeyUpstreamOrigin)), "/"),
		APIHost:            strings.TrimSpace(v.GetString(KeyAPIHost)),
		APIPort:            intKey(KeyAPIPort),
		LogFormat:          strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
		ShutdownTimeout:    durationKey(KeyShutdownTimeout),
		MaxListLimit:       intKey(KeyMaxListLimit),
		CORSOrigins:        listKey(v, KeyCORSOrigins),
		CSRFTrustedOrigins: listKey(v, KeyCSRFTrusted),
		DBMaxOpenConns:     intKey(KeyDBMaxOpenConns),
		SlowQueryMs:        intKey(KeySlowQueryMs),
		SlowRequestMs:      intKey(KeySlowRequestMs),
		StatusProbeTimeout: durationKey(KeyStatusProbeTimeout),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyLogLevel, err))
	}

	key, generated, err := loadCSRFKey(v.GetString(KeyCSRFKey))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.CSRFKey, cfg.CSRFKeyGenerated = key, generated

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// listKey accepts either a YAML sequence or a comma-separated string.
func listKey(v *viper.Viper, key string) []string {
	var parts []string
	switch raw := v.Get(key).(type) {
	case []any:
		for _, p := range raw {
			parts = append(parts, fmt.Sprint(p))
		}
	case []string:
		parts = raw
	default:
		parts = strings.Split(v.GetString(key), ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadCSRFKey decodes a hex-encoded 32-byte key, or generates one when unset.
func loadCSRFKey(keyHex string) (key []byte, generated bool, err error) {
	if keyHex = strings.TrimSpace(keyHex); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, false, fmt.Errorf("%s must be 64 hex characters (32 bytes)", KeyCSRFKey)
		}
		return key, false, nil
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate CSRF key: %w", err)
	}
	return key, true, nil
}

// Validate checks ranges and cross-field rules.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyDatabaseURL))
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("%s: %d out of range", KeyAPIPort, c.APIPort))
	}
	if c.UpstreamOrigin != "" {
		u, err := url.Parse(c.UpstreamOrigin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: %q must be http(s)://host[:port]", KeyUpstreamOrigin, c.UpstreamOrigin))
		}
	} else {
		if c.ViteHost == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", KeyViteHost))
		}
		if c.VitePort < 1 || c.VitePort > 65535 {
			errs = append(errs, fmt.Errorf("%s: %d out of range", KeyVitePort, c.VitePort))
		}
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("%s: %q must be json or text", KeyLogFormat, c.LogFormat))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyShutdownTimeout))
	}
	if c.StatusProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyStatusProbeTimeout))
	}
	if c.MaxListLimit < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeyMaxListLimit))
	}
	if c.DBMaxOpenConns < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeyDBMaxOpenConns))
	}
	if c.SlowQueryMs < 1 || c.SlowRequestMs < 1 {
		errs = append(errs, fmt.Errorf("%s and %s must be at least 1", KeySlowQueryMs, KeySlowRequestMs))
	}
	if len(c.CSRFKey) != 32 {
		errs = append(errs, fmt.Errorf("%s must be 32 bytes", KeyCSRFKey))
	}
	return errors.Join(errs...)
}

// Upstream returns the dev server origin the proxy forwards to.
func (c Config) Upstream() string {
	if c.UpstreamOrigin != "" {
		return c.UpstreamOrigin
	}
	return "http://" + net.JoinHostPort(c.ViteHost, strconv.Itoa(c.VitePort))
}

// ListenAddr returns the host:port the server binds.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.APIHost, strconv.Itoa(c.APIPort))
}
