// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package config loads and validates the Connectix server configuration.
//
// Values are layered, lowest precedence first: flag defaults, the YAML
// config file, flags set on the command line, then environment variables.
package config

import (
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/connectix/connectix/internal/logging"
)

// MinSecretLength is the minimum JWT signing secret length in bytes.
const MinSecretLength = 32

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Mail drivers.
const (
	MailLog  = "log"
	MailSMTP = "smtp"
)

// Config is the effective server configuration.
type Config struct {
	HTTPAddr    string `koanf:"http-addr" json:"http-addr,omitempty" yaml:"http-addr" jsonschema:"description=Public API listen address"`
	MetricsAddr string `koanf:"metrics-addr" json:"metrics-addr,omitempty" yaml:"metrics-addr" jsonschema:"description=Metrics and health listen address; empty disables"`
	BaseURL     string `koanf:"base-url" json:"base-url,omitempty" yaml:"base-url" jsonschema:"description=Public URL prefix for links sent by email"`

	Store       string `koanf:"store" json:"store,omitempty" yaml:"store" jsonschema:"enum=postgres,enum=memory"`
	DatabaseURL string `koanf:"database-url" json:"database-url,omitempty" yaml:"database-url"`
	AutoMigrate bool   `koanf:"auto-migrate" json:"auto-migrate,omitempty" yaml:"auto-migrate"`

	JWTSecret       string        `koanf:"jwt-secret" json:"jwt-secret,omitempty" yaml:"jwt-secret" jsonschema:"minLength=32"`
	SessionTTL      time.Duration `koanf:"session-ttl" json:"session-ttl,omitempty" yaml:"session-ttl" jsonschema:"type=string"`
	RegistrationTTL time.Duration `koanf:"registration-ttl" json:"registration-ttl,omitempty" yaml:"registration-ttl" jsonschema:"type=string"`
	ResetTTL        time.Duration `koanf:"reset-ttl" json:"reset-ttl,omitempty" yaml:"reset-ttl" jsonschema:"type=string"`

	CookieName   string        `koanf:"cookie-name" json:"cookie-name,omitempty" yaml:"cookie-name"`
	CookieMaxAge time.Duration `koanf:"cookie-max-age" json:"cookie-max-age,omitempty" yaml:"cookie-max-age" jsonschema:"type=string"`
	CookieSecure bool          `koanf:"cookie-secure" json:"cookie-secure,omitempty" yaml:"cookie-secure"`
	CORSOrigins  []string      `koanf:"cors-origins" json:"cors-origins,omitempty" yaml:"cors-origins"`

	TOTPIssuer string `koanf:"totp-issuer" json:"totp-issuer,omitempty" yaml:"totp-issuer"`

	MailDriver   string `koanf:"mail-driver" json:"mail-driver,omitempty" yaml:"mail-driver" jsonschema:"enum=log,enum=smtp"`
	MailFrom     string `koanf:"mail-from" json:"mail-from,omitempty" yaml:"mail-from"`
	SMTPHost     string `koanf:"smtp-host" json:"smtp-host,omitempty" yaml:"smtp-host"`
	SMTPPort     int    `koanf:"smtp-port" json:"smtp-port,omitempty" yaml:"smtp-port" jsonschema:"minimum=1,maximum=65535"`
	SMTPUsername string `koanf:"smtp-username" json:"smtp-username,omitempty" yaml:"smtp-username"`
	SMTPPassword string `koanf:"smtp-password" json:"smtp-password,omitempty" yaml:"smtp-password"`

	RateLimit  int           `koanf:"rate-limit" json:"rate-limit,omitempty" yaml:"rate-limit" jsonschema:"minimum=0,description=Requests per window per client IP; 0 disables"`
	RateWindow time.Duration `koanf:"rate-window" json:"rate-window,omitempty" yaml:"rate-window" jsonschema:"type=string"`
	RedisURL   string        `koanf:"redis-url" json:"redis-url,omitempty" yaml:"redis-url" jsonschema:"description=Shared rate limit counters; empty uses an in-process limiter"`

	TrustedProxies []string `koanf:"trusted-proxies" json:"trusted-proxies,omitempty" yaml:"trusted-proxies" jsonschema:"description=Proxy addresses or CIDRs whose X-Forwarded-For and X-Real-IP headers are honoured"`

	LogFormat       string        `koanf:"log-format" json:"log-format,omitempty" yaml:"log-format" jsonschema:"enum=json,enum=text"`
	LogLevel        string        `koanf:"log-level" json:"log-level,omitempty" yaml:"log-level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	ShutdownTimeout time.Duration `koanf:"shutdown-timeout" json:"shutdown-timeout,omitempty" yaml:"shutdown-timeout" jsonschema:"type=string"`
}

// Validate checks that the configuration is usable by serve.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return invalid("http-addr is required")
	}
	if c.JWTSecret == "" {
		return invalid("jwt-secret is required (set JWT_SECRET)")
	}
	if len(c.JWTSecret) < MinSecretLength {
		return invalid("jwt-secret must be at least %d bytes, got %d", MinSecretLength, len(c.JWTSecret))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("log-level must be debug, info, warn or error, got %q", c.LogLevel)
	}

	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return invalid("database-url is required for the postgres store (set DATABASE_URL)")
		}
	case StoreMemory:
	default:
		return invalid("store must be 'postgres' or 'memory', got %q", c.Store)
	}

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("base-url must be an absolute URL, got %q", c.BaseURL)
		}
	}

	for name, d := range map[string]time.Duration{
		"session-ttl":      c.SessionTTL,
		"registration-ttl": c.RegistrationTTL,
		"reset-ttl":        c.ResetTTL,
		"cookie-max-age":   c.CookieMaxAge,
		"rate-window":      c.RateWindow,
		"shutdown-timeout": c.ShutdownTimeout,
	} {
		if d <= 0 {
			return invalid("%s must be positive, got %s", name, d)
		}
	}

	if c.CookieName == "" {
		return invalid("cookie-name is required")
	}
	if c.RateLimit < 0 {
		return invalid("rate-limit must not be negative, got %d", c.RateLimit)
	}

	switch c.MailDriver {
	case MailLog:
	case MailSMTP:
		if c.SMTPHost == "" {
			return invalid("smtp-host is required for the smtp mail driver")
		}
		if c.MailFrom == "" {
			return invalid("mail-from is required for the smtp mail driver")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return invalid("smtp-port must be between 1 and 65535, got %d", c.SMTPPort)
		}
	default:
		return invalid("mail-driver must be 'log' or 'smtp', got %q", c.MailDriver)
	}

	if slices.Contains(c.CORSOrigins, "*") && len(c.CORSOrigins) > 1 {
		return invalid("cors-origins must not mix '*' with explicit origins")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is a
// single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, invalid("trusted-proxies entry %q is not an address or CIDR", raw)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, invalid("trusted-proxies entry %q is not an address or CIDR", raw)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Masked returns a copy with secrets replaced, suitable for printing.
func (c *Config) Masked() *Config {
	out := *c
	out.CORSOrigins = slices.Clone(c.CORSOrigins)
	out.TrustedProxies = slices.Clone(c.TrustedProxies)
	out.JWTSecret = mask(c.JWTSecret)
	out.SMTPPassword = mask(c.SMTPPassword)
	out.DatabaseURL = redactURL(c.DatabaseURL)
	out.RedisURL = redactURL(c.RedisURL)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// redactURL hides the password of a connection URL. Unparseable values are
// masked entirely.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return mask(raw)
	}
	return u.Redacted()
}

func invalid(format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").Errorf(format, args...)
}
