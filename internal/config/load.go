// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Default values for serve flags.
const (
	DefaultHTTPAddr        = ":8080"
	DefaultMetricsAddr     = "127.0.0.1:9100"
	DefaultStore           = StorePostgres
	DefaultSessionTTL      = time.Hour
	DefaultRegistrationTTL = 24 * time.Hour
	DefaultResetTTL        = 5 * time.Minute
	DefaultCookieName      = "token"
	DefaultCookieMaxAge    = 72 * time.Hour
	DefaultTOTPIssuer      = "Connectix"
	DefaultMailDriver      = MailLog
	DefaultMailFrom        = "no-reply@connectix.local"
	DefaultSMTPPort        = 587
	DefaultRateLimit       = 1000
	DefaultRateWindow      = time.Hour
	DefaultLogFormat       = "json"
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 10 * time.Second
)

// DefaultCORSOrigins is the default allow-list for browser clients.
var DefaultCORSOrigins = []string{"http://localhost:5174"}

// envOverrides maps environment variables to config keys. Environment wins
// over both the file and flags.
var envOverrides = map[string]string{
	"DATABASE_URL":  "database-url",
	"JWT_SECRET":    "jwt-secret",
	"SMTP_PASSWORD": "smtp-password",
	"REDIS_URL":     "redis-url",
	"BASE_URL":      "base-url",
}

// RegisterFlags adds every config key to fs as a flag with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", DefaultHTTPAddr, "public API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("base-url", "", "public URL prefix for links sent by email")
	fs.String("store", DefaultStore, "account store (postgres or memory)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.Bool("auto-migrate", false, "apply pending migrations on startup")
	fs.String("jwt-secret", "", "HS256 signing secret, at least 32 bytes")
	fs.Duration("session-ttl", DefaultSessionTTL, "lifetime of login session tokens")
	fs.Duration("registration-ttl", DefaultRegistrationTTL, "lifetime of registration tokens")
	fs.Duration("reset-ttl", DefaultResetTTL, "lifetime of password reset links")
	fs.String("cookie-name", DefaultCookieName, "session cookie name")
	fs.Duration("cookie-max-age", DefaultCookieMaxAge, "session cookie max age")
	fs.Bool("cookie-secure", false, "mark the session cookie Secure and send HSTS")
	fs.StringSlice("cors-origins", DefaultCORSOrigins, "allowed CORS origins")
	fs.String("totp-issuer", DefaultTOTPIssuer, "issuer shown in authenticator apps")
	fs.String("mail-driver", DefaultMailDriver, "mail driver (log or smtp)")
	fs.String("mail-from", DefaultMailFrom, "sender address")
	fs.String("smtp-host", "", "SMTP server host")
	fs.Int("smtp-port", DefaultSMTPPort, "SMTP server port")
	fs.String("smtp-username", "", "SMTP username")
	fs.String("smtp-password", "", "SMTP password")
	fs.Int("rate-limit", DefaultRateLimit, "requests per window per client IP (0 = disabled)")
	fs.Duration("rate-window", DefaultRateWindow, "rate limit window")
	fs.String("redis-url", "", "Redis URL for shared rate limiting (empty = in-process)")
	fs.StringSlice("trusted-proxies", nil, "proxy addresses or CIDRs allowed to set X-Forwarded-For")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.Duration("shutdown-timeout", DefaultShutdownTimeout, "graceful shutdown timeout")
}

// Loader builds a Config from flags, an optional YAML file and the
// environment.
type Loader struct {
	// EnvFile is loaded with godotenv before reading the environment. A
	// missing file is ignored. Empty skips it.
	EnvFile string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load reads configuration with the default Loader, which honours ./.env.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	return (&Loader{EnvFile: ".env"}).Load(flags, configFile)
}

// Load layers defaults, configFile, changed flags and environment overrides.
// The result is not validated.
func (l *Loader) Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	if l.EnvFile != "" {
		// godotenv never overrides variables already present in the process.
		if err := godotenv.Load(l.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", l.EnvFile).Wrap(err)
		}
	}
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	k := koanf.New(".")

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", configFile).Wrap(err)
		}
		if err := ValidateSchema(data); err != nil {
			return nil, oops.With("file", configFile).Wrap(err)
		}
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", configFile).Wrap(err)
		}
	}

	// posflag fills keys the file left unset from flag defaults, and lets
	// explicitly changed flags override the file.
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	for env, key := range envOverrides {
		if v := getenv(env); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("env", env).Wrap(err)
			}
		}
	}
	if port := getenv("PORT"); port != "" {
		if err := k.Set("http-addr", ":"+port); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("env", "PORT").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode config").Wrap(err)
	}
	return &cfg, nil
}
