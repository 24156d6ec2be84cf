// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Storage holds the settings that describe where gallery content lives.
// It is shared by the server and the galleryctl tool.
type Storage struct {
	Root           string   `env:"GALLERY_ROOT" envDefault:"./gallery"`
	PublicDir      string   `env:"GALLERY_PUBLIC_DIR" envDefault:"./public"`
	BackgroundsDir string   `env:"GALLERY_BACKGROUNDS_DIR" envDefault:"./public/backgrounds"`
	ReservedNames  []string `env:"GALLERY_RESERVED_NAMES" envSeparator:"," envDefault:".*,public,node_modules,routes,models,middleware,api,data,backgrounds,static"`

	// When false, uploads into a theme that does not exist are rejected.
	CreateMissingThemes bool `env:"GALLERY_CREATE_MISSING_THEMES" envDefault:"true"`

	MaxImageSize      int64 `env:"GALLERY_MAX_IMAGE_SIZE" envDefault:"10485760"`
	MaxBackgroundSize int64 `env:"GALLERY_MAX_BACKGROUND_SIZE" envDefault:"15728640"`
	MaxFiles          int   `env:"GALLERY_MAX_FILES" envDefault:"10"`

	DBPath string `env:"GALLERY_DB_PATH" envDefault:"./data/gallery.db"`
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Storage

	SessionSecret string `env:"GALLERY_SESSION_SECRET,required"`
	ServerHost    string `env:"GALLERY_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"GALLERY_SERVER_PORT" envDefault:"3000"`
	Env           string `env:"GALLERY_ENV" envDefault:"development"`
	LogLevel      string `env:"GALLERY_LOG_LEVEL" envDefault:"info"`
	DefaultLang   string `env:"GALLERY_DEFAULT_LANG" envDefault:"en"`

	// Cache configuration
	RedisURL    string `env:"GALLERY_REDIS_URL"`                          // Optional Redis URL, memory cache otherwise
	CachePrefix string `env:"GALLERY_CACHE_PREFIX" envDefault:"gallery:"` // Redis key prefix
	ThumbTTL    int    `env:"GALLERY_THUMB_TTL" envDefault:"86400"`       // Thumbnail cache TTL in seconds

	// Phone login
	CodeTTL     int      `env:"GALLERY_CODE_TTL" envDefault:"600"` // Verification code lifetime in seconds
	PhoneRegion string   `env:"GALLERY_PHONE_REGION" envDefault:"CN"`
	AdminPhones []string `env:"GALLERY_ADMIN_PHONES" envSeparator:","`
	ExposeCodes *bool    `env:"GALLERY_EXPOSE_CODES"` // Return codes in API responses, defaults to development mode

	WeChatMock *bool `env:"GALLERY_WECHAT_MOCK"` // Enable mock WeChat login, defaults to development mode

	MetricsEnabled bool `env:"GALLERY_METRICS_ENABLED" envDefault:"true"`

	SiteURL string `env:"GALLERY_SITE_URL"` // Public base URL, enables /sitemap.xml

	WebhookURLs    []string `env:"GALLERY_WEBHOOK_URLS" envSeparator:","`   // Endpoints notified about gallery changes
	WebhookSecret  string   `env:"GALLERY_WEBHOOK_SECRET"`                  // HMAC key for X-Webhook-Signature
	WebhookEvents  []string `env:"GALLERY_WEBHOOK_EVENTS" envSeparator:","` // Subscribed events, all when empty
	WebhookWorkers int      `env:"GALLERY_WEBHOOK_WORKERS" envDefault:"3"`

	GeoIPDBPath string `env:"GALLERY_GEOIP_DB"` // Optional GeoLite2-Country database for login audit

	EventRetentionDays int `env:"GALLERY_EVENT_RETENTION_DAYS" envDefault:"30"` // 0 keeps events forever
	RequestTimeout     int `env:"GALLERY_REQUEST_TIMEOUT" envDefault:"60"`      // Seconds, uploads included
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CodesExposed reports whether verification codes are echoed back to the client.
func (c Config) CodesExposed() bool {
	if c.ExposeCodes != nil {
		return *c.ExposeCodes
	}
	return c.IsDevelopment()
}

// WeChatMockEnabled reports whether the mock WeChat login endpoint is served.
func (c Config) WeChatMockEnabled() bool {
	if c.WeChatMock != nil {
		return *c.WeChatMock
	}
	return c.IsDevelopment()
}

// CodeLifetime returns the verification code TTL.
func (c Config) CodeLifetime() time.Duration {
	return time.Duration(c.CodeTTL) * time.Second
}

// ThumbLifetime returns the thumbnail cache TTL.
func (c Config) ThumbLifetime() time.Duration {
	return time.Duration(c.ThumbTTL) * time.Second
}

// EventRetention returns how long event log entries are kept, or 0.
func (c Config) EventRetention() time.Duration {
	if c.EventRetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("GALLERY_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("GALLERY_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("GALLERY_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadStorage parses only the storage settings. It does not require a session secret.
func LoadStorage() (*Storage, error) {
	s := &Storage{}
	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("parsing storage config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s Storage) validate() error {
	if strings.TrimSpace(s.Root) == "" {
		return fmt.Errorf("GALLERY_ROOT must not be empty")
	}
	if s.MaxFiles < 1 {
		return fmt.Errorf("GALLERY_MAX_FILES must be positive, got %d", s.MaxFiles)
	}
	if s.MaxImageSize < 1 || s.MaxBackgroundSize < 1 {
		return fmt.Errorf("upload size limits must be positive")
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
