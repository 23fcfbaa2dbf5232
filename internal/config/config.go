package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	// Supabase object storage (external tier). Optional: when unset, every
	// transformation result is stored inline in the database.
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseStorageBucket  string

	// Auth
	JWTSecret string

	// Engines
	FFmpegPath        string
	ChromeDevtoolsURL string
	MediaResolverURL  string

	// Scratch
	ScratchDir string

	// Storage tiering
	InlineMaxBytes int64

	// Database
	DatabaseURL string

	// Server
	Port        string
	Environment string
	BaseURL     string
}

// DefaultInlineMaxBytes is the inline-tier cutoff: payloads above it go to
// the external object store when one is configured.
const DefaultInlineMaxBytes = 5 << 20

func Load() (*Config, error) {
	cfg := &Config{
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "transform-results"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		ChromeDevtoolsURL: getEnv("CHROME_DEVTOOLS_URL", ""),
		MediaResolverURL:  getEnv("MEDIA_RESOLVER_URL", ""),

		ScratchDir: getEnv("SCRATCH_DIR", os.TempDir()),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	inlineMax := getEnv("INLINE_MAX_BYTES", "")
	if inlineMax == "" {
		cfg.InlineMaxBytes = DefaultInlineMaxBytes
	} else {
		n, err := strconv.ParseInt(inlineMax, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid INLINE_MAX_BYTES: %q", inlineMax)
		}
		cfg.InlineMaxBytes = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	// Supabase storage is optional, but partial configuration is a mistake.
	if c.SupabaseURL != "" && c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

// ExternalStorageConfigured reports whether the external object-store tier
// can be used at all.
func (c *Config) ExternalStorageConfigured() bool {
	return c.SupabaseURL != "" && c.SupabasePublishableKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
