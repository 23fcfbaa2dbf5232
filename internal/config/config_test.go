package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fileforge")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, int64(DefaultInlineMaxBytes), cfg.InlineMaxBytes)
	assert.False(t, cfg.ExternalStorageConfigured())
}

func TestLoadRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/fileforge")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsPartialSupabaseConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SUPABASE_PUBLISHABLE_KEY", "key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.ExternalStorageConfigured())
}

func TestLoadInlineMaxBytes(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("INLINE_MAX_BYTES", "1048576")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), cfg.InlineMaxBytes)

	t.Setenv("INLINE_MAX_BYTES", "-1")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("INLINE_MAX_BYTES", "lots")
	_, err = Load()
	assert.Error(t, err)
}
