package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveTraktTokenPreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, DefaultConfigYAML, 0o644))

	err := SaveTraktToken(path, Trakt{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    1767225600,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written by 'plexrec trakt-auth'")

	cfg, err := parse(data)
	require.NoError(t, err)
	assert.Equal(t, "access-1", cfg.Trakt.AccessToken)
	assert.Equal(t, "refresh-1", cfg.Trakt.RefreshToken)
	assert.Equal(t, int64(1767225600), cfg.Trakt.ExpiresAt)
	assert.Equal(t, "Movies", cfg.Plex.MovieSection)
}

func TestSaveTraktTokenAddsMissingSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plex:\n  url: http://plex.lan:32400\n"), 0o644))

	require.NoError(t, SaveTraktToken(path, Trakt{AccessToken: "a", RefreshToken: "r", ExpiresAt: 42}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, err := parse(data)
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Trakt.AccessToken)
	assert.Equal(t, int64(42), cfg.Trakt.ExpiresAt)
	assert.Equal(t, "http://plex.lan:32400", cfg.Plex.URL)
}

func TestSaveTraktTokenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, SaveTraktToken(path, Trakt{AccessToken: "a"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, err := parse(data)
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Trakt.AccessToken)
}
