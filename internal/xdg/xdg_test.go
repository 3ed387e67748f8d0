// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectix/connectix/pkg/errutil"
)

func TestConfigDir(t *testing.T) {
	t.Run("env var", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		got, err := ConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/custom/config/connectix", got)
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/testuser")

		got, err := ConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/testuser/.config/connectix", got)
	})
}

func TestConfigFile(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		got, err := ConfigFile()
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("present", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		dir := filepath.Join(base, "connectix")
		require.NoError(t, os.MkdirAll(dir, 0o700))
		want := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(want, []byte("store: memory\n"), 0o600))

		got, err := ConfigFile()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("directory in the way", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		require.NoError(t, os.MkdirAll(filepath.Join(base, "connectix", "config.yaml"), 0o700))

		_, err := ConfigFile()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "XDG_STAT_FAILED")
	})
}
