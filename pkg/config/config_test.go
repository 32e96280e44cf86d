package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing optional file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(dir, "absent.yaml"), true)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("Missing required file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.yaml"), false)
		assert.Error(t, err)
	})

	t.Run("Partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte("reader: \"ACS ACR122U 00 00\"\nauto_response: true\nmax_depth: 8\n"), 0o600))

		cfg, err := Load(path, false)
		require.NoError(t, err)

		want := Default()
		want.Reader = "ACS ACR122U 00 00"
		want.AutoResponse = true
		want.MaxDepth = 8
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("Load mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0o600))

		cfg, err := Load(path, false)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"Unknown key", "readers: 1\n"},
		{"Zero depth", "max_depth: 0\n"},
		{"Negative history", "history_size: -1\n"},
		{"Not a mapping", "- a\n- b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			assert.Error(t, Parse([]byte(tt.doc), &cfg))
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/.pcsc-terminal-history")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".pcsc-terminal-history"), got)

	got, err = ExpandHome("/tmp/history")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/history", got)

	got, err = ExpandHome("~user/x")
	require.NoError(t, err)
	assert.Equal(t, "~user/x", got)
}

func TestDefault_LogLevelUnset(t *testing.T) {
	// An unset level leaves PCSC_TERMINAL_LOG in charge.
	assert.Empty(t, Default().LogLevel)
}
