package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlags_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Network]\nHost = \"10.1.1.1\"\nBaseRelayPort = 5000\n"), 0o600))

	var f Flags
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	f.Register(cmd)
	cmd.SetArgs([]string{"--config", path, "--host", "127.0.0.2", "--log-level", "debug"})
	require.NoError(t, cmd.Execute())

	cfg, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.2", cfg.Network.Host)
	assert.Equal(t, 5000, cfg.Network.BaseRelayPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestFlags_LoadRejectsBadLevel(t *testing.T) {
	f := Flags{LogLevel: "loud"}
	_, err := f.Load()
	assert.Error(t, err)
}
