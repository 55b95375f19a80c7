package helpers

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func parse(t *testing.T, args ...string) (*flag.FlagSet, Flags) {
	t.Helper()
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	var f Flags
	RegisterFlags(fs, &f)
	require.NoError(t, fs.Parse(args))
	return fs, f
}

func TestLoadConfigDefaults(t *testing.T) {
	fs, f := parse(t)
	cfg, err := LoadConfig(fs, f)
	require.NoError(t, err)
	assert.Equal(t, 25565, cfg.Port)
	assert.Equal(t, "mc.hypixel.net", cfg.RemoteHost)
	assert.Equal(t, 10*time.Second, cfg.PingInterval)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 25570
motd: from file
remote_host: play.example.net
ping_threshold: 1500ms
whitelist: true
`), 0o644))

	fs, f := parse(t, "-c", path, "-port", "25580", "-v")
	cfg, err := LoadConfig(fs, f)
	require.NoError(t, err)
	assert.Equal(t, 25580, cfg.Port, "explicit flag wins")
	assert.Equal(t, "from file", cfg.MOTD, "unset flag keeps the file value")
	assert.Equal(t, "play.example.net", cfg.RemoteHost)
	assert.Equal(t, 1500*time.Millisecond, cfg.PingThreshold)
	assert.True(t, cfg.Whitelist)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	fs, f := parse(t, "-remote-port", "0")
	_, err := LoadConfig(fs, f)
	assert.Error(t, err)

	fs, f = parse(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = LoadConfig(fs, f)
	assert.Error(t, err)
}

func TestNewServerCreatesWhitelist(t *testing.T) {
	fs, f := parse(t, "-whitelist", "-whitelist-file", filepath.Join(t.TempDir(), "wl.txt"))
	cfg, err := LoadConfig(fs, f)
	require.NoError(t, err)

	srv, err := NewServer(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, srv.Whitelist.Len())
	assert.FileExists(t, cfg.WhitelistFile)
	assert.Equal(t, []string{"Brand", "ChatFilter", "AntiAFK"}, srv.Registry.Names())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("debug", "json", &buf)
	require.NoError(t, err)
	logger.Debug("hello", zap.String("k", "v"))
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	_, err = NewLogger("loud", "json", &buf)
	assert.Error(t, err)
	_, err = NewLogger("info", "xml", &buf)
	assert.Error(t, err)
}
