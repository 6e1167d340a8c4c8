package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withDotenv points the loader at the given file for the duration of the test.
// With no file the loader reads nothing.
func withDotenv(t *testing.T, files ...string) {
	t.Helper()
	orig := dotenvFiles
	dotenvFiles = files
	t.Cleanup(func() { dotenvFiles = orig })
}

func TestParseEnv_OverlaysSetVariables(t *testing.T) {
	withDotenv(t)
	t.Setenv("GRPC_ADDR", ":7000")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("HASH_COST", "12")

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, ":7000", cfg.EndpointAddrGRPC)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 12, cfg.HashCost)
	assert.Equal(t, ":9090", cfg.OpsAddr, "unset variables keep their value")
}

func TestParseEnv_BadValue(t *testing.T) {
	withDotenv(t)
	t.Setenv("HASH_COST", "ten")

	err := parseEnv(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestParseEnv_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nOPS_ADDR=:9999\n"), 0o600))
	withDotenv(t, path)

	// OPS_ADDR is already in the environment and must not be replaced.
	t.Setenv("OPS_ADDR", ":8888")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))
	t.Cleanup(func() { _ = os.Unsetenv("LOG_LEVEL") })

	cfg := &Config{}
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":8888", cfg.OpsAddr)
}

func TestParseEnv_MissingDotenvIsIgnored(t *testing.T) {
	withDotenv(t, filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, parseEnv(&Config{}))
}
