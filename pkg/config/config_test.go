package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/calc/pkg/api"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8787", cfg.HTTPAddr)
	assert.Equal(t, ":8788", cfg.GRPCAddr)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, api.DefaultMaxExpressionLength, cfg.MaxExpressionLength)
	assert.False(t, cfg.Strict)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadYAMLOverlaysPresentKeys(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.LoadYAML([]byte("http_addr: 127.0.0.1:9000\nstrict: true\n")))

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.True(t, cfg.Strict)
	assert.Equal(t, ":8788", cfg.GRPCAddr)
}

func TestLoadYAMLEmptyAndUnknown(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.LoadYAML(nil))
	assert.Equal(t, Default(), cfg)

	err := cfg.LoadYAML([]byte("http_port: 80\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvGRPCAddr:            ":9999",
		EnvHistoryLimit:        "5",
		EnvMaxExpressionLength: "64",
		EnvStrict:              "true",
		EnvLogLevel:            "debug",
		EnvLogFormat:           "json",
		EnvLogFile:             "/tmp/calc.log",
		EnvHTTPAddr:            "",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8787", cfg.HTTPAddr, "empty variables are ignored")
	assert.Equal(t, ":9999", cfg.GRPCAddr)
	assert.Equal(t, 5, cfg.HistoryLimit)
	assert.Equal(t, 64, cfg.MaxExpressionLength)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/tmp/calc.log", cfg.LogFile)
}

func TestApplyEnvErrors(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{EnvHistoryLimit, "many", "CALC_HISTORY_LIMIT"},
		{EnvMaxExpressionLength, "1.5", "not an integer"},
		{EnvStrict, "sometimes", "not a boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(envMap(map[string]string{tt.key: tt.value}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyFlagsOnlyVisitsSetFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--history-limit=7", "--strict"}))

	cfg := Default()
	cfg.HTTPAddr = "from-env:1"
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, 7, cfg.HistoryLimit)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "from-env:1", cfg.HTTPAddr, "unset flags keep lower-precedence values")
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: file:1\ngrpc_addr: file:2\nhistory_limit: 3\n"), 0o644))

	t.Setenv(EnvGRPCAddr, "env:2")
	t.Setenv(EnvHistoryLimit, "4")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--history-limit", "5"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "file:1", cfg.HTTPAddr)
	assert.Equal(t, "env:2", cfg.GRPCAddr)
	assert.Equal(t, 5, cfg.HistoryLimit)
}

func TestLoadMissingFile(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))

	_, err := Load(fs)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty http", func(c *Config) { c.HTTPAddr = "" }, "http address"},
		{"empty grpc", func(c *Config) { c.GRPCAddr = "" }, "grpc address"},
		{"negative history", func(c *Config) { c.HistoryLimit = -1 }, "history limit"},
		{"zero length", func(c *Config) { c.MaxExpressionLength = 0 }, "max expression length"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	cfg := Default()
	cfg.HistoryLimit = 0
	cfg.LogLevel = "WARN"
	assert.NoError(t, cfg.Validate())
}
