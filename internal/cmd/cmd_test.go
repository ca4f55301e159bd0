package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(viper.New())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRulesCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default: {limit: 100, window: 1h}
services:
  payments:
    free: {limit: 10, window: 1m}
`), 0o644))

	out, err := run(t, "rules", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "payments")
	assert.Contains(t, out, "1m0s")
	assert.Contains(t, out, "100")
}

func TestRulesCheckInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: {limit: 0, window: 1h}\n"), 0o644))

	_, err := run(t, "rules", "check", path)
	assert.Error(t, err)
}

func TestRulesDefaults(t *testing.T) {
	out, err := run(t, "rules", "defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "marketing")
	assert.Contains(t, out, "enterprise")
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gatekeep 1.2.3")
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gatekeep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9001\nstore: memory\n"), 0o644))

	v := viper.New()
	require.NoError(t, initConfig(v, path))
	assert.Equal(t, 9001, v.GetInt("server.port"))
	assert.Equal(t, "memory", v.GetString("store"))
	assert.Equal(t, "rl", v.GetString("limiter.namespace"))
	assert.Equal(t, "100ms", v.GetDuration("limiter.timeout").String())

	t.Setenv("GATEKEEP_LIMITER_NAMESPACE", "edge")
	v = viper.New()
	require.NoError(t, initConfig(v, ""))
	assert.Equal(t, "edge", v.GetString("limiter.namespace"))

	assert.Error(t, initConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := newLogger(level)
		require.NoError(t, err, level)
		require.NotNil(t, logger)
	}

	_, err := newLogger("loud")
	assert.Error(t, err)
}

func TestUnknownStore(t *testing.T) {
	v := viper.New()
	require.NoError(t, initConfig(v, ""))
	v.Set("store", "etcd")

	_, _, _, err := buildStore(context.Background(), v, nil)
	assert.Error(t, err)
}
