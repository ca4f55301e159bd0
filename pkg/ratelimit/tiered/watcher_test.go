package tiered

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeRules(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewWatcherValidation(t *testing.T) {
	l := newTestLimiter(t, nil)

	_, err := NewWatcher(nil, WatcherConfig{Path: "rules.yaml"})
	assert.Error(t, err)

	_, err = NewWatcher(l, WatcherConfig{})
	assert.Error(t, err)

	_, err = NewWatcher(l, WatcherConfig{Path: "rules.yaml", Debounce: -time.Second})
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeRules(t, path, sampleRules)

	l := newTestLimiter(t, nil)
	reloaded := make(chan error, 10)
	w, err := NewWatcher(l, WatcherConfig{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		OnReload: func(_ *Rules, err error) { reloaded <- err },
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	assert.Error(t, w.Start())

	writeRules(t, path, "default: {limit: 7, window: 1m}\n")

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("rules were not reloaded")
	}
	assert.Equal(t, Rule{Limit: 7, Window: time.Minute}, l.Rules().Default)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestWatcherKeepsRulesOnParseError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeRules(t, path, sampleRules)

	l := newTestLimiter(t, nil)
	before := l.Rules()

	reloaded := make(chan error, 10)
	w, err := NewWatcher(l, WatcherConfig{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		OnReload: func(_ *Rules, err error) { reloaded <- err },
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	writeRules(t, path, "default: [not, a, rule]\n")

	select {
	case err := <-reloaded:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not attempted")
	}
	assert.Same(t, before, l.Rules())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeRules(t, path, sampleRules)

	l := newTestLimiter(t, nil)
	reloaded := make(chan error, 10)
	w, err := NewWatcher(l, WatcherConfig{
		Path:     path,
		Debounce: 10 * time.Millisecond,
		OnReload: func(_ *Rules, err error) { reloaded <- err },
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	writeRules(t, filepath.Join(dir, "other.yaml"), "x: 1\n")

	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReloadDirect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeRules(t, path, sampleRules)

	l := newTestLimiter(t, nil)
	w, err := NewWatcher(l, WatcherConfig{Path: path})
	require.NoError(t, err)

	require.NoError(t, w.Reload())
	assert.Equal(t, Rule{Limit: 5, Window: 10 * time.Second}, l.Rules().Lookup("search", "free"))
}
