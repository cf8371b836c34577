package fsnotify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Corpus watcher — detect rule and license changes, trigger index reload
// Expectation: corpus file changes reach the callback; other files do not.
// =============================================================================

// waitForCallback waits up to timeout for the callback channel to receive a value.
func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func startWatcher(t *testing.T, dirs ...string) (*Watcher, chan string) {
	t.Helper()
	w, err := NewWatcher()
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(dirs, func(path string) {
		changed <- path
	}))

	// Give watcher time to start
	time.Sleep(50 * time.Millisecond)
	return w, changed
}

func TestWatcher_DetectsRuleChange(t *testing.T) {
	dir := t.TempDir()
	rule := filepath.Join(dir, "mit_1.RULE")
	require.NoError(t, os.WriteFile(rule, []byte("Permission is hereby granted"), 0644))

	_, changed := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(rule, []byte("Permission is granted"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for rule change")
	assert.Equal(t, rule, path)
}

func TestWatcher_DetectsNewSidecar(t *testing.T) {
	dir := t.TempDir()
	_, changed := startWatcher(t, dir)

	sidecar := filepath.Join(dir, "mit_1.yml")
	require.NoError(t, os.WriteFile(sidecar, []byte("license_expression: mit\n"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for new sidecar")
	assert.Equal(t, sidecar, path)
}

func TestWatcher_DetectsDeletedLicense(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "mit.LICENSE")
	require.NoError(t, os.WriteFile(text, []byte("MIT License"), 0644))

	_, changed := startWatcher(t, dir)

	require.NoError(t, os.Remove(text))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for deleted license")
	assert.Equal(t, text, path)
}

func TestWatcher_WatchesEveryDirectory(t *testing.T) {
	rules := t.TempDir()
	licenses := t.TempDir()
	_, changed := startWatcher(t, rules, licenses)

	text := filepath.Join(licenses, "gpl-2.0.LICENSE")
	require.NoError(t, os.WriteFile(text, []byte("GNU GENERAL PUBLIC LICENSE"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback from the second directory")
	assert.Equal(t, text, path)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	hidden := filepath.Join(dir, ".git")
	require.NoError(t, os.MkdirAll(hidden, 0755))

	_, changed := startWatcher(t, dir)

	// Write to ignored locations
	os.WriteFile(filepath.Join(hidden, "mit_1.RULE"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, ".mit_1.RULE.swp"), []byte("x"), 0644)

	// None of these should trigger callback
	_, ok := waitForCallback(changed, 500*time.Millisecond)
	assert.False(t, ok, "should not have received callback for ignored files")

	// But a rule file should trigger
	rule := filepath.Join(dir, "bsd_1.RULE")
	require.NoError(t, os.WriteFile(rule, []byte("Redistribution and use"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for rule file")
	assert.Equal(t, rule, path)
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	_, changed := startWatcher(t, dir)

	sub := filepath.Join(dir, "gpl")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(100 * time.Millisecond)

	rule := filepath.Join(sub, "gpl-2.0_1.RULE")
	require.NoError(t, os.WriteFile(rule, []byte("GNU General Public License"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback in new subdirectory")
	assert.Equal(t, rule, path)
}

func TestWatcher_StopCleanup(t *testing.T) {
	// After Stop(), no more callbacks fire.
	dir := t.TempDir()

	w, err := NewWatcher()
	require.NoError(t, err)

	callCount := 0
	var mu sync.Mutex
	err = w.Watch([]string{dir}, func(path string) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, w.Stop())

	mu.Lock()
	countAfterStop := callCount
	mu.Unlock()

	// Write file after stop — should NOT trigger callback
	os.WriteFile(filepath.Join(dir, "after_stop.RULE"), []byte("nope"), 0644)
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	countAfterWrite := callCount
	mu.Unlock()

	assert.Equal(t, countAfterStop, countAfterWrite, "callbacks fired after Stop()")

	// Double-stop should be safe
	assert.NoError(t, w.Stop())
}

func TestIsCorpusFile(t *testing.T) {
	assert.True(t, isCorpusFile("/c/rules/mit_1.RULE"))
	assert.True(t, isCorpusFile("/c/licenses/mit.LICENSE"))
	assert.True(t, isCorpusFile("/c/rules/mit_1.yml"))
	assert.False(t, isCorpusFile("/c/rules/mit_1.rule"))
	assert.False(t, isCorpusFile("/c/rules/notes.txt"))
	assert.False(t, isCorpusFile("/c/rules/.mit_1.yml"))
}
