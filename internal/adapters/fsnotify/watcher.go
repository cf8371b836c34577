// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches the rule and license directories, reports only corpus
// files (.RULE, .LICENSE and their .yml sidecars), and debounces rapid events
// (editors often trigger multiple writes per save).
package fsnotify

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/projectdiscovery/gologger"

	"github.com/corey/licscan/internal/ports"
)

// Corpus file extensions that trigger onChange.
var corpusExts = map[string]bool{
	".RULE":    true,
	".LICENSE": true,
	".yml":     true,
}

const debounceInterval = 50 * time.Millisecond

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw      *fsnotify.Watcher
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

var _ ports.Watcher = (*Watcher)(nil)

// NewWatcher creates a new file system watcher.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:   fw,
		done: make(chan struct{}),
	}, nil
}

// Watch starts monitoring dirs recursively.
// onChange is called with the absolute path of each changed corpus file.
func (w *Watcher) Watch(dirs []string, onChange func(filePath string)) error {
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			return err
		}
	}

	// Debounce state: track last event time per file
	debounce := make(map[string]time.Time)

	go func() {
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				path := event.Name

				// For Create events, add new directories to the watch list
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(path); err == nil && info.IsDir() {
						if !shouldIgnoreDir(info.Name()) {
							if err := w.addTree(path); err != nil {
								gologger.Warning().Msgf("watch %s: %v", path, err)
							}
						}
						continue
					}
				}

				if !isCorpusFile(path) {
					continue
				}

				// Debounce: skip if we've seen this file recently
				now := time.Now()
				if last, exists := debounce[path]; exists && now.Sub(last) < debounceInterval {
					continue
				}
				debounce[path] = now

				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					onChange(path)
				}

			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				gologger.Debug().Msgf("watcher: %v", err)

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// addTree adds root and every non-hidden directory below it.
func (w *Watcher) addTree(root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if info.IsDir() {
			if shouldIgnoreDir(info.Name()) && path != absPath {
				return filepath.SkipDir
			}
			return w.fw.Add(path)
		}
		return nil
	})
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}

// shouldIgnoreDir skips hidden directories, which the corpus loader skips too.
func shouldIgnoreDir(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// isCorpusFile reports whether a change to path affects the corpus. Hidden
// directories are never added to the watch, so only the name is checked.
func isCorpusFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return corpusExts[filepath.Ext(base)]
}
