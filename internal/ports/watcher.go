package ports

// Watcher monitors the rule and license directories for corpus changes.
// The adapter (fsnotify) must filter out files that are not part of the
// corpus (editor swap files, dot directories) before invoking onChange.
// Only one Watch call should be active at a time.
type Watcher interface {
	// Watch starts monitoring the given directories recursively. onChange is
	// called once per burst of changes with the path that triggered it. The
	// callback may be invoked from any goroutine. Returns an error if a
	// directory doesn't exist or permissions are insufficient.
	Watch(dirs []string, onChange func(path string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
