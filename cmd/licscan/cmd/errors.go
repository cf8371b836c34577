package cmd

import (
	"errors"
	"fmt"

	berrors "go.etcd.io/bbolt/errors"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt gives up with ErrTimeout when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	return errors.Is(err, berrors.ErrTimeout)
}

// diagnoseDBLock returns actionable guidance when the index database is
// held by another process, usually a running watch or daemon.
func diagnoseDBLock(dbPath string) string {
	return fmt.Sprintf("index database is locked by another process\n"+
		"  → a 'licscan watch' or 'licscan daemon start' may be running on this project\n"+
		"  → stop the daemon:   licscan daemon stop\n"+
		"  → find the process:  ps aux | grep 'licscan'\n"+
		"  → or point --config at a different db_path than %s", dbPath)
}
