package store

import (
	"context"
	"strings"
	"time"
)

// isSQLiteConflict reports whether err is a SQLITE_BUSY or "database is
// locked" error. Both are transient concurrency failures that warrant a
// retry rather than surfacing to the caller.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

const (
	writeRetries    = 3
	writeRetryDelay = 50 * time.Millisecond
)

// withWriteRetry runs a write, retrying on transient SQLite lock conflicts.
// The busy_timeout pragma handles most contention; this covers the window
// where the timeout itself expires under WAL checkpoint pressure.
func withWriteRetry(ctx context.Context, write func() error) error {
	var err error
	for attempt := 0; attempt < writeRetries; attempt++ {
		err = write()
		if !isSQLiteConflict(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(writeRetryDelay):
		}
	}
	return err
}
