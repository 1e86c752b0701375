package feedstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockFileName   = "feed.lock"
	acquireTimeout = 500 * time.Millisecond
	retryFloor     = 5 * time.Millisecond
	retryCeiling   = 50 * time.Millisecond
)

// writeLocker serializes Append calls across processes sharing one feed
// directory with an advisory file lock next to the database, rather than a
// second SQLite connection — a crashed holder releases automatically when
// its process exits instead of wedging the feed.
type writeLocker struct {
	path string
	file *os.File
}

func newWriteLocker(baseDir string) *writeLocker {
	return &writeLocker{path: filepath.Join(baseDir, lockFileName)}
}

// holder is the lock file's payload while held: used only to describe who
// has the lock in a timeout error, never consulted during acquisition.
type holder struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

func (l *writeLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	l.file = f

	deadline := time.Now().Add(timeout)
	wait := retryFloor
	for {
		if err := l.tryLock(); err == nil {
			l.writeHolder()
			return nil
		}

		if time.Now().After(deadline) {
			desc := l.describeHolder()
			l.file.Close()
			l.file = nil
			return fmt.Errorf("feed write lock timeout after %v: held by %s", timeout, desc)
		}

		time.Sleep(wait)
		if wait *= 2; wait > retryCeiling {
			wait = retryCeiling
		}
	}
}

func (l *writeLocker) release() error {
	if l.file == nil {
		return nil
	}
	l.file.Truncate(0)
	l.unlock()
	l.file.Close()
	l.file = nil
	return nil
}

func (l *writeLocker) writeHolder() {
	if l.file == nil {
		return
	}
	payload, err := json.Marshal(holder{PID: os.Getpid(), StartedAt: time.Now()})
	if err != nil {
		return
	}
	l.file.Truncate(0)
	l.file.Seek(0, 0)
	l.file.Write(payload)
	l.file.Sync()
}

// describeHolder reports who is holding the lock for a timeout error
// message. A missing or malformed lock file degrades to "unknown" instead
// of surfacing a parse error to the caller, who only wants a diagnostic.
func (l *writeLocker) describeHolder() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "unknown"
	}

	var h holder
	if err := json.Unmarshal(data, &h); err != nil || h.PID == 0 {
		return "unknown"
	}

	if !isProcessAlive(h.PID) {
		return fmt.Sprintf("pid %d since %s (stale, process no longer running)", h.PID, h.StartedAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("pid %d since %s", h.PID, h.StartedAt.Format(time.RFC3339))
}

// withWriteLock executes fn while holding the feed's exclusive write lock.
func (s *Store) withWriteLock(fn func() error) error {
	locker := newWriteLocker(s.baseDir)
	if err := locker.acquire(acquireTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// tryLock and unlock are implemented in lock_unix.go / lock_windows.go.
