package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const lockFileName = ".report.lock"

// writeGrace is how many poll intervals a lock file may stay without a pid
// before it is treated as abandoned.
const writeGrace = 5

// fileLock is a PID lock file guarding the report against writers in other
// processes.
type fileLock struct {
	dir  string
	poll time.Duration
}

func newFileLock(dir string) *fileLock {
	return &fileLock{dir: dir, poll: 100 * time.Millisecond}
}

func (l *fileLock) path() string { return filepath.Join(l.dir, lockFileName) }

// Acquire blocks until the lock is held or ctx is done. Locks left by dead
// processes are reclaimed.
func (l *fileLock) Acquire(ctx context.Context) error {
	for {
		f, err := os.OpenFile(l.path(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if werr != nil {
				return fmt.Errorf("writing lock: %w", werr)
			}
			return cerr
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("creating lock: %w", err)
		}
		if l.stale() {
			os.Remove(l.path())
			continue
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for report lock %s: %w", l.path(), ctx.Err())
		case <-time.After(l.poll):
		}
	}
}

func (l *fileLock) Release() {
	os.Remove(l.path())
}

func (l *fileLock) stale() bool {
	data, err := os.ReadFile(l.path())
	if err != nil {
		// Removed between our create attempt and the read; retry immediately.
		return errors.Is(err, fs.ErrNotExist)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		// A writer may be between create and write, but not for long.
		info, serr := os.Stat(l.path())
		if serr != nil {
			return errors.Is(serr, fs.ErrNotExist)
		}
		return time.Since(info.ModTime()) > writeGrace*l.poll
	}
	return errors.Is(syscall.Kill(pid, 0), syscall.ESRCH)
}
