package secretstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	kerrors "github.com/systmms/keyops/internal/errors"
)

const lockFile = ".lock"

// Lock acquires an exclusive advisory lock for a whole lifecycle run.
// Individual file writes are atomic on their own, but the backup+write pair
// of a rotation is not isolated across runs, so init and rotate take this
// lock for their full duration. Returns a release function.
//
// A lock left behind by a dead process (operator interrupt, OOM kill) is
// detected by PID liveness and taken over.
func (s *Store) Lock() (func(), error) {
	if err := s.ensureDirs(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, lockFile)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileMode)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire store lock: %w", err)
		}
		if !s.lockIsStale(path) {
			break
		}
		os.Remove(path)
	}

	return nil, fmt.Errorf("%w (lock file: %s)", kerrors.ErrLocked, path)
}

// lockIsStale reports whether the lock file names a process that no longer
// exists. An unreadable or malformed lock file is treated as stale.
func (s *Store) lockIsStale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return true
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	// Signal 0 probes for existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) != nil
}
