// Package secretstore persists credential values as permission-restricted
// files with atomic replacement and write-ahead backups.
package secretstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	kerrors "github.com/systmms/keyops/internal/errors"
)

const (
	dirMode  = 0o700
	fileMode = 0o600

	backupTimestampLayout = "20060102_150405"

	sentinelFile = ".initialized"
)

// Store is a keyed collection of secret files under a single owner-only
// directory. Writes are temp-file-then-rename, so a concurrent reader (the
// running service with the directory mounted) sees either the old or the new
// complete value, never a partial one.
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating the directory tree and
// enforcing owner-only permissions on it.
func New(dir string) (*Store, error) {
	s := &Store{dir: dir}
	if err := s.ensureDirs(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// BackupDir returns the directory holding backup records.
func (s *Store) BackupDir() string {
	return filepath.Join(s.dir, "backups")
}

// SecretPath returns the live file path for a credential.
func (s *Store) SecretPath(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// ensureDirs creates the store layout and re-asserts owner-only access.
// Called at construction and again before every write, so a provisioning
// script that loosened the mode cannot leave secrets world-readable.
func (s *Store) ensureDirs() error {
	for _, dir := range []string{s.dir, s.BackupDir()} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		if err := os.Chmod(dir, dirMode); err != nil {
			return fmt.Errorf("failed to restrict %s: %w", dir, err)
		}
	}
	return nil
}

// Read returns the current value of a credential.
func (s *Store) Read(name string) (string, error) {
	data, err := os.ReadFile(s.SecretPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", name, kerrors.ErrNotFound)
		}
		return "", fmt.Errorf("failed to read secret %s: %w", name, err)
	}
	return string(data), nil
}

// Write atomically replaces the value of a credential. The value is written
// to a temporary file in the same directory, restricted to owner read/write,
// then renamed over the live file. A crash before the rename leaves the old
// value untouched.
func (s *Store) Write(name, value string) error {
	if err := s.ensureDirs(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	// Remove the temp file on any failure path so aborted writes leave no
	// residue next to the live secrets.
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := tmp.Chmod(fileMode); err != nil {
		return cleanup(fmt.Errorf("failed to restrict temp file for %s: %w", name, err))
	}
	if _, err := io.WriteString(tmp, value); err != nil {
		return cleanup(fmt.Errorf("failed to write secret %s: %w", name, err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync secret %s: %w", name, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, s.SecretPath(name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace secret %s: %w", name, err)
	}
	return nil
}

// Backup copies the current value of a credential to a timestamped backup
// file. It must run before Write during rotation; the backup is the only
// record of the prior value. Returns the backup path.
func (s *Store) Backup(name string) (string, error) {
	current, err := s.Read(name)
	if err != nil {
		return "", err
	}
	if err := s.ensureDirs(); err != nil {
		return "", err
	}

	// Second-granularity timestamps; if two backups of the same credential
	// land in the same second, bump until the name is free so no backup is
	// ever overwritten.
	ts := time.Now().UTC()
	var path string
	for {
		path = filepath.Join(s.BackupDir(), fmt.Sprintf("%s_%s.txt.bak", name, ts.Format(backupTimestampLayout)))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		ts = ts.Add(time.Second)
	}

	if err := os.WriteFile(path, []byte(current), fileMode); err != nil {
		return "", fmt.Errorf("failed to write backup for %s: %w", name, err)
	}
	return path, nil
}

// Backups lists existing backup file paths for a credential, oldest first.
func (s *Store) Backups(name string) ([]string, error) {
	pattern := filepath.Join(s.BackupDir(), name+"_*.txt.bak")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups for %s: %w", name, err)
	}
	return matches, nil
}

// Initialized reports whether the init flow has completed for this store.
func (s *Store) Initialized() bool {
	_, err := os.Stat(filepath.Join(s.dir, sentinelFile))
	return err == nil
}

// MarkInitialized records that initialization completed.
func (s *Store) MarkInitialized() error {
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(filepath.Join(s.dir, sentinelFile), []byte(stamp), fileMode); err != nil {
		return fmt.Errorf("failed to write init sentinel: %w", err)
	}
	return nil
}
