package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Lock takes an exclusive, non-blocking flock on "<progress file>.lock" and
// writes the current PID into it. The returned function releases the lock
// and leaves the file in place.
//
// A second process pointed at the same progress file fails with ErrLocked.
func (s *Store) Lock() (unlock func(), err error) {
	path := s.path + ".lock"

	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	// Non-blocking exclusive lock; fails immediately if another process holds it.
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncating lock file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing lock file: %w", err)
	}

	// Never unlinked, so every contender flocks the same inode.
	return func() {
		f.Close()
	}, nil
}
