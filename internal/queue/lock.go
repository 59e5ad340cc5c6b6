package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const lockFileName = "lock"

// Lock guards a queue data directory against a second writer process.
// It is held for the lifetime of the owning process and released by
// Unlock.
type Lock struct {
	path string
}

// AcquireLock takes an exclusive lock on the queue data directory by
// creating a lockfile with O_EXCL. A lockfile left by a dead process is
// reclaimed; a live owner makes acquisition fail.
func AcquireLock(root string) (*Lock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", root, err)
	}

	path := filepath.Join(root, lockFileName)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lockfile %s: %w", path, err)
		}

		pid, readErr := readLockPID(path)
		if readErr == nil && processAlive(pid) {
			return nil, fmt.Errorf("queue directory %s is locked by running process %d", root, pid)
		}

		// Stale lock from a dead or unreadable owner; reclaim it.
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("removing stale lockfile %s: %w", path, rmErr)
		}
	}

	return nil, fmt.Errorf("could not acquire lock on %s", root)
}

// Unlock releases the lock by removing the lockfile.
func (l *Lock) Unlock() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lockfile %s: %w", l.path, err)
	}
	return nil
}

func readLockPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if _, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid))); err == nil {
		return true
	}
	// Fall back to a signal-0 probe on platforms without /proc.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
