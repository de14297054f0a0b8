// Package pidfile prevents two recorder processes from racing for the single
// engine connection by locking a PID file per application name.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile marks this process as the owner of the recorder instance.
type PIDFile struct {
	path string
	pid  int
}

// Acquire writes the current PID to path, refusing when another live process
// already holds it. A stale file left by a dead process is replaced.
func Acquire(path string) (*PIDFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create pid directory: %w", err)
	}

	if data, err := os.ReadFile(path); err == nil {
		if existing, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			if processRunning(existing) {
				return nil, fmt.Errorf("another recorder is already running (pid %d)", existing)
			}
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("failed to remove stale pid file: %w", err)
			}
		}
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write pid file: %w", err)
	}
	return &PIDFile{path: path, pid: pid}, nil
}

// Release removes the PID file if it still belongs to this process.
func (p *PIDFile) Release() error {
	if p == nil {
		return nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil
	}
	if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid == p.pid {
		return os.Remove(p.path)
	}
	return nil
}

// DefaultPath returns the conventional PID file location for appName.
func DefaultPath(appName string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "wow-recorder", appName+".pid")
}

// processRunning checks whether a process with the given PID exists, using
// signal 0. EPERM still means the process is alive.
func processRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, syscall.ESRCH) {
		return false
	}
	return errors.Is(err, syscall.EPERM)
}
