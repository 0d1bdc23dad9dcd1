// Package pid guards against two daemons fighting over the power profile.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/profilectl/internal/errors"
	"golang.org/x/sys/unix"
)

const pidFile = "profilectl.pid"

// Path returns the PID file location: $XDG_RUNTIME_DIR when set, else the
// temporary directory.
func Path() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}

	return filepath.Join(dir, pidFile)
}

// Write records the current process at path. It fails with
// ErrAlreadyRunning if the file names a live process. Stale or unreadable
// files are replaced.
func Write(path string) error {
	errFactory := errors.New()

	if other, ok := readPID(path); ok && other != os.Getpid() && alive(other) {
		return errFactory.WithData(errors.ErrAlreadyRunning, other)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove deletes the PID file if it exists.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

func readPID(path string) (int, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || n <= 0 {
		return 0, false
	}

	return n, true
}

func alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
