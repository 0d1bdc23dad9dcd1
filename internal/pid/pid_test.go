package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profilectl.pid")

	require.NoError(t, pid.Write(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(b))

	// Rewriting our own PID is fine.
	require.NoError(t, pid.Write(path))

	require.NoError(t, pid.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, pid.Remove(path))
}

func TestWriteLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profilectl.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := pid.Write(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profilectl.pid")
	require.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0o600))

	require.NoError(t, pid.Write(path))
}

func TestPathUsesRuntimeDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	assert.Equal(t, filepath.Join(dir, "profilectl.pid"), pid.Path())
}
