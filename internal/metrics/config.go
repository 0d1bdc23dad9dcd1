package metrics

import (
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/profilectl/internal/errors"
)

const (
	defaultDirPerm      = 0o755
	defaultBatchSize    = 1
	defaultBatchTimeout = 30 * time.Second
	dbFileName          = "history.db"
)

type Config struct {
	Enabled      bool          `mapstructure:"enabled" toml:"enabled"`
	DBPath       string        `mapstructure:"db_path" toml:"db_path"`
	BatchSize    int           `mapstructure:"batch_size" toml:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" toml:"batch_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		DBPath:       DefaultDBPath(),
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

// DefaultDBPath is $XDG_STATE_HOME/profilectl/history.db, falling back to
// ~/.local/state.
func DefaultDBPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "profilectl", dbFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "profilectl", dbFileName)
	}

	return filepath.Join(home, ".local", "state", "profilectl", dbFileName)
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidBatch, c.BatchSize)
	}
	if c.BatchSize > 1 && c.BatchTimeout <= 0 {
		return errFactory.WithData(ErrInvalidBatch, c.BatchTimeout)
	}

	return nil
}

func (c Config) backupDir() string {
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
