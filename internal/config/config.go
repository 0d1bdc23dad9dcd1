// Package config loads the daemon configuration from a TOML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/logger"
	"codeberg.org/mutker/profilectl/internal/metrics"
	"codeberg.org/mutker/profilectl/internal/profiles"
	"codeberg.org/mutker/profilectl/internal/sensor"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix     = "PROFILECTL"
	DefaultLogLevel      = "info"
	DefaultStrategy      = StrategySet
	DefaultService       = profiles.LegacyBusName
	DefaultPollInterval  = time.Second
	DefaultDebounce      = 5 * time.Second
	DefaultCallTimeout   = 5 * time.Second
	DefaultHoldReason    = "Temperature above threshold"
	DefaultApplicationID = "profilectl"
	DefaultSensorSource  = sensor.SourceHwmon
	DefaultSysfsRoot     = "/sys"

	configDirName  = "PowerProfilesSwitcher"
	configFileName = "config.toml"
)

type SensorConfig struct {
	Source    string `mapstructure:"source" toml:"source"`
	SysfsRoot string `mapstructure:"sysfs_root" toml:"sysfs_root"`
}

type Config struct {
	Matcher         sensor.Matcher   `mapstructure:"matcher"`
	Temp            float64          `mapstructure:"temp"`
	Strategy        Strategy         `mapstructure:"strategy"`
	InactiveProfile profiles.Profile `mapstructure:"inactive_profile"`
	ActiveProfile   profiles.Profile `mapstructure:"active_profile"`
	ProfileName     profiles.Profile `mapstructure:"profile_name"`
	HoldReason      string           `mapstructure:"hold_reason"`
	ApplicationID   string           `mapstructure:"application_id"`
	Service         string           `mapstructure:"service"`
	PollInterval    time.Duration    `mapstructure:"poll_interval"`
	Debounce        time.Duration    `mapstructure:"debounce"`
	CallTimeout     time.Duration    `mapstructure:"call_timeout"`
	SessionCheck    bool             `mapstructure:"session_check"`
	LogLevel        string           `mapstructure:"log_level"`
	Sensor          SensorConfig     `mapstructure:"sensor"`
	Metrics         metrics.Config   `mapstructure:"metrics"`

	// Command-line only.
	ConfigFile  string `mapstructure:"-"`
	ListSensors bool   `mapstructure:"-"`
	PrintConfig bool   `mapstructure:"-"`
	History     int    `mapstructure:"-"`
}

// DefaultPath returns $XDG_CONFIG_HOME/PowerProfilesSwitcher/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.New().Wrap(errors.ErrConfigDir, err)
	}

	return filepath.Join(dir, configDirName, configFileName), nil
}

// Load parses args (without the program name) and reads the configuration
// file. A missing file is an error unless only --list-sensors or --history
// was requested.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	cfg.ListSensors, _ = fs.GetBool("list-sensors")
	cfg.PrintConfig, _ = fs.GetBool("print-config")
	cfg.History, _ = fs.GetInt("history")

	path, err := resolvePath(o, fs)
	if err != nil {
		return nil, err
	}
	cfg.ConfigFile = path

	configOptional := cfg.ListSensors || cfg.History > 0
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) || !configOptional {
			return nil, errFactory.WithData(errors.ErrMissingConfig, path)
		}
	} else {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if debug, _ := fs.GetBool("debug"); debug {
		cfg.LogLevel = "debug"
	} else if verbose, _ := fs.GetBool("verbose"); verbose && cfg.LogLevel != "debug" {
		cfg.LogLevel = "info"
	}

	if configOptional {
		return cfg, nil
	}

	if !v.IsSet("temp") {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, ValidationErrors{
			&fieldError{field: "temp", value: nil, reason: "required"},
		})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strategy", string(DefaultStrategy))
	v.SetDefault("hold_reason", DefaultHoldReason)
	v.SetDefault("application_id", DefaultApplicationID)
	v.SetDefault("service", DefaultService)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("debounce", DefaultDebounce)
	v.SetDefault("call_timeout", DefaultCallTimeout)
	v.SetDefault("session_check", true)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("sensor.source", DefaultSensorSource)
	v.SetDefault("sensor.sysfs_root", DefaultSysfsRoot)

	m := metrics.DefaultConfig()
	v.SetDefault("metrics.enabled", m.Enabled)
	v.SetDefault("metrics.db_path", m.DBPath)
	v.SetDefault("metrics.batch_size", m.BatchSize)
	v.SetDefault("metrics.batch_timeout", m.BatchTimeout)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("profilectl", pflag.ContinueOnError)

	fs.StringP("config", "c", "", "Path to the configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debug logging")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.Float64("temp", 0, "Temperature threshold")
	fs.String("strategy", string(DefaultStrategy), "Profile strategy (set, hold)")
	fs.Duration("poll-interval", DefaultPollInterval, "Time between sensor reads")
	fs.Duration("debounce", DefaultDebounce, "How long the threshold must be exceeded")
	fs.Bool("session-check", true, "Ignore revert failures while the user session is active")
	fs.String("sensor-source", DefaultSensorSource, "Sensor backend (hwmon, nvml)")
	fs.Bool("list-sensors", false, "List matchable sensors and exit")
	fs.Bool("print-config", false, "Print the effective configuration and exit")
	fs.Int("history", 0, "Print the last N recorded transitions and exit")

	return fs
}

var flagKeys = map[string]string{
	"log-level":     "log_level",
	"temp":          "temp",
	"strategy":      "strategy",
	"poll-interval": "poll_interval",
	"debounce":      "debounce",
	"session-check": "session_check",
	"sensor-source": "sensor.source",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return errors.New().Wrap(errors.ErrBindFlags, err)
		}
	}

	return nil
}

func resolvePath(o options, fs *pflag.FlagSet) (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	if p, _ := fs.GetString("config"); p != "" {
		return p, nil
	}
	if p := os.Getenv(DefaultEnvPrefix + "_CONFIG"); p != "" {
		return p, nil
	}

	return DefaultPath()
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// secondsToDurationHook lets durations be written as bare numbers of seconds.
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))

	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType {
			return data, nil
		}

		switch n := data.(type) {
		case int:
			return time.Duration(n) * time.Second, nil
		case int64:
			return time.Duration(n) * time.Second, nil
		case float64:
			return time.Duration(n * float64(time.Second)), nil
		default:
			return data, nil
		}
	}
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field string, value interface{}, reason string) {
		errs = append(errs, &fieldError{field: field, value: value, reason: reason})
	}

	if c.Matcher.ChipName == "" {
		add("matcher.chip_name", c.Matcher.ChipName, "required")
	}
	if c.Matcher.FeatName == "" {
		add("matcher.feat_name", c.Matcher.FeatName, "required")
	}
	if c.Matcher.SubFeatName == "" {
		add("matcher.sub_feat_name", c.Matcher.SubFeatName, "required")
	}

	switch c.Strategy {
	case StrategySet:
		if !c.ActiveProfile.IsValid() {
			add("active_profile", c.ActiveProfile, "must be power-saver, balanced or performance")
		}
		if !c.InactiveProfile.IsValid() {
			add("inactive_profile", c.InactiveProfile, "must be power-saver, balanced or performance")
		}
	case StrategyHold:
		if !c.ProfileName.Holdable() {
			add("profile_name", c.ProfileName, "must be power-saver or performance")
		}
		if c.ApplicationID == "" {
			add("application_id", c.ApplicationID, "required")
		}
	default:
		add("strategy", c.Strategy, "must be set or hold")
	}

	if _, err := profiles.ObjectPath(c.Service); err != nil {
		add("service", c.Service, "unknown power profiles service")
	}
	if c.PollInterval <= 0 {
		add("poll_interval", c.PollInterval, "must be positive")
	}
	if c.Debounce < 0 {
		add("debounce", c.Debounce, "must not be negative")
	}
	if c.CallTimeout <= 0 {
		add("call_timeout", c.CallTimeout, "must be positive")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		add("log_level", c.LogLevel, string(errors.ErrInvalidLogLevel))
	}
	if c.Sensor.Source != sensor.SourceHwmon && c.Sensor.Source != sensor.SourceNVML {
		add("sensor.source", c.Sensor.Source, "must be hwmon or nvml")
	}
	if err := c.Metrics.Validate(); err != nil {
		add("metrics", c.Metrics.DBPath, err.Error())
	}

	if len(errs) == 0 {
		return nil
	}

	return errors.New().Wrap(errors.ErrInvalidConfig, errs)
}

type fileView struct {
	Matcher         sensor.Matcher `toml:"matcher"`
	Temp            float64        `toml:"temp"`
	Strategy        string         `toml:"strategy"`
	InactiveProfile string         `toml:"inactive_profile,omitempty"`
	ActiveProfile   string         `toml:"active_profile,omitempty"`
	ProfileName     string         `toml:"profile_name,omitempty"`
	HoldReason      string         `toml:"hold_reason"`
	ApplicationID   string         `toml:"application_id"`
	Service         string         `toml:"service"`
	PollInterval    string         `toml:"poll_interval"`
	Debounce        string         `toml:"debounce"`
	CallTimeout     string         `toml:"call_timeout"`
	SessionCheck    bool           `toml:"session_check"`
	LogLevel        string         `toml:"log_level"`
	Sensor          SensorConfig   `toml:"sensor"`
	Metrics         metricsView    `toml:"metrics"`
}

type metricsView struct {
	Enabled      bool   `toml:"enabled"`
	DBPath       string `toml:"db_path"`
	BatchSize    int    `toml:"batch_size"`
	BatchTimeout string `toml:"batch_timeout"`
}

// TOML renders the effective configuration in the file format Load reads.
func (c *Config) TOML() ([]byte, error) {
	view := fileView{
		Matcher:         c.Matcher,
		Temp:            c.Temp,
		Strategy:        c.Strategy.String(),
		InactiveProfile: c.InactiveProfile.String(),
		ActiveProfile:   c.ActiveProfile.String(),
		ProfileName:     c.ProfileName.String(),
		HoldReason:      c.HoldReason,
		ApplicationID:   c.ApplicationID,
		Service:         c.Service,
		PollInterval:    c.PollInterval.String(),
		Debounce:        c.Debounce.String(),
		CallTimeout:     c.CallTimeout.String(),
		SessionCheck:    c.SessionCheck,
		LogLevel:        c.LogLevel,
		Sensor:          c.Sensor,
		Metrics: metricsView{
			Enabled:      c.Metrics.Enabled,
			DBPath:       c.Metrics.DBPath,
			BatchSize:    c.Metrics.BatchSize,
			BatchTimeout: c.Metrics.BatchTimeout.String(),
		},
	}

	out, err := toml.Marshal(view)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInternal, err)
	}

	return out, nil
}
