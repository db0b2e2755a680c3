package config

import (
	"os"

	"codeberg.org/halcyon/robomon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultThermalAddr     = ":8765"
	defaultTorqueAddr      = ":8766"
	defaultHTTPAddr        = ":8000"
	defaultEventsLog       = "events.log"
	defaultSettingsFile    = "settings.json"
	defaultHistorySize     = 200
	defaultPublishMs       = 500
	defaultCooldownSeconds = 5.0
	defaultArchiveDB       = "/var/lib/robomon/archive.db"
)

type Config struct {
	ThermalAddr     string  `mapstructure:"thermal_addr"`
	TorqueAddr      string  `mapstructure:"torque_addr"`
	HTTPAddr        string  `mapstructure:"http_addr"`
	EventsLog       string  `mapstructure:"events_log"`
	SettingsFile    string  `mapstructure:"settings_file"`
	HistorySize     int     `mapstructure:"history_size"`
	PublishMs       int     `mapstructure:"publish_interval_ms"`
	CooldownSeconds float64 `mapstructure:"cooldown_seconds"`
	Archive         bool    `mapstructure:"archive"`
	ArchiveDB       string  `mapstructure:"archive_db"`
	LogLevel        string  `mapstructure:"log_level"`
	LogFile         string  `mapstructure:"log_file"`
}

// Load reads configuration from defaults, an optional TOML file and
// command-line flags, in increasing order of precedence. The config file
// path can be forced with the ROBOMON_CONFIG environment variable or the
// --config flag.
func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("robomon", pflag.ContinueOnError)
	// Tolerate foreign flags, e.g. the test binary's -test.* set
	fs.ParseErrorsWhitelist.UnknownFlags = true
	configFlag := fs.String("config", "", "Path to config file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("thermal-addr", defaultThermalAddr, "Thermal ingest listen address")
	fs.String("torque-addr", defaultTorqueAddr, "Torque ingest listen address")
	fs.String("http-addr", defaultHTTPAddr, "HTTP listen address")
	fs.Bool("archive", false, "Enable the SQLite frame archive")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	configPath := os.Getenv("ROBOMON_CONFIG")
	if *configFlag != "" {
		configPath = *configFlag
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
		}
	} else {
		v.SetConfigName("robomon")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	// Command-line flags override file values
	flagKeys := map[string]string{
		"log-level":    "log_level",
		"thermal-addr": "thermal_addr",
		"torque-addr":  "torque_addr",
		"http-addr":    "http_addr",
		"archive":      "archive",
	}
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.HistorySize <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history_size must be positive")
	}
	if c.PublishMs <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "publish_interval_ms must be positive")
	}
	if c.CooldownSeconds <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "cooldown_seconds must be positive")
	}
	if c.Archive && c.ArchiveDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "archive enabled without archive_db")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("thermal_addr", defaultThermalAddr)
	v.SetDefault("torque_addr", defaultTorqueAddr)
	v.SetDefault("http_addr", defaultHTTPAddr)
	v.SetDefault("events_log", defaultEventsLog)
	v.SetDefault("settings_file", defaultSettingsFile)
	v.SetDefault("history_size", defaultHistorySize)
	v.SetDefault("publish_interval_ms", defaultPublishMs)
	v.SetDefault("cooldown_seconds", defaultCooldownSeconds)
	v.SetDefault("archive", false)
	v.SetDefault("archive_db", defaultArchiveDB)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
}
