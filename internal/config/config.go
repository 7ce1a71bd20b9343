package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/ircapture/internal/capture"
	"codeberg.org/mutker/ircapture/internal/control"
	"codeberg.org/mutker/ircapture/internal/errors"
	"codeberg.org/mutker/ircapture/internal/logger"
	"codeberg.org/mutker/ircapture/internal/sensor"
	"codeberg.org/mutker/ircapture/internal/storage"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix     = "IRCAPTURE"
	EnvConfigPath = "IRCAPTURE_CONFIG"

	DefaultNATSURL         = "nats://localhost:4222"
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 5 * time.Second
)

type Config struct {
	SensorType       string
	ReadingFrequency int
	MinValue         *int
	MaxValue         *int
	DBURI            string
	RemoveExistingDB bool
	NATSURL          string
	Subject          string
	ShutdownTimeout  time.Duration
	StoreMaxFailures int
	LogLevel         string
}

// flag name -> config key
var flagKeys = map[string]string{
	"sensor-type":        "sensor_type",
	"reading-frequency":  "reading_frequency",
	"min-value":          "min_value",
	"max-value":          "max_value",
	"db-uri":             "db_uri",
	"remove-existing-db": "remove_existing_db",
	"nats-url":           "nats_url",
	"subject":            "subject",
	"shutdown-timeout":   "shutdown_timeout",
	"store-max-failures": "store_max_failures",
	"log-level":          "log_level",
}

// BindFlags registers every configuration flag on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a TOML configuration file")
	fs.String("sensor-type", "", "Type of sensor to use (mockup or real)")
	fs.Int("reading-frequency", 0, "Seconds between sensor readings")
	fs.Int("min-value", 0, "Minimum value of generated data (mockup only)")
	fs.Int("max-value", 0, "Maximum value of generated data (mockup only)")
	fs.String("db-uri", "", "URI of the SQLite database")
	fs.Bool("remove-existing-db", false, "Delete the database file before opening it")
	fs.String("nats-url", DefaultNATSURL, "NATS server URL")
	fs.String("subject", control.DefaultPattern, "Subject pattern for control messages")
	fs.Duration("shutdown-timeout", DefaultShutdownTimeout, "Maximum time to wait for the NATS connection to close")
	fs.Int("store-max-failures", 0, "Stop capturing after this many consecutive store failures (0 = never)")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
}

// Load resolves configuration from flags, environment, config file and
// defaults, in that order of precedence, and validates the result.
func Load(fs *pflag.FlagSet) (*Config, error) {
	errFactory := errors.New()
	v := viper.New()

	v.SetDefault("nats_url", DefaultNATSURL)
	v.SetDefault("subject", control.DefaultPattern)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	cfg := &Config{
		SensorType:       v.GetString("sensor_type"),
		ReadingFrequency: v.GetInt("reading_frequency"),
		DBURI:            v.GetString("db_uri"),
		RemoveExistingDB: v.GetBool("remove_existing_db"),
		NATSURL:          v.GetString("nats_url"),
		Subject:          v.GetString("subject"),
		ShutdownTimeout:  v.GetDuration("shutdown_timeout"),
		StoreMaxFailures: v.GetInt("store_max_failures"),
		LogLevel:         v.GetString("log_level"),
	}
	if v.IsSet("min_value") {
		n := v.GetInt("min_value")
		cfg.MinValue = &n
	}
	if v.IsSet("max_value") {
		n := v.GetInt("max_value")
		cfg.MaxValue = &n
	}

	// --verbose and --debug are shortcuts over log_level
	if changed(fs, "verbose") {
		cfg.LogLevel = "info"
	}
	if changed(fs, "debug") {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	errFactory := errors.New()

	path := os.Getenv(EnvConfigPath)
	if f := fs.Lookup("config"); f != nil && f.Changed {
		path = f.Value.String()
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName("ircapture")
	v.SetConfigType("toml")
	v.AddConfigPath("/etc")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed && f.Value.String() == "true"
}

// Validate checks every field. Sensor range problems are caught here so
// that a bad configuration never reaches the first sample.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.ReadingFrequency <= 0 {
		return errFactory.Wrap(errors.ErrInvalidConfig, errFactory.WithData(errors.ErrInvalidInterval, c.ReadingFrequency))
	}
	if err := c.SensorConfig().Validate(); err != nil {
		return err
	}
	if err := c.StorageConfig().Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if c.NATSURL == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "nats_url is required")
	}
	if c.Subject == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "subject is required")
	}
	if c.ShutdownTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "shutdown_timeout must be positive")
	}
	if c.StoreMaxFailures < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "store_max_failures must not be negative")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

func (c *Config) SensorConfig() sensor.Config {
	return sensor.Config{
		Kind:     sensor.Kind(c.SensorType),
		MinValue: c.MinValue,
		MaxValue: c.MaxValue,
	}
}

func (c *Config) CaptureConfig() capture.Config {
	return capture.Config{
		Interval:         time.Duration(c.ReadingFrequency) * time.Second,
		MaxStoreFailures: c.StoreMaxFailures,
	}
}

func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		DBURI:          c.DBURI,
		RemoveExisting: c.RemoveExistingDB,
	}
}

// Level returns the parsed log level. Only valid after Validate.
func (c *Config) Level() logger.LogLevel {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}
