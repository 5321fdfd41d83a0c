// Package config loads the client configuration from flags, environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. WORKOUT_API_URL.
	EnvPrefix = "WORKOUT"

	appDirName     = ".workout-session"
	configFileName = "config"
)

// Config holds all configuration for the client.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Timer   TimerConfig   `mapstructure:"timer"`
	Log     LogConfig     `mapstructure:"log"`
	Workout WorkoutConfig `mapstructure:"workout"`
}

type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"` // zero means no client-side timeout
}

type SessionConfig struct {
	File string `mapstructure:"file"` // stored credentials
}

type TimerConfig struct {
	RestDefault int   `mapstructure:"rest_default"` // seconds
	QuickPicks  []int `mapstructure:"quick_picks"`  // seconds
}

type LogConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Stdout bool   `mapstructure:"stdout"`
}

type WorkoutConfig struct {
	DefaultDuration int `mapstructure:"default_duration"` // minutes, used by generate
}

// DefaultAPIURL is the hosted training API.
const DefaultAPIURL = "https://training-75d4130d2459.herokuapp.com/api"

var errInvalid = errors.New("invalid configuration")

// NewFlagSet declares the command line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (default ~/"+appDirName+"/config.yaml)")
	fs.String("api-url", "", "base URL of the training API")
	fs.Duration("api-timeout", 0, "timeout for a single API request (0 = none)")
	fs.String("session-file", "", "where login credentials are stored")
	fs.Int("rest", 0, "rest countdown baseline in seconds")
	fs.IntSlice("quick-picks", nil, "rest shortcuts in seconds")
	fs.String("log-file", "", "log file path")
	fs.String("log-level", "", "trace, debug, info, warn, error")
	fs.Bool("log-stdout", false, "also write logs to stdout")
	return fs
}

// flag name -> config key
var flagKeys = map[string]string{
	"api-url":      "api.url",
	"api-timeout":  "api.timeout",
	"session-file": "session.file",
	"rest":         "timer.rest_default",
	"quick-picks":  "timer.quick_picks",
	"log-file":     "log.file",
	"log-level":    "log.level",
	"log-stdout":   "log.stdout",
}

// Load builds the configuration. fs may be nil; when given it must already be
// parsed, and only flags the user actually set override other sources.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	appDir := defaultAppDir()
	setDefaults(v, appDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := ""
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		configPath, _ = fs.GetString("config")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(appDir)
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api.url %q", errInvalid, c.API.URL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: api.timeout %s", errInvalid, c.API.Timeout)
	}
	if c.Timer.RestDefault <= 0 {
		return fmt.Errorf("%w: timer.rest_default %d", errInvalid, c.Timer.RestDefault)
	}
	for _, s := range c.Timer.QuickPicks {
		if s <= 0 {
			return fmt.Errorf("%w: timer.quick_picks entry %d", errInvalid, s)
		}
	}
	if c.Workout.DefaultDuration <= 0 {
		return fmt.Errorf("%w: workout.default_duration %d", errInvalid, c.Workout.DefaultDuration)
	}
	if c.Session.File == "" {
		return fmt.Errorf("%w: session.file is empty", errInvalid)
	}
	return nil
}

// IsInvalid reports whether err came from Validate.
func IsInvalid(err error) bool {
	return errors.Is(err, errInvalid)
}

func setDefaults(v *viper.Viper, appDir string) {
	v.SetDefault("api.url", DefaultAPIURL)
	v.SetDefault("api.timeout", "0s")
	v.SetDefault("session.file", filepath.Join(appDir, "session.json"))
	v.SetDefault("timer.rest_default", 60)
	v.SetDefault("timer.quick_picks", []int{30, 60, 90, 120})
	v.SetDefault("log.file", filepath.Join(appDir, "workout-session.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.stdout", false)
	v.SetDefault("workout.default_duration", 45)
}

func defaultAppDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, appDirName)
}
