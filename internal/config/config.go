package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. MARKETQUOTE_PROVIDER.
const EnvPrefix = "MARKETQUOTE"

type Yahoo struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// Window is the default period and interval for a history command.
type Window struct {
	Period   string `mapstructure:"period"`
	Interval string `mapstructure:"interval"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Server struct {
	Port string `mapstructure:"port"`
}

type Config struct {
	// Provider selects the upstream: "yahoo" or "financego".
	Provider          string `mapstructure:"provider"`
	Timezone          string `mapstructure:"timezone"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
	Yahoo             Yahoo  `mapstructure:"yahoo"`
	History           Window `mapstructure:"history"`
	Intraday          Window `mapstructure:"intraday"`
	Log               Log    `mapstructure:"log"`
	Server            Server `mapstructure:"server"`
}

func Default() Config {
	return Config{
		Provider:          "yahoo",
		Timezone:          "Local",
		RequestTimeoutSec: 15,
		Yahoo: Yahoo{
			BaseURL:   "https://query1.finance.yahoo.com",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:140.0) Gecko/20100101 Firefox/140.0",
		},
		History:  Window{Period: "1mo", Interval: "1d"},
		Intraday: Window{Period: "1d", Interval: "1m"},
		Log:      Log{Level: "warn"},
		Server:   Server{Port: "8080"},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"provider":  "provider",
	"timezone":  "timezone",
	"timeout":   "request_timeout_sec",
	"base-url":  "yahoo.base_url",
	"log-level": "log.level",
	"dev-log":   "log.development",
	"port":      "server.port",
}

// Load reads JSON config from path. If path is empty, config.json in the
// working directory is used when present. Environment variables prefixed
// with MARKETQUOTE_ override the file, and any flag in fs that was set
// overrides both.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Default(), fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Default(), fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("provider", d.Provider)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("request_timeout_sec", d.RequestTimeoutSec)
	v.SetDefault("yahoo.base_url", d.Yahoo.BaseURL)
	v.SetDefault("yahoo.user_agent", d.Yahoo.UserAgent)
	v.SetDefault("history.period", d.History.Period)
	v.SetDefault("history.interval", d.History.Interval)
	v.SetDefault("intraday.period", d.Intraday.Period)
	v.SetDefault("intraday.interval", d.Intraday.Interval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("server.port", d.Server.Port)
}

// Location resolves Timezone; "" and "Local" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// RequestTimeout is the upper bound for one provider call.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return time.Duration(Default().RequestTimeoutSec) * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
