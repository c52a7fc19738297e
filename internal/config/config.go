package config

import (
	"fmt"
	"os"
	"strings"

	"exeq/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	cfg.expandEnv()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch re-reads the file on change and applies the runtime-adjustable
// settings (currently the log level). Structural changes need a restart.
func Watch(path string) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("config: watch disabled, read failed: %v", err)
		return
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			logger.Warnf("config: reload failed (%s): %v", evt.Name, err)
			return
		}
		level := v.GetString("app.log_level")
		logger.SetLevel(level)
		logger.Infof("config: reloaded, log level now %q", level)
	})
	v.WatchConfig()
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8000"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "data/exeq.db"
	}
	if c.Reconcile.TradeLookbackSeconds <= 0 {
		c.Reconcile.TradeLookbackSeconds = 5
	}
	if c.Reconcile.RequestTimeoutSeconds <= 0 {
		c.Reconcile.RequestTimeoutSeconds = 15
	}
	if c.Notify.Mail.Port <= 0 {
		c.Notify.Mail.Port = 587
	}
}

// expandEnv resolves ${VAR} references in credential fields.
func (c *Config) expandEnv() {
	expand := func(s string) string { return os.ExpandEnv(s) }
	c.Database.DSN = expand(c.Database.DSN)
	c.Notify.Telegram.BotToken = expand(c.Notify.Telegram.BotToken)
	c.Notify.Mail.Username = expand(c.Notify.Mail.Username)
	c.Notify.Mail.Password = expand(c.Notify.Mail.Password)
	for _, vc := range []*VenueConfig{&c.Venues.Binance, &c.Venues.Gate} {
		vc.APIKey = expand(vc.APIKey)
		vc.APISecret = expand(vc.APISecret)
	}
}

func validate(c *Config) error {
	switch c.App.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid app.env %q (want dev or prod)", c.App.Env)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q (want sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	enabled := 0
	for name, vc := range map[string]VenueConfig{"binance": c.Venues.Binance, "gate": c.Venues.Gate} {
		if !vc.Enabled {
			continue
		}
		enabled++
		if vc.APIKey == "" || vc.APISecret == "" {
			return fmt.Errorf("venue %s enabled but credentials are missing", name)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no venue enabled")
	}
	return nil
}
