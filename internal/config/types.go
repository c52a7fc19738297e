package config

import "time"

// Config is the top-level configuration carrier.
type Config struct {
	App       AppConfig       `toml:"app"`
	Database  DatabaseConfig  `toml:"database"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Notify    NotifyConfig    `toml:"notify"`
	Venues    VenuesConfig    `toml:"venues"`
}

type AppConfig struct {
	Env      string `toml:"env"` // dev | prod
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"` // sqlite | postgres
	DSN    string `toml:"dsn"`
	// AuditPath is a standalone SQLite file for the engine's append-only
	// action trail. Empty disables auditing.
	AuditPath string `toml:"audit_path"`
}

// ReconcileConfig tunes the reconciliation paths. TradeLookbackSeconds is
// the clock-skew tolerance subtracted from an order's creation time when
// fetching its trades; PollIntervalSeconds of 0 disables the background
// poll loop (HTTP-triggered runs still work).
type ReconcileConfig struct {
	TradeLookbackSeconds  int `toml:"trade_lookback_seconds"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	PollIntervalSeconds   int `toml:"poll_interval_seconds"`
}

func (r ReconcileConfig) TradeLookback() time.Duration {
	return time.Duration(r.TradeLookbackSeconds) * time.Second
}

func (r ReconcileConfig) RequestTimeout() time.Duration {
	return time.Duration(r.RequestTimeoutSeconds) * time.Second
}

func (r ReconcileConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalSeconds) * time.Second
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
	Mail     MailConfig     `toml:"mail"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type MailConfig struct {
	Enabled    bool     `toml:"enabled"`
	Host       string   `toml:"host"`
	Port       int      `toml:"port"`
	Username   string   `toml:"username"`
	Password   string   `toml:"password"`
	From       string   `toml:"from"`
	Recipients []string `toml:"recipients"`
}

type VenuesConfig struct {
	Binance VenueConfig `toml:"binance"`
	Gate    VenueConfig `toml:"gate"`
}

// VenueConfig holds one venue's credentials and ledger addressing. API keys
// support ${ENV_VAR} expansion so secrets stay out of the file.
type VenueConfig struct {
	Enabled       bool   `toml:"enabled"`
	MarketCode    string `toml:"market_code"`
	QuoteCurrency string `toml:"quote_currency"`
	APIKey        string `toml:"api_key"`
	APISecret     string `toml:"api_secret"`
}
