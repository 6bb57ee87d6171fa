package models

import (
	"time"

	"scrapebot/internal/constants"
)

// Config holds the application configuration. It is built once at startup
// and passed by value or pointer to every component; nothing mutates it afterwards.
type Config struct {
	Slack     SlackConfig   `mapstructure:"slack"`
	Sheets    SheetsConfig  `mapstructure:"sheets"`
	Queue     QueueConfig   `mapstructure:"queue"`
	Server    ServerConfig  `mapstructure:"server"`
	Worker    WorkerConfig  `mapstructure:"worker"`
	Tracing   TracingConfig `mapstructure:"tracing"`
	LogLevel  string        `mapstructure:"log_level"`
	LogFormat string        `mapstructure:"log_format"`
}

// SlackConfig holds Slack related configurations
type SlackConfig struct {
	BotToken        string  `mapstructure:"bot_token"`
	AppToken        string  `mapstructure:"app_token"`
	SigningSecret   string  `mapstructure:"signing_secret"`
	Mode            string  `mapstructure:"mode"` // "socket" or "http"
	SlashCommand    string  `mapstructure:"slash_command"`
	ReplyRatePerSec float64 `mapstructure:"reply_rate_per_sec"`
	ReplyRateBurst  int     `mapstructure:"reply_rate_burst"`
	Debug           bool    `mapstructure:"debug"`
}

// SheetsConfig holds Google Sheets related configurations
type SheetsConfig struct {
	CredentialsFile string        `mapstructure:"credentials_file"`
	SpreadsheetID   string        `mapstructure:"spreadsheet_id"`
	SheetName       string        `mapstructure:"sheet_name"`
	Timeout         time.Duration `mapstructure:"-"`
	MaxReadRetries  int           `mapstructure:"max_read_retries"`
}

// QueueConfig selects the queue backend
type QueueConfig struct {
	Backend          string `mapstructure:"backend"` // "sheets" or "sqlite"
	DBPath           string `mapstructure:"db_path"`
	EncryptionSecret string `mapstructure:"encryption_secret"`
}

// ServerConfig holds admin/webhook HTTP server settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// WorkerConfig bounds concurrent event handling
type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// TracingConfig holds OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	UseStdout    bool    `mapstructure:"use_stdout"`
	Environment  string  `mapstructure:"environment"`
}

// QueueRange returns the full-queue range, e.g. "Scrape Requests!A:E".
func (c *Config) QueueRange() string {
	return c.Sheets.SheetName + "!" + constants.QueueColumnRange
}

// HeaderRange returns the header row range, e.g. "Scrape Requests!A1:E1".
func (c *Config) HeaderRange() string {
	return c.Sheets.SheetName + "!" + constants.QueueHeaderRange
}
