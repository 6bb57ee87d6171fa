package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scrapebot/internal/constants"
	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/models"
	"scrapebot/internal/security"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that set them
var envBindings = []struct {
	key string
	env string
}{
	{"slack.bot_token", "SLACK_BOT_TOKEN"},
	{"slack.app_token", "SLACK_APP_TOKEN"},
	{"slack.signing_secret", "SLACK_SIGNING_SECRET"},
	{"slack.mode", "SLACK_MODE"},
	{"slack.slash_command", "SLASH_COMMAND"},
	{"slack.reply_rate_per_sec", "REPLY_RATE_PER_SEC"},
	{"slack.reply_rate_burst", "REPLY_RATE_BURST"},
	{"slack.debug", "SLACK_DEBUG"},
	{"sheets.credentials_file", "GOOGLE_CREDENTIALS_FILE"},
	{"sheets.spreadsheet_id", "SPREADSHEET_ID"},
	{"sheets.sheet_name", "SHEET_NAME"},
	{"sheets.timeout_sec", "SHEETS_TIMEOUT_SEC"},
	{"sheets.max_read_retries", "SHEETS_MAX_READ_RETRIES"},
	{"queue.backend", "QUEUE_BACKEND"},
	{"queue.db_path", "QUEUE_DB_PATH"},
	{"queue.encryption_secret", "QUEUE_ENCRYPTION_SECRET"},
	{"server.port", "SERVER_PORT"},
	{"worker.pool_size", "WORKER_POOL_SIZE"},
	{"tracing.enabled", "TRACING_ENABLED"},
	{"tracing.otlp_endpoint", "TRACING_OTLP_ENDPOINT"},
	{"tracing.sample_rate", "TRACING_SAMPLE_RATE"},
	{"tracing.use_stdout", "TRACING_USE_STDOUT"},
	{"tracing.environment", "TRACING_ENVIRONMENT"},
	{"log_level", "LOG_LEVEL"},
	{"log_format", "LOG_FORMAT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("slack.mode", constants.SlackModeSocket)
	v.SetDefault("slack.slash_command", constants.DefaultSlashCommand)
	v.SetDefault("slack.reply_rate_per_sec", constants.DefaultReplyRatePerSec)
	v.SetDefault("slack.reply_rate_burst", constants.DefaultReplyRateBurst)
	v.SetDefault("slack.debug", false)

	v.SetDefault("sheets.credentials_file", constants.DefaultCredentialsFile)
	v.SetDefault("sheets.sheet_name", constants.DefaultSheetName)
	v.SetDefault("sheets.timeout_sec", constants.DefaultSheetsTimeoutSec)
	v.SetDefault("sheets.max_read_retries", constants.DefaultSheetsMaxReadRetries)

	v.SetDefault("queue.backend", constants.QueueBackendSheets)
	v.SetDefault("queue.db_path", constants.DefaultQueueDBPath)

	v.SetDefault("server.port", constants.DefaultServerPort)
	v.SetDefault("worker.pool_size", constants.DefaultWorkerPoolSize)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.use_stdout", false)
	v.SetDefault("tracing.environment", "production")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// LoadConfig builds the configuration from defaults, the optional file at path
// and the process environment, in increasing priority. A path ending in
// .yaml, .yml or .json is read by viper; anything else is treated as a
// dotenv file. A missing file is not an error.
func LoadConfig(path string) (*models.Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if err := security.ValidateFilePath(path); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := readFile(v, path); err != nil {
			return nil, err
		}
	}

	for _, b := range envBindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", b.env, err)
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Sheets.Timeout = time.Duration(v.GetInt("sheets.timeout_sec")) * time.Second
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read env file: %w", err)
	}
	// File values sit between the built-in defaults and the environment.
	for _, b := range envBindings {
		if value, ok := values[b.env]; ok {
			v.SetDefault(b.key, value)
		}
	}
	return nil
}

func normalize(c *models.Config) {
	c.Slack.Mode = strings.ToLower(strings.TrimSpace(c.Slack.Mode))
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	if c.Slack.SlashCommand != "" && !strings.HasPrefix(c.Slack.SlashCommand, "/") {
		c.Slack.SlashCommand = "/" + c.Slack.SlashCommand
	}
	if c.Worker.PoolSize <= 0 {
		c.Worker.PoolSize = constants.DefaultWorkerPoolSize
	}
	if c.Sheets.MaxReadRetries < 0 {
		c.Sheets.MaxReadRetries = 0
	}
	if c.Sheets.Timeout <= 0 {
		c.Sheets.Timeout = constants.DefaultSheetsTimeoutSec * time.Second
	}
}

// Validate reports every missing required value in one MissingConfigError.
// Values that are present but unusable are reported as configuration errors
// after the missing ones.
func Validate(c *models.Config) error {
	var missing []string

	if c.Slack.BotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	switch c.Slack.Mode {
	case constants.SlackModeSocket:
		if c.Slack.AppToken == "" {
			missing = append(missing, "SLACK_APP_TOKEN")
		}
	case constants.SlackModeHTTP:
		if c.Slack.SigningSecret == "" {
			missing = append(missing, "SLACK_SIGNING_SECRET")
		}
	}

	switch c.Queue.Backend {
	case constants.QueueBackendSheets:
		if !fileExists(c.Sheets.CredentialsFile) {
			missing = append(missing, fmt.Sprintf("GOOGLE_CREDENTIALS_FILE (%s)", c.Sheets.CredentialsFile))
		}
		if c.Sheets.SpreadsheetID == "" {
			missing = append(missing, "SPREADSHEET_ID")
		}
	case constants.QueueBackendSQLite:
		if c.Queue.DBPath == "" {
			missing = append(missing, "QUEUE_DB_PATH")
		}
	}

	if len(missing) > 0 {
		return &apperrors.MissingConfigError{Names: missing}
	}

	if c.Slack.Mode != constants.SlackModeSocket && c.Slack.Mode != constants.SlackModeHTTP {
		return apperrors.NewConfigError("SLACK_MODE", fmt.Sprintf("unsupported Slack mode %q (use socket or http)", c.Slack.Mode))
	}
	if c.Queue.Backend != constants.QueueBackendSheets && c.Queue.Backend != constants.QueueBackendSQLite {
		return apperrors.NewConfigError("QUEUE_BACKEND", fmt.Sprintf("unsupported queue backend %q (use sheets or sqlite)", c.Queue.Backend))
	}
	if c.Sheets.SheetName == "" {
		return apperrors.NewConfigError("SHEET_NAME", "sheet name cannot be empty")
	}
	if secret := c.Queue.EncryptionSecret; secret != "" && len(secret) < constants.MinEncryptionSecretLen {
		return apperrors.NewConfigError("QUEUE_ENCRYPTION_SECRET", fmt.Sprintf("encryption secret must be at least %d characters", constants.MinEncryptionSecretLen))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.NewConfigError("SERVER_PORT", fmt.Sprintf("invalid port %d", c.Server.Port))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return apperrors.NewConfigError("LOG_FORMAT", fmt.Sprintf("unsupported log format %q (use json or text)", c.LogFormat))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return apperrors.NewConfigError("TRACING_SAMPLE_RATE", "sample rate must be between 0 and 1")
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
