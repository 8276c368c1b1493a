package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	applog "aspirebot/internal/log"
)

// Transport modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Submission backends.
const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendQueued = "queued"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	GSheet   GSheetConfig   `mapstructure:"gsheet"`
	Bot      BotConfig      `mapstructure:"bot"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token          string `mapstructure:"telegram_token"`
	RestrictAccess bool   `mapstructure:"restrict_access"`
	// Users is filled from list_of_users, which may be a TOML array or a
	// comma separated string from the environment.
	Users       []int64 `mapstructure:"-"`
	Mode        string  `mapstructure:"mode"`
	WebhookURL  string  `mapstructure:"webhook_url"`
	ListenAddr  string  `mapstructure:"listen_addr"`
	PollTimeout int     `mapstructure:"poll_timeout"`
}

type GSheetConfig struct {
	CredentialsFile    string `mapstructure:"gsheet_api_key_filepath"`
	CredentialsJSON    string `mapstructure:"credentials_json"`
	SpreadsheetID      string `mapstructure:"gsheet_worksheet_id"`
	ConfigurationRange string `mapstructure:"configuration_range"`
	CategoriesRange    string `mapstructure:"categories_range"`
	AccountsRange      string `mapstructure:"accounts_range"`
	DatesRange         string `mapstructure:"dates_range"`
}

type BotConfig struct {
	Timezone           string        `mapstructure:"timezone"`
	CurrencySymbol     string        `mapstructure:"currency_symbol"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	MaxSessions        int           `mapstructure:"max_sessions"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
}

type BackendConfig struct {
	Type    string `mapstructure:"type"`
	DataDir string `mapstructure:"data_dir"`
}

type QueueConfig struct {
	SQLitePath    string        `mapstructure:"sqlite_path"`
	AMQPURL       string        `mapstructure:"amqp_url"`
	Exchange      string        `mapstructure:"exchange"`
	Queue         string        `mapstructure:"queue"`
	SyncBatchSize int           `mapstructure:"sync_batch_size"`
	SyncInterval  time.Duration `mapstructure:"sync_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.telegram_token", "")
	v.SetDefault("telegram.restrict_access", false)
	v.SetDefault("telegram.list_of_users", "")
	v.SetDefault("telegram.mode", ModePolling)
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.listen_addr", ":8080")
	v.SetDefault("telegram.poll_timeout", 60)

	v.SetDefault("gsheet.gsheet_api_key_filepath", "")
	v.SetDefault("gsheet.credentials_json", "")
	v.SetDefault("gsheet.gsheet_worksheet_id", "")
	v.SetDefault("gsheet.configuration_range", "r_ConfigurationData")
	v.SetDefault("gsheet.categories_range", "TransactionCategories")
	v.SetDefault("gsheet.accounts_range", "cfg_Accounts")
	v.SetDefault("gsheet.dates_range", "trx_Dates")

	v.SetDefault("bot.timezone", "Asia/Jakarta")
	v.SetDefault("bot.currency_symbol", "Rp")
	v.SetDefault("bot.session_ttl", 24*time.Hour)
	v.SetDefault("bot.max_sessions", 1000)
	v.SetDefault("bot.rate_limit_per_minute", 30)

	v.SetDefault("backend.type", BackendMemory)
	v.SetDefault("backend.data_dir", "./data")

	v.SetDefault("queue.sqlite_path", "./data/aspirebot.db")
	v.SetDefault("queue.amqp_url", "")
	v.SetDefault("queue.exchange", "aspirebot")
	v.SetDefault("queue.queue", "sync_transactions")
	v.SetDefault("queue.sync_batch_size", 10)
	v.SetDefault("queue.sync_interval", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", applog.FormatText)
}

// Load reads defaults, then the TOML file at path (or config.toml in the
// working directory or ~/.config/aspirebot when path is empty), then the
// environment. Environment keys are the dotted keys upper-cased with "."
// replaced by "_", e.g. TELEGRAM_TELEGRAM_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "aspirebot"))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	users, err := parseUsers(v.Get("telegram.list_of_users"))
	if err != nil {
		return nil, fmt.Errorf("telegram.list_of_users: %w", err)
	}
	cfg.Telegram.Users = users
	return &cfg, nil
}

// parseUsers accepts a TOML array of integers or a string of IDs
// separated by commas or spaces.
func parseUsers(raw any) ([]int64, error) {
	var fields []string
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		fields = strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	case []int64:
		return append([]int64(nil), val...), nil
	case []any:
		for _, item := range val {
			fields = append(fields, strings.TrimSpace(fmt.Sprint(item)))
		}
	case []string:
		fields = val
	default:
		return nil, fmt.Errorf("unsupported type %T", raw)
	}

	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Bot.Timezone)
}

// Validate checks everything the bot process needs.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateWorker checks everything the sync worker needs. The Telegram
// section is not used there. Without an AMQP URL the worker only runs its
// periodic sweep.
func (c *Config) ValidateWorker() error {
	return c.validate(false)
}

func (c *Config) validate(bot bool) error {
	var errors []string

	if bot {
		if c.Telegram.Token == "" {
			errors = append(errors, "telegram token is required")
		}
		switch c.Telegram.Mode {
		case ModePolling:
		case ModeWebhook:
			if u, err := url.Parse(c.Telegram.WebhookURL); err != nil || u.Scheme != "https" || u.Host == "" {
				errors = append(errors, fmt.Sprintf("invalid webhook URL '%s': must be an https URL", c.Telegram.WebhookURL))
			}
			if c.Telegram.ListenAddr == "" {
				errors = append(errors, "listen address is required in webhook mode")
			}
		default:
			errors = append(errors, fmt.Sprintf("invalid telegram mode '%s': must be one of [%s %s]", c.Telegram.Mode, ModePolling, ModeWebhook))
		}
		if c.Telegram.RestrictAccess && len(c.Telegram.Users) == 0 {
			errors = append(errors, "restrict_access is set but list_of_users is empty")
		}
		if c.Bot.MaxSessions < 1 {
			errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.Bot.MaxSessions))
		}
		if c.Bot.RateLimitPerMinute < 0 {
			errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.Bot.RateLimitPerMinute))
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Bot.Timezone, err))
	}

	validBackends := []string{BackendMemory, BackendSheets, BackendQueued}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.Backend.Type == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid backend '%s': must be one of %v", c.Backend.Type, validBackends))
	}

	if c.Backend.Type != BackendMemory || !bot {
		if c.GSheet.SpreadsheetID == "" {
			errors = append(errors, "spreadsheet ID is required for the sheets and queued backends")
		}
		if c.GSheet.CredentialsFile == "" && c.GSheet.CredentialsJSON == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either gsheet_api_key_filepath or credentials_json must be provided")
		}
		if c.GSheet.CredentialsFile != "" {
			if _, err := os.Stat(c.GSheet.CredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("service account file does not exist: %s", c.GSheet.CredentialsFile))
			}
		}
	}

	if c.Backend.Type == BackendQueued || !bot {
		if c.Queue.SQLitePath == "" {
			errors = append(errors, "SQLite path cannot be empty when using the queued backend")
		}
		if c.Queue.AMQPURL != "" {
			if parsedURL, err := url.Parse(c.Queue.AMQPURL); err != nil {
				errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.Queue.AMQPURL, err))
			} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
				errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
			}
			if c.Queue.Exchange == "" {
				errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
			}
			if c.Queue.Queue == "" {
				errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
			}
		}
		if c.Queue.SyncBatchSize < 1 {
			errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.Queue.SyncBatchSize))
		} else if c.Queue.SyncBatchSize > 1000 {
			errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.Queue.SyncBatchSize))
		}
		if c.Queue.SyncInterval < time.Second {
			errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.Queue.SyncInterval))
		} else if c.Queue.SyncInterval > 24*time.Hour {
			errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.Queue.SyncInterval))
		}
	}

	if _, err := applog.ParseLevel(c.Log.Level); err != nil {
		errors = append(errors, err.Error())
	}
	if !applog.ValidFormat(c.Log.Format) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json pretty]", c.Log.Format))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
