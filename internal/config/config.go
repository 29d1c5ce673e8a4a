package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken  string        `yaml:"-"`
	ChatIDs        []int64       `yaml:"-"`
	OwnerName      string        `yaml:"owner_name"`
	Storage        StorageConfig `yaml:"storage"`
	ReportInterval time.Duration `yaml:"-"`
	DailyPlanTime  string        `yaml:"daily_plan_time"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	LogLevel       string        `yaml:"log_level"`
}

// StorageConfig selects where the owner graph is persisted.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisKey    string `yaml:"redis_key"`
}

type fileConfig struct {
	Config              `yaml:",inline"`
	Telegram            telegramFile `yaml:"telegram"`
	ReportIntervalHours int          `yaml:"report_interval_hours"`
}

type telegramFile struct {
	Token   string  `yaml:"token"`
	ChatIDs []int64 `yaml:"chat_ids"`
}

// Load reads .env, then the optional YAML file named by PAWPAL_CONFIG, then
// environment variables, and fills in defaults.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("PAWPAL_CONFIG"))
}

// LoadFrom is Load with an explicit YAML path. An empty path skips the file.
func LoadFrom(path string) (Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	var cfg Config
	if path = strings.TrimSpace(path); path != "" {
		fromFile, err := LoadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fromFile
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// LoadFile parses a YAML config file without touching the environment.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg := fc.Config
	cfg.TelegramToken = fc.Telegram.Token
	cfg.ChatIDs = fc.Telegram.ChatIDs
	if fc.ReportIntervalHours > 0 {
		cfg.ReportInterval = time.Duration(fc.ReportIntervalHours) * time.Hour
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setString(&cfg.OwnerName, "OWNER_NAME")
	setString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	setString(&cfg.Storage.Path, "DATA_FILE")
	setString(&cfg.Storage.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Storage.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Storage.RedisKey, "REDIS_KEY")
	setString(&cfg.DailyPlanTime, "DAILY_PLAN_TIME")
	setString(&cfg.MetricsAddr, "METRICS_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_IDS")); raw != "" {
		ids, err := parseChatIDs(raw)
		if err != nil {
			return err
		}
		cfg.ChatIDs = ids
	}
	if raw := strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS")); raw != "" {
		cfg.ReportInterval = parseInterval(raw)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.OwnerName == "" {
		cfg.OwnerName = "Owner"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "json"
	}
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "pawpal_data.json"
	}
	if cfg.Storage.DatabaseURL == "" {
		cfg.Storage.DatabaseURL = "pawpal.db"
	}
	if cfg.Storage.RedisKey == "" {
		cfg.Storage.RedisKey = "pawpal:owner"
	}
	if cfg.DailyPlanTime == "" {
		cfg.DailyPlanTime = "08:00"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// ValidateBot checks the settings the Telegram bot cannot start without.
func (c Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

// AllowsChat reports whether chatID may talk to the bot. An empty list allows everyone.
func (c Config) AllowsChat(chatID int64) bool {
	if len(c.ChatIDs) == 0 {
		return true
	}
	for _, id := range c.ChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q in TELEGRAM_CHAT_IDS", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
