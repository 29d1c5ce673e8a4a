package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PAWPAL_CONFIG", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_IDS", "OWNER_NAME", "STORAGE_DRIVER",
		"DATA_FILE", "DATABASE_URL", "REDIS_ADDR", "REDIS_KEY", "REPORT_INTERVAL_HOURS",
		"DAILY_PLAN_TIME", "METRICS_ADDR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	// Keep godotenv from picking up a developer's .env.
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.OwnerName != "Owner" || cfg.Storage.Driver != "json" || cfg.Storage.Path != "pawpal_data.json" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DailyPlanTime != "08:00" || cfg.ReportInterval != 0 || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.ValidateBot(); err == nil {
		t.Fatal("ValidateBot should require a token")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_IDS", "42, 7")
	t.Setenv("STORAGE_DRIVER", "SQLITE")
	t.Setenv("REPORT_INTERVAL_HOURS", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("Driver = %q", cfg.Storage.Driver)
	}
	if cfg.ReportInterval != 6*time.Hour {
		t.Fatalf("ReportInterval = %v", cfg.ReportInterval)
	}
	if !cfg.AllowsChat(7) || cfg.AllowsChat(8) {
		t.Fatalf("chat allow-list wrong: %v", cfg.ChatIDs)
	}
	if err := cfg.ValidateBot(); err != nil {
		t.Fatalf("ValidateBot error: %v", err)
	}
}

func TestLoadBadChatID(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_CHAT_IDS", "42,abc")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed chat id")
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "pawpal.yaml")
	content := `owner_name: Jon
daily_plan_time: "07:30"
report_interval_hours: 4
telegram:
  token: from-file
  chat_ids: [1, 2]
storage:
  driver: redis
  redis_addr: localhost:6379
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PAWPAL_CONFIG", path)
	t.Setenv("OWNER_NAME", "Liz")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.OwnerName != "Liz" {
		t.Fatalf("env should override file, OwnerName = %q", cfg.OwnerName)
	}
	if cfg.DailyPlanTime != "07:30" || cfg.ReportInterval != 4*time.Hour {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.TelegramToken != "from-file" || len(cfg.ChatIDs) != 2 {
		t.Fatalf("telegram block lost: %+v", cfg)
	}
	if cfg.Storage.Driver != "redis" || cfg.Storage.RedisAddr != "localhost:6379" || cfg.Storage.RedisKey != "pawpal:owner" {
		t.Fatalf("storage block wrong: %+v", cfg.Storage)
	}
}

func TestParseInterval(t *testing.T) {
	t.Parallel()
	if got := parseInterval("3"); got != 3*time.Hour {
		t.Fatalf("parseInterval(3) = %v", got)
	}
	if got := parseInterval("-1"); got != 0 {
		t.Fatalf("parseInterval(-1) = %v", got)
	}
	if got := parseInterval("x"); got != 0 {
		t.Fatalf("parseInterval(x) = %v", got)
	}
}
