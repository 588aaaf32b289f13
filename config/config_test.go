package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg := FromViper(viper.New())
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.IDRetryAttempts != 5 {
		t.Errorf("IDRetryAttempts = %d, want 5", cfg.IDRetryAttempts)
	}
	if cfg.ExportSchedule != "0 2 * * *" {
		t.Errorf("ExportSchedule = %q", cfg.ExportSchedule)
	}
	if cfg.StockCacheTTL != time.Minute {
		t.Errorf("StockCacheTTL = %v, want 1m", cfg.StockCacheTTL)
	}
	if cfg.CronSchedules()["sheets:export"] != "0 2 * * *" {
		t.Error("CronSchedules should expose the export schedule")
	}
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "Development")
	v.Set("APP_TIMEZONE", "UTC")
	v.Set("ID_RETRY_ATTEMPTS", 8)
	cfg := FromViper(v)
	if !cfg.IsDevelopment() {
		t.Error("APP_ENV should be normalised to development")
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if cfg.IDRetryAttempts != 8 {
		t.Errorf("IDRetryAttempts = %d, want 8", cfg.IDRetryAttempts)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("WH_TEST_INT", "42")
	t.Setenv("WH_TEST_BOOL", "true")
	if GetEnvInt("WH_TEST_INT", 0) != 42 {
		t.Error("GetEnvInt")
	}
	if !GetEnvBool("WH_TEST_BOOL", false) {
		t.Error("GetEnvBool")
	}
	if GetEnv("WH_TEST_MISSING", "def") != "def" {
		t.Error("GetEnv default")
	}
}
