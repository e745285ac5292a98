package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Port != "8080" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.RelayModel != "claude-sonnet-4-20250514" {
		t.Errorf("relay model = %q", cfg.RelayModel)
	}
	if cfg.RelayMaxTok != 1024 || cfg.RelayTimeout != 60*time.Second {
		t.Errorf("relay options: %d %v", cfg.RelayMaxTok, cfg.RelayTimeout)
	}
	if cfg.HistoryWindow != 20 || cfg.MaxToolRounds != 5 {
		t.Errorf("engine options: %d %d", cfg.HistoryWindow, cfg.MaxToolRounds)
	}
	if cfg.DailyMessageCap != 20 {
		t.Errorf("daily cap = %d", cfg.DailyMessageCap)
	}
	if cfg.NotableConfNBA != 60 || cfg.NotableConfNHL != 58 || cfg.NotableConfNCAAB != 62 {
		t.Errorf("thresholds: %v %v %v", cfg.NotableConfNBA, cfg.NotableConfNHL, cfg.NotableConfNCAAB)
	}
	if cfg.GradingCron != "0 */2 * * *" {
		t.Errorf("grading cron = %q", cfg.GradingCron)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DAILY_MESSAGE_CAP", "50")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("NOTABLE_CONF_NBA", "65")

	cfg := New()
	if cfg.Port != "9090" || cfg.DailyMessageCap != 50 {
		t.Errorf("overrides: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins: %v", cfg.AllowedOrigins)
	}
	if cfg.NotableConfNBA != 65 {
		t.Errorf("threshold override: %v", cfg.NotableConfNBA)
	}
}
