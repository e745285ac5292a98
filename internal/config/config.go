package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// HTTP surface
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://mtlusa01.github.io"`

	// Relay (chat completion boundary)
	RelayURL     string        `env:"RELAY_URL"`
	RelayModel   string        `env:"RELAY_MODEL" envDefault:"claude-sonnet-4-20250514"`
	RelayMaxTok  int           `env:"RELAY_MAX_TOKENS" envDefault:"1024"`
	RelayTimeout time.Duration `env:"RELAY_TIMEOUT" envDefault:"60s"`

	// Upstream for cmd/relay only
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicURL    string `env:"ANTHROPIC_URL" envDefault:"https://api.anthropic.com/v1/messages"`

	// Data feeds
	FeedBaseURL string        `env:"FEED_BASE_URL" envDefault:"https://raw.githubusercontent.com/mtlusa01/mattev-sports/main/"`
	FeedTimeout time.Duration `env:"FEED_TIMEOUT" envDefault:"15s"`

	// Conversation engine
	HistoryWindow int `env:"HISTORY_WINDOW" envDefault:"20"`
	MaxToolRounds int `env:"MAX_TOOL_ROUNDS" envDefault:"5"`

	// Rate limiting
	DailyMessageCap int `env:"DAILY_MESSAGE_CAP" envDefault:"20"`

	// Per-sport notability cutoffs for the system prompt game sections
	NotableConfNBA   float64 `env:"NOTABLE_CONF_NBA" envDefault:"60"`
	NotableConfNHL   float64 `env:"NOTABLE_CONF_NHL" envDefault:"58"`
	NotableConfNCAAB float64 `env:"NOTABLE_CONF_NCAAB" envDefault:"62"`

	// Storage
	DBPath        string `env:"DB_PATH" envDefault:"data/assistant.db"`
	StateFilePath string `env:"STATE_FILE_PATH" envDefault:"data/state.json"`

	// Grading job
	GradingCron string `env:"GRADING_CRON" envDefault:"0 */2 * * *"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
