package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"edge-analyst/internal/api"
	"edge-analyst/internal/chat"
	"edge-analyst/internal/config"
	"edge-analyst/internal/feeds"
	"edge-analyst/internal/grading"
	"edge-analyst/internal/localstate"
	"edge-analyst/internal/logging"
	"edge-analyst/internal/profile"
	"edge-analyst/internal/ratelimit"
	"edge-analyst/internal/relay"
	"edge-analyst/internal/scheduler"
	"edge-analyst/internal/session"
	"edge-analyst/internal/store"
	"edge-analyst/internal/tools"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if cfg.RelayURL == "" {
		log.Fatal("RELAY_URL is required")
	}

	logger, err := logging.New(os.Getenv("DEBUG") != "")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	var st store.Store
	if cfg.DBPath != "" {
		st, err = store.NewSQLite(cfg.DBPath)
		if err != nil {
			logger.Fatal("failed to open store", zap.Error(err))
		}
	} else {
		logger.Warn("no DB_PATH configured, using in-memory store")
		st = store.NewMemory()
	}
	defer func() { _ = st.Close() }()

	state, err := localstate.NewFileStore(cfg.StateFilePath)
	if err != nil {
		logger.Fatal("failed to open state file", zap.Error(err))
	}

	profiles := profile.New(st)
	limiter := ratelimit.New(state, cfg.DailyMessageCap)
	executor := tools.New(st, logger)
	sessions := session.NewManager(st, logger)

	agg := feeds.New(cfg.FeedBaseURL, cfg.FeedTimeout, feeds.Thresholds{
		NBA:   cfg.NotableConfNBA,
		NHL:   cfg.NotableConfNHL,
		NCAAB: cfg.NotableConfNCAAB,
	}, logger)

	relayClient := relay.NewHTTP(cfg.RelayURL, cfg.RelayTimeout)

	engine := chat.New(relayClient, agg, sessions, limiter, executor, profiles, state, logger, chat.Options{
		Model:         cfg.RelayModel,
		MaxTokens:     cfg.RelayMaxTok,
		HistoryWindow: cfg.HistoryWindow,
		MaxToolRounds: cfg.MaxToolRounds,
	})

	grader := grading.New(st, grading.NewOddsAPISource(os.Getenv("ODDS_API_KEY")), logger)

	sched := scheduler.New(logger)
	sched.SetGradeFunction(grader.Run)
	if err := sched.Start(cfg.GradingCron); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	server := api.NewServer(engine, sessions, limiter, profiles, grader, logger)

	addr := ":" + cfg.Port
	logger.Info("assistant listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, server.Routes(cfg.AllowedOrigins)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
