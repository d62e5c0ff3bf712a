package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/btrlrn/learnbuddy/internal/api"
	"github.com/btrlrn/learnbuddy/internal/flow"
	"github.com/btrlrn/learnbuddy/internal/genai"
	"github.com/btrlrn/learnbuddy/internal/geocode"
	"github.com/btrlrn/learnbuddy/internal/lesson"
	"github.com/btrlrn/learnbuddy/internal/lockfile"
	"github.com/btrlrn/learnbuddy/internal/messaging"
	"github.com/btrlrn/learnbuddy/internal/reminder"
	"github.com/btrlrn/learnbuddy/internal/scheduler"
	"github.com/btrlrn/learnbuddy/internal/store"
	"github.com/btrlrn/learnbuddy/internal/telegram"
	"github.com/btrlrn/learnbuddy/internal/twiliowhatsapp"
	"github.com/btrlrn/learnbuddy/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for LearnBuddy state data
	DefaultStateDir = "/var/lib/learnbuddy"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "learnbuddy.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lock, err := lockfile.AcquireLock(config.StateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := store.NewSQLiteStore(buildStoreOptions(config)...)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ai, err := genai.NewClient(buildGenAIOptions(config)...)
	if err != nil {
		slog.Error("Failed to create GenAI client", "error", err)
		os.Exit(1)
	}

	gen := lesson.NewGenerator(ai)
	geo := geocode.NewClient()
	engine := flow.NewEngine(st, gen, geo)

	sender, err := twiliowhatsapp.NewClient(buildTwilioOptions(config)...)
	if err != nil {
		slog.Error("Failed to create Twilio client", "error", err)
		os.Exit(1)
	}

	router := messaging.NewRouter()
	router.Register("whatsapp:", sender)

	apiOpts := buildAPIOptions(config)
	errCh := make(chan error, 2)

	if config.TelegramToken != "" {
		bot, err := telegram.NewBot(engine, st, buildTelegramOptions(config)...)
		if err != nil {
			slog.Error("Failed to create Telegram bot", "error", err)
			os.Exit(1)
		}
		router.Register("telegram:", bot)
		if config.TelegramSecret != "" {
			apiOpts = append(apiOpts, api.WithTelegramWebhook(config.TelegramSecret, bot.HandleWebhookUpdate))
		} else {
			go func() { errCh <- bot.Run(ctx) }()
		}
	} else {
		slog.Info("No TELEGRAM_BOT_TOKEN set, Telegram channel disabled")
	}

	if config.ReminderEnabled {
		sched := scheduler.NewScheduler()
		defer sched.Stop()
		if err := reminder.NewReminder(st, router, buildReminderOptions(config)...).Schedule(sched); err != nil {
			slog.Error("Failed to schedule reminder job", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("Reminder job disabled")
	}

	server := api.NewServer(engine, sender, apiOpts...)
	go func() { errCh <- server.Run(ctx) }()

	slog.Info("LearnBuddy started")
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			slog.Error("LearnBuddy failed to run", "error", err)
			stop()
			os.Exit(1)
		}
	}
	stop()
	slog.Info("LearnBuddy exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir        string
	DatabaseURL     string
	OpenAIKey       string
	APIAddr         string
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	TelegramToken   string
	TelegramSecret  string
	AdminIDs        []int64
	ReminderCron    string
	ReminderEnabled bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:        os.Getenv("LEARNBUDDY_STATE_DIR"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		TwilioSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:      os.Getenv("TWILIO_FROM_NUMBER"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramSecret:  os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		AdminIDs:        parseAdminIDs(os.Getenv("TELEGRAM_ADMIN_IDS")),
		ReminderCron:    os.Getenv("REMINDER_CRON"),
		ReminderEnabled: util.ParseBoolEnv("REMINDER_ENABLED", true),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No LEARNBUDDY_STATE_DIR set, using default", "state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"LEARNBUDDY_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"TWILIO_SET", config.TwilioSID != "",
		"TELEGRAM_SET", config.TelegramToken != "",
		"ADMIN_IDS", len(config.AdminIDs))

	return config
}

// parseAdminIDs splits a comma-separated list of Telegram chat IDs.
func parseAdminIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			slog.Warn("Skipping invalid admin ID", "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(config Config) []store.Option {
	var opts []store.Option
	if config.DatabaseURL != "" {
		opts = append(opts, store.WithSQLiteDSN(config.DatabaseURL))
	}
	return opts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(config Config) []genai.Option {
	var opts []genai.Option
	if config.OpenAIKey != "" {
		opts = append(opts, genai.WithAPIKey(config.OpenAIKey))
	}
	return opts
}

// buildTwilioOptions constructs Twilio configuration options
func buildTwilioOptions(config Config) []twiliowhatsapp.Option {
	var opts []twiliowhatsapp.Option
	if config.TwilioSID != "" {
		opts = append(opts, twiliowhatsapp.WithAccountSID(config.TwilioSID))
	}
	if config.TwilioToken != "" {
		opts = append(opts, twiliowhatsapp.WithAuthToken(config.TwilioToken))
	}
	if config.TwilioFrom != "" {
		opts = append(opts, twiliowhatsapp.WithFromWhats(config.TwilioFrom))
	}
	return opts
}

// buildTelegramOptions constructs Telegram configuration options
func buildTelegramOptions(config Config) []telegram.Option {
	var opts []telegram.Option
	if config.TelegramToken != "" {
		opts = append(opts, telegram.WithToken(config.TelegramToken))
	}
	if len(config.AdminIDs) > 0 {
		opts = append(opts, telegram.WithAdminIDs(config.AdminIDs))
	}
	return opts
}

// buildReminderOptions constructs reminder configuration options
func buildReminderOptions(config Config) []reminder.Option {
	var opts []reminder.Option
	if config.ReminderCron != "" {
		opts = append(opts, reminder.WithCronSpec(config.ReminderCron))
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(config Config) []api.Option {
	var opts []api.Option
	if config.APIAddr != "" {
		opts = append(opts, api.WithAddr(config.APIAddr))
	}
	return opts
}
