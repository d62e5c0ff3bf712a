// Package telegram adapts the conversation engine to Telegram: long polling,
// inline keyboards for choices, contact sharing, and an admin stats command.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/btrlrn/learnbuddy/internal/flow"
	"github.com/btrlrn/learnbuddy/internal/models"
	"github.com/btrlrn/learnbuddy/internal/store"
)

// DefaultPollTimeout is the long-poll timeout in seconds.
const DefaultPollTimeout = 30

// choicesPerRow caps inline keyboard row width.
const choicesPerRow = 2

// Opts holds configuration options for the Telegram bot.
type Opts struct {
	Token       string
	AdminIDs    []int64
	PollTimeout int
}

// Option configures the Telegram bot.
type Option func(*Opts)

// WithToken sets the bot token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithAdminIDs sets the chat IDs allowed to run /adminstats.
func WithAdminIDs(ids []int64) Option {
	return func(o *Opts) { o.AdminIDs = ids }
}

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(o *Opts) { o.PollTimeout = seconds }
}

// botAPI is the slice of tgbotapi.BotAPI the bot uses, extracted for tests.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot drives Telegram conversations through the engine.
type Bot struct {
	engine      *flow.Engine
	store       store.Store
	admins      map[int64]bool
	pollTimeout int

	client botAPI
	tasks  sync.WaitGroup
}

// NewBot creates a Telegram bot, falling back to the TELEGRAM_BOT_TOKEN
// environment variable when no token option is given.
func NewBot(engine *flow.Engine, st store.Store, opts ...Option) (*Bot, error) {
	cfg := Opts{PollTimeout: DefaultPollTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token must be provided")
	}

	client, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", client.Self.UserName)
	return newBot(client, engine, st, cfg), nil
}

func newBot(client botAPI, engine *flow.Engine, st store.Store, cfg Opts) *Bot {
	admins := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	return &Bot{
		client:      client,
		engine:      engine,
		store:       st,
		admins:      admins,
		pollTimeout: cfg.PollTimeout,
	}
}

// Run long-polls for updates until ctx is cancelled, then waits for
// background lesson tasks to finish.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.client.GetUpdatesChan(u)
	slog.Info("Telegram bot polling for updates", "timeout", b.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			b.tasks.Wait()
			slog.Info("Telegram bot stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				b.tasks.Wait()
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

// HandleWebhookUpdate processes one webhook-delivered update. It backs the
// API server's /telegram-webhook endpoint as an alternative to polling.
func (b *Bot) HandleWebhookUpdate(ctx context.Context, data []byte) error {
	var upd tgbotapi.Update
	if err := json.Unmarshal(data, &upd); err != nil {
		return fmt.Errorf("failed to decode telegram update: %w", err)
	}
	b.handleUpdate(ctx, upd)
	return nil
}

// handleUpdate translates one Telegram update into an engine event and
// delivers the reply. Errors are logged, never surfaced to Telegram.
func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	requestID := uuid.NewString()
	chatID, ev, ok := eventFromUpdate(upd)
	if !ok {
		return
	}
	slog.Debug("Telegram update received", "requestID", requestID, "chatID", chatID)

	if upd.CallbackQuery != nil {
		if _, err := b.client.Request(tgbotapi.NewCallback(upd.CallbackQuery.ID, "")); err != nil {
			slog.Warn("Telegram failed to answer callback", "requestID", requestID, "error", err)
		}
	}

	if upd.Message != nil && upd.Message.IsCommand() && upd.Message.Command() == "adminstats" {
		b.sendAdminStats(chatID, requestID)
		return
	}

	userID := UserID(chatID)
	reply, err := b.engine.Handle(ctx, userID, ev)
	if err != nil {
		slog.Error("Telegram engine error", "requestID", requestID, "userID", userID, "error", err)
		b.sendText(chatID, "Something went wrong. Please try again.")
		return
	}
	b.deliver(chatID, reply, requestID)

	if reply.Task != nil {
		b.tasks.Add(1)
		go func(task *flow.LessonTask) {
			defer b.tasks.Done()
			b.deliver(chatID, task.Run(ctx), requestID)
		}(reply.Task)
	}
}

// UserID maps a Telegram chat to the engine's user identifier.
func UserID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

// SendMessage delivers a plain text message to a "telegram:<chatID>"
// recipient, satisfying the messaging.Sender interface.
func (b *Bot) SendMessage(ctx context.Context, to string, body string) error {
	chatID, err := strconv.ParseInt(strings.TrimPrefix(to, "telegram:"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram recipient %s: %w", to, err)
	}
	if _, err := b.client.Send(tgbotapi.NewMessage(chatID, body)); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	return nil
}

// eventFromUpdate extracts the chat and engine event from an update.
func eventFromUpdate(upd tgbotapi.Update) (int64, models.Event, bool) {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID, models.Event{Button: upd.CallbackQuery.Data}, true
	case upd.Message != nil && upd.Message.Contact != nil:
		return upd.Message.Chat.ID, models.Event{Contact: upd.Message.Contact.PhoneNumber}, true
	case upd.Message != nil:
		return upd.Message.Chat.ID, models.Event{Text: upd.Message.Text}, true
	default:
		return 0, models.Event{}, false
	}
}

// deliver sends every message of a reply in order, with inline keyboards for
// choices and a contact keyboard when the engine asks for a phone number.
func (b *Bot) deliver(chatID int64, reply flow.Reply, requestID string) {
	for _, m := range reply.Messages {
		msg := tgbotapi.NewMessage(chatID, m.Text)
		switch {
		case m.RequestContact:
			msg.ReplyMarkup = tgbotapi.NewOneTimeReplyKeyboard(
				tgbotapi.NewKeyboardButtonRow(
					tgbotapi.NewKeyboardButtonContact("📱 Share phone number"),
				),
			)
		case len(m.Choices) > 0:
			msg.ReplyMarkup = inlineKeyboard(m.Choices)
		}
		if _, err := b.client.Send(msg); err != nil {
			slog.Error("Telegram send failed", "requestID", requestID, "chatID", chatID, "error", err)
			return
		}
	}
}

// inlineKeyboard lays choices out two per row.
func inlineKeyboard(choices []flow.Choice) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range choices {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
		if len(row) == choicesPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.client.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("Telegram send failed", "chatID", chatID, "error", err)
	}
}

// sendAdminStats reports activity counters to allow-listed admins.
func (b *Bot) sendAdminStats(chatID int64, requestID string) {
	if !b.admins[chatID] {
		slog.Warn("Telegram adminstats denied", "requestID", requestID, "chatID", chatID)
		b.sendText(chatID, "This command is restricted.")
		return
	}
	stats, err := b.store.AdminStats(time.Now().UTC())
	if err != nil {
		slog.Error("Telegram adminstats failed", "requestID", requestID, "error", err)
		b.sendText(chatID, "Failed to load stats.")
		return
	}
	b.sendText(chatID, fmt.Sprintf(
		"Users: %d\nOnline (10m): %d\nActive (24h): %d\nActive (7d): %d",
		stats.TotalUsers, stats.Online10Min, stats.DailyActive, stats.WeekActive))
}
