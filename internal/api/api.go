// Package api provides the HTTP server for LearnBuddy: the Twilio WhatsApp
// webhook, delivery status callbacks, the optional Telegram webhook, and a
// health endpoint.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/btrlrn/learnbuddy/internal/flow"
	"github.com/btrlrn/learnbuddy/internal/messaging"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	Addr            string
	TelegramSecret  string
	TelegramHandler func(ctx context.Context, update []byte) error
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithTelegramWebhook enables the Telegram webhook endpoint, guarded by the
// given secret token, delegating updates to handler.
func WithTelegramWebhook(secret string, handler func(ctx context.Context, update []byte) error) Option {
	return func(o *Opts) {
		o.TelegramSecret = secret
		o.TelegramHandler = handler
	}
}

// Server wires the conversation engine to HTTP endpoints.
type Server struct {
	engine *flow.Engine
	sender messaging.Sender
	opts   Opts

	mu      sync.Mutex
	taskCtx context.Context
	tasks   sync.WaitGroup
}

// NewServer creates the API server around an engine and an outbound sender.
func NewServer(engine *flow.Engine, sender messaging.Sender, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{engine: engine, sender: sender, opts: cfg, taskCtx: context.Background()}
}

// Handler returns the routed HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/whatsapp", s.whatsappHandler)
	mux.HandleFunc("/twilio-status", s.twilioStatusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/telegram-webhook", s.telegramWebhookHandler)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully and waits for
// background lesson tasks.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.taskCtx = ctx
	s.mu.Unlock()

	srv := &http.Server{Addr: s.opts.Addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
		}
		s.tasks.Wait()
		slog.Info("API server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// runLessonTask executes deferred lesson generation in the background and
// delivers its reply over the sender. The task context is the server's run
// context, so shutdown cancels in-flight generations.
func (s *Server) runLessonTask(task *flow.LessonTask, to string) {
	s.mu.Lock()
	ctx := s.taskCtx
	s.mu.Unlock()

	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		reply := task.Run(ctx)
		if err := messaging.SendReply(ctx, s.sender, to, reply); err != nil {
			slog.Error("Server.runLessonTask: failed to deliver generated lesson", "error", err, "to", to)
		}
	}()
}
