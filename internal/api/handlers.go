package api

import (
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"

	"github.com/btrlrn/learnbuddy/internal/messaging"
	"github.com/btrlrn/learnbuddy/internal/models"
)

// twimlResponse is the XML body Twilio expects from a message webhook. Each
// Message element is delivered back to the sender.
type twimlResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

// whatsappHandler receives inbound WhatsApp messages from Twilio and replies
// inline with TwiML. Engine errors never fail the webhook; Twilio retries on
// non-2xx and the user would see nothing either way.
func (s *Server) whatsappHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		slog.Warn("Server.whatsappHandler: method not allowed", "method", r.Method)
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	if err := r.ParseForm(); err != nil {
		slog.Error("Server.whatsappHandler: failed to parse form", "error", err)
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}
	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from == "" {
		slog.Warn("Server.whatsappHandler: missing From field")
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}
	slog.Debug("Server.whatsappHandler: inbound message", "from", from, "chars", len(body))

	reply, err := s.engine.Handle(r.Context(), from, models.Event{Text: body})
	if err != nil {
		slog.Error("Server.whatsappHandler: engine error", "error", err, "from", from)
		writeTwiML(w, twimlResponse{Messages: []string{"Something went wrong. Please try again."}})
		return
	}
	if reply.Task != nil {
		s.runLessonTask(reply.Task, from)
	}

	resp := twimlResponse{}
	for _, m := range reply.Messages {
		resp.Messages = append(resp.Messages, messaging.RenderText(m))
	}
	writeTwiML(w, resp)
}

func writeTwiML(w http.ResponseWriter, resp twimlResponse) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		slog.Error("Server.writeTwiML: failed to write header", "error", err)
		return
	}
	if err := xml.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Server.writeTwiML: failed to encode response", "error", err)
	}
}

// twilioStatusHandler receives delivery status callbacks from Twilio. They are
// logged and acknowledged; no state depends on them.
func (s *Server) twilioStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	if err := r.ParseForm(); err != nil {
		slog.Error("Server.twilioStatusHandler: failed to parse form", "error", err)
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}
	slog.Info("Server.twilioStatusHandler: delivery status",
		"sid", r.PostFormValue("MessageSid"),
		"status", r.PostFormValue("MessageStatus"),
		"to", r.PostFormValue("To"))
	w.WriteHeader(http.StatusNoContent)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, statusResponse{Status: "ok"})
}

// telegramWebhookHandler forwards Telegram webhook updates to the bot,
// rejecting requests whose secret token does not match.
func (s *Server) telegramWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	if s.opts.TelegramHandler == nil {
		slog.Warn("Server.telegramWebhookHandler: no Telegram handler configured")
		writeJSONResponse(w, http.StatusServiceUnavailable, errorResponse{Error: "telegram webhook not configured"})
		return
	}
	if got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token"); got != s.opts.TelegramSecret {
		slog.Warn("Server.telegramWebhookHandler: secret token mismatch")
		writeJSONResponse(w, http.StatusUnauthorized, errorResponse{Error: "invalid secret token"})
		return
	}

	update, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Server.telegramWebhookHandler: failed to read body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}
	if err := s.opts.TelegramHandler(r.Context(), update); err != nil {
		slog.Error("Server.telegramWebhookHandler: handler error", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse{Error: "failed to process update"})
		return
	}
	writeJSONResponse(w, http.StatusOK, statusResponse{Status: "ok"})
}
