package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// fallbackErrorResponse is pre-marshaled so encoding failures still produce a
// valid JSON body.
var fallbackErrorResponse = []byte(`{"error":"internal server error"}`)

// writeJSONResponse writes a JSON body with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal payload", "error", err)
		statusCode = http.StatusInternalServerError
		body = fallbackErrorResponse
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeJSONResponse: failed to write response", "error", err)
	}
}
