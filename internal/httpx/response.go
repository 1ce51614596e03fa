// Package httpx holds the JSON response helpers shared by handlers and
// middleware.
package httpx

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
)

// Envelope is the response body for messages without a payload.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as {success:false,message}. Server-side failures are
// logged with their full text; the client only sees the generic message.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, msg string, err error) {
	if apperr.IsClientError(err) {
		logger.Debugw(msg, "err", err, "code", apperr.Code(err))
	} else {
		apperr.Log(logger, msg, err)
	}
	WriteJSON(w, apperr.Status(err), Envelope{Success: false, Message: apperr.Message(err)})
}
