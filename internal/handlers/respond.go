package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/stylebook/backend/internal/middleware"
	"github.com/stylebook/backend/internal/services"
)

// envelope is the shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeResult[T any](w http.ResponseWriter, status int, res *services.Result[T]) {
	writeOK(w, status, res.Message, res.Data)
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeError maps an engine error to a status code and user-facing message.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	if errors.Is(err, services.ErrBusy) {
		w.Header().Set("Retry-After", "1")
	}
	writeFail(w, status, message)
}

func classify(err error) (int, string) {
	reason := services.Reason(err)
	pick := func(fallback string) string {
		if reason != "" {
			return reason
		}
		return fallback
	}
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity, pick("The request is invalid.")
	case errors.Is(err, services.ErrInvalidCode):
		return http.StatusUnprocessableEntity, pick("The code is incorrect.")
	case errors.Is(err, services.ErrRefundExceedsAmount):
		return http.StatusUnprocessableEntity, pick("The refund exceeds the appointment amount.")
	case errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusPaymentRequired, pick("Insufficient balance.")
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, pick("You are not allowed to do this.")
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, pick("Not found.")
	case errors.Is(err, services.ErrBusy):
		return http.StatusConflict, pick("Another request is updating this record. Please retry.")
	case errors.Is(err, services.ErrAlreadyProcessed),
		errors.Is(err, services.ErrAlreadyResolved),
		errors.Is(err, services.ErrInvalidStateTransition):
		return http.StatusConflict, pick("This action is not allowed in the current state.")
	}
	return http.StatusInternalServerError, "Something went wrong."
}

// decode validates the body against the named schema and unmarshals it into
// dst. An empty body is treated as {}. On failure the response is written
// and false returned.
func decode(w http.ResponseWriter, r *http.Request, schemas *Schemas, schema string, dst any) bool {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFail(w, http.StatusRequestEntityTooLarge, "Request body is too large.")
			return false
		}
		writeFail(w, http.StatusBadRequest, "Could not read the request body.")
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if err := schemas.Validate(schema, raw); err != nil {
		if errors.Is(err, errSchema) {
			writeFail(w, http.StatusUnprocessableEntity, err.Error())
			return false
		}
		writeFail(w, http.StatusBadRequest, "Invalid JSON.")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid JSON.")
		return false
	}
	return true
}

// pathID parses the {name} path value as a UUID.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid "+name+".")
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the authenticated caller or writes 401.
func actor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	a, ok := middleware.ActorFromCtx(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, "Authentication required.")
	}
	return a, ok
}
