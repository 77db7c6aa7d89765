package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/halvard/skald/internal/apperr"
)

// codeInvalidRequest covers malformed bodies and parameters that never
// reach the domain layer.
const codeInvalidRequest apperr.Code = "INVALID_REQUEST"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errDetail struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	Retryable      bool   `json:"retryable"`
	RetryAfter     int    `json:"retry_after,omitempty"`
	CurrentVersion string `json:"current_version,omitempty"`
}

type errResponse struct {
	Error errDetail `json:"error"`
}

func errorBody(code apperr.Code, msg string, retryable bool) errResponse {
	return errResponse{Error: errDetail{Code: string(code), Message: msg, Retryable: retryable}}
}

// writeError renders any error as the coded JSON error envelope.
// Rate-limit errors also get a Retry-After header; version conflicts
// carry the winning version tag so clients can retry with fresh state.
func writeError(w http.ResponseWriter, err error) {
	if e := apperr.As(err); e != nil {
		body := errorBody(e.Code, e.Message, e.Retryable)
		if e.RetryAfter > 0 {
			body.Error.RetryAfter = e.RetryAfter
			w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
		}
		if !e.CurrentVersion.IsZero() {
			body.Error.CurrentVersion = e.CurrentVersion.UTC().Format(time.RFC3339Nano)
		}
		writeJSON(w, e.HTTPStatus(), body)
		return
	}
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(apperr.CodeNoteNotFound, "not found", false))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(apperr.CodeVersionConflict, "version conflict", true))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(apperr.CodeAPIFailure, "internal error", true))
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody(codeInvalidRequest, msg, false))
}
