package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mentoro/arena/pkg/errors"
	"github.com/mentoro/arena/pkg/logger"
)

const maxBodyBytes = 1 << 20

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var typeError *json.UnmarshalTypeError
		var tooLarge *http.MaxBytesError

		switch {
		case stderrors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case stderrors.Is(err, io.ErrUnexpectedEOF):
			return stderrors.New("body contains badly-formed JSON")
		case stderrors.As(err, &typeError):
			return fmt.Errorf("body contains incorrect JSON type for field %q", typeError.Field)
		case stderrors.Is(err, io.EOF):
			return stderrors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case stderrors.As(err, &tooLarge):
			return fmt.Errorf("body must not be larger than %d bytes", maxBodyBytes)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !stderrors.Is(err, io.EOF) {
		return stderrors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// writeError maps err to its HTTP status and writes {error, message}
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	status := statusForCode(code)

	message := "internal server error"
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && status < http.StatusInternalServerError {
		message = appErr.Message
	}
	if code == "" {
		code = errors.ErrCodeInternalError
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	writeJSON(w, status, jsonResponse{"error": code, "message": message})
}

func statusForCode(code string) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNotJoinable, errors.ErrCodeAlreadyJoined, errors.ErrCodeNotActive, errors.ErrCodeAlreadySubmitted, errors.ErrCodeAlreadyExists:
		return http.StatusConflict
	case errors.ErrCodeNotParticipant:
		return http.StatusForbidden
	case errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case errors.ErrCodeDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
