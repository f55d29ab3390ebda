package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kislikjeka/walletsync/internal/platform/contact"
	"github.com/kislikjeka/walletsync/internal/platform/kyc"
	apperrors "github.com/kislikjeka/walletsync/internal/shared/errors"
	"github.com/kislikjeka/walletsync/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// respondDomainError maps a manager error to a status code. Unknown errors
// are logged and hidden behind a 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status, code := http.StatusInternalServerError, apperrors.ErrCodeInternal
	message := "internal server error"

	switch {
	case errors.Is(err, contact.ErrMissingName),
		errors.Is(err, contact.ErrMissingAddress),
		errors.Is(err, kyc.ErrMissingFieldID):
		status, code, message = http.StatusBadRequest, apperrors.ErrCodeValidation, err.Error()
	case errors.Is(err, contact.ErrDuplicateAddress):
		status, code, message = http.StatusConflict, apperrors.ErrCodeConflict, err.Error()
	case errors.Is(err, contact.ErrContactNotFound),
		errors.Is(err, kyc.ErrEntryNotFound):
		status, code, message = http.StatusNotFound, apperrors.ErrCodeNotFound, err.Error()
	case apperrors.IsPersistence(err):
		status, code, message = http.StatusServiceUnavailable, apperrors.ErrCodePersistence, "secure store unavailable"
	case apperrors.IsAppError(err):
		appErr := apperrors.GetAppError(err)
		status, code, message = statusForCode(appErr.Code), appErr.Code, appErr.Message
	}

	if status >= http.StatusInternalServerError {
		log.WithContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	respondJSON(w, ErrorResponse{Error: message, Code: code}, status)
}

func statusForCode(code string) int {
	switch code {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodePersistence:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// accountFrom reads the account set by the JWT middleware, answering 401 when
// it is missing
func accountFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	account, ok := middleware.GetAccountFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
	}
	return account, ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
