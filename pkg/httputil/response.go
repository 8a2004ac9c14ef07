package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/avelkov/account-service/pkg/errors"
	"github.com/avelkov/account-service/pkg/logger"
	"github.com/avelkov/account-service/pkg/validator"
)

// Response is the standard JSON envelope carried by every success and error
// body: {statusCode, data|errors, message, success}.
type Response struct {
	StatusCode int           `json:"statusCode"`
	Data       any           `json:"data,omitempty"`
	Errors     *ErrorDetails `json:"errors,omitempty"`
	Message    string        `json:"message"`
	Success    bool          `json:"success"`
}

// ErrorDetails carries the machine-readable part of an error response.
type ErrorDetails struct {
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope with the given status, data, and message.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// WriteErrorResponse writes an error envelope with the given status, code, and message.
func WriteErrorResponse(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{
		StatusCode: status,
		Errors:     &ErrorDetails{Code: code},
		Message:    message,
		Success:    false,
	})
}

// WriteError maps an error to the envelope based on its type. It handles
// AppError and the sentinel errors; anything unrecognized becomes a generic
// 500 so internal detail never reaches the client. It prefers the
// request-scoped logger from context over the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status == http.StatusInternalServerError {
			l.ErrorContext(r.Context(), "internal error",
				slog.String("error", err.Error()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
		}
		WriteJSON(w, appErr.Status, Response{
			StatusCode: appErr.Status,
			Errors:     &ErrorDetails{Code: appErr.Code, RequestID: requestID},
			Message:    appErr.Message,
			Success:    false,
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "NOT_FOUND"
		message = "resource not found"
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrAlreadyExists):
		code = "ALREADY_EXISTS"
		message = "resource already exists"
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidInput):
		code = "INVALID_INPUT"
		message = err.Error()
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized):
		code = "UNAUTHORIZED"
		message = err.Error()
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{
		StatusCode: status,
		Errors:     &ErrorDetails{Code: code, RequestID: requestID},
		Message:    message,
		Success:    false,
	})
}

// WriteValidationError writes a 400 envelope with field-level errors when the
// error comes from the validator package.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			StatusCode: http.StatusBadRequest,
			Errors: &ErrorDetails{
				Code:   "VALIDATION_ERROR",
				Fields: valErr.Fields(),
			},
			Message: "request validation failed",
			Success: false,
		})
		return
	}

	WriteErrorResponse(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
}
