package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/apperr"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/go-playground/validator/v10"
)

// errorStatus maps an error kind to the status code and title sent to callers
func errorStatus(err error) (int, string) {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest, "Invalid transaction"
	case apperr.NotFound:
		return http.StatusNotFound, "Transaction not found"
	case apperr.ConversionFailed:
		switch {
		case errors.Is(err, apperr.ErrRateLookup):
			return http.StatusServiceUnavailable, "Exchange rate service unavailable"
		case errors.Is(err, apperr.ErrNotFound):
			return http.StatusBadRequest, "No exchange rate available"
		default:
			return http.StatusBadRequest, "Conversion failed"
		}
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeServiceError logs err and sends the matching error response. Only the
// caller-safe message of err is written to the response.
func writeServiceError(w http.ResponseWriter, log logger.Logger, err error, requestID string, fields map[string]interface{}) {
	status, title := errorStatus(err)

	description := "An unexpected error occurred. Please try again later."
	if status < http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		description = apperr.MessageOf(err, description)
	}

	logFields := map[string]interface{}{
		"request_id": requestID,
		"status":     status,
		"kind":       apperr.KindOf(err).String(),
		"error":      err.Error(),
	}
	for k, v := range fields {
		logFields[k] = v
	}
	if status >= http.StatusInternalServerError {
		log.Error(title, logFields)
	} else {
		log.Warn(title, logFields)
	}

	sendErrorResponse(w, log, title, description, status, requestID)
}

// validationMessage turns validator errors into a single readable sentence
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "nospaces":
		return fe.Field() + " must not be empty"
	case "max":
		return fe.Field() + " must not exceed " + fe.Param() + " characters"
	case "datetime":
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	case "excludesall":
		return fe.Field() + " must not contain any of " + strconv.Quote(fe.Param())
	case "printascii":
		return fe.Field() + " must contain printable ASCII characters only"
	default:
		return fe.Field() + " is invalid"
	}
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	resp := ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	}

	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	writeJSON(w, log, statusCode, resp)
}

func writeJSON(w http.ResponseWriter, log logger.Logger, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
