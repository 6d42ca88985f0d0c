package handler

import (
	"net/http"
	"strings"

	"github.com/damon-houk/purchase-conversion-service/internal/application/service"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// ConversionHandler handles HTTP requests for currency conversion
type ConversionHandler struct {
	service  *service.TransactionService
	validate *validator.Validate
	logger   logger.Logger
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(service *service.TransactionService, log logger.Logger) *ConversionHandler {
	if log == nil {
		log = logger.NewNop()
	}

	return &ConversionHandler{
		service:  service,
		validate: newValidator(),
		logger:   log,
	}
}

// ConvertTransaction handles retrieving a transaction with currency conversion.
// The currency query parameter is a Treasury country-currency description,
// for example "Euro Zone-Euro" or "Canada-Dollar".
func (h *ConversionHandler) ConvertTransaction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := mux.Vars(r)["id"]

	req := ConvertRequest{Currency: strings.TrimSpace(r.URL.Query().Get("currency"))}

	h.logger.Info("Handling convert transaction request", map[string]interface{}{
		"request_id": requestID,
		"id":         id,
		"currency":   req.Currency,
	})

	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("Invalid currency parameter", map[string]interface{}{
			"request_id": requestID,
			"id":         id,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid currency parameter",
			validationMessage(err), http.StatusBadRequest, requestID)
		return
	}

	converted, err := h.service.GetTransactionInCurrency(r.Context(), id, req.Currency)
	if err != nil {
		writeServiceError(w, h.logger, err, requestID, map[string]interface{}{
			"id":       id,
			"currency": req.Currency,
		})
		return
	}

	h.logger.Info("Transaction converted successfully", map[string]interface{}{
		"request_id":       requestID,
		"id":               id,
		"currency":         req.Currency,
		"exchange_rate":    converted.ExchangeRate.String(),
		"converted_amount": converted.ConvertedAmount.String(),
	})

	writeJSON(w, h.logger, http.StatusOK, toConvertedResponse(converted))
}

// RegisterRoutes registers the conversion handler routes
func (h *ConversionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transactions/{id}/convert", h.ConvertTransaction).Methods(http.MethodGet)

	h.logger.Info("Conversion routes registered", map[string]interface{}{
		"routes": []string{
			"GET /transactions/{id}/convert",
		},
	})
}
