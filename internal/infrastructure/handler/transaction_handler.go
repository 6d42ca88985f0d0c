package handler

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/application/service"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// TransactionHandler handles HTTP requests for transactions
type TransactionHandler struct {
	service  *service.TransactionService
	validate *validator.Validate
	logger   logger.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(service *service.TransactionService, log logger.Logger) *TransactionHandler {
	if log == nil {
		log = logger.NewNop()
	}

	return &TransactionHandler{
		service:  service,
		validate: newValidator(),
		logger:   log,
	}
}

// CreateTransaction handles the creation of a new transaction
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.logger.Info("Handling create transaction request", map[string]interface{}{
		"request_id": requestID,
		"method":     r.Method,
		"path":       r.URL.Path,
	})

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	h.logger.Debug("Request parsed", map[string]interface{}{
		"request_id":  requestID,
		"description": req.Description,
		"date":        req.Date,
		"amount":      req.Amount.String(),
	})

	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("Request validation failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid transaction",
			validationMessage(err), http.StatusBadRequest, requestID)
		return
	}

	// Format is already checked by the datetime tag
	date, _ := time.Parse(dateLayout, req.Date)

	tx, err := h.service.CreateTransaction(r.Context(), service.CreateTransactionInput{
		Description: req.Description,
		Date:        date,
		Amount:      req.Amount,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, requestID, nil)
		return
	}

	h.logger.Info("Transaction created successfully", map[string]interface{}{
		"request_id": requestID,
		"id":         tx.ID(),
	})

	w.Header().Set("Location", "/transactions/"+tx.ID())
	writeJSON(w, h.logger, http.StatusCreated, toTransactionResponse(tx))
}

// GetTransaction handles retrieving a transaction by ID
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := mux.Vars(r)["id"]

	h.logger.Info("Handling get transaction request", map[string]interface{}{
		"request_id": requestID,
		"id":         id,
	})

	tx, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, requestID, map[string]interface{}{"id": id})
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toTransactionResponse(tx))
}

// ListTransactions handles paginated listing. Missing or non-positive page
// parameters fall back to the service defaults.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	pageNumber, err := intParam(query.Get("pageNumber"))
	if err != nil {
		sendErrorResponse(w, h.logger, "Invalid page number",
			"pageNumber must be an integer", http.StatusBadRequest, requestID)
		return
	}
	pageSize, err := intParam(query.Get("pageSize"))
	if err != nil {
		sendErrorResponse(w, h.logger, "Invalid page size",
			"pageSize must be an integer", http.StatusBadRequest, requestID)
		return
	}

	h.logger.Info("Handling list transactions request", map[string]interface{}{
		"request_id":  requestID,
		"page_number": pageNumber,
		"page_size":   pageSize,
	})

	page, err := h.service.ListTransactions(r.Context(), pageNumber, pageSize)
	if err != nil {
		writeServiceError(w, h.logger, err, requestID, nil)
		return
	}

	resp := TransactionListResponse{
		PageNumber:   page.PageNumber,
		PageSize:     page.PageSize,
		Total:        page.Total,
		Transactions: make([]TransactionResponse, 0, len(page.Transactions)),
	}
	for _, tx := range page.Transactions {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(tx))
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// DeleteTransaction handles removing a transaction by ID
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := mux.Vars(r)["id"]

	h.logger.Info("Handling delete transaction request", map[string]interface{}{
		"request_id": requestID,
		"id":         id,
	})

	if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, requestID, map[string]interface{}{"id": id})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers the transaction handler routes
func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	router.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	router.HandleFunc("/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	router.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods(http.MethodDelete)

	h.logger.Info("Transaction routes registered", map[string]interface{}{
		"routes": []string{
			"POST /transactions",
			"GET /transactions",
			"GET /transactions/{id}",
			"DELETE /transactions/{id}",
		},
	})
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("nospaces", validateNoSpaces); err != nil {
		panic(err)
	}
	// Report json names so messages match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateNoSpaces checks if a string contains non-space characters
func validateNoSpaces(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
