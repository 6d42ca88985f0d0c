package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/apperr"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/repository"
	domainservice "github.com/damon-houk/purchase-conversion-service/internal/domain/service"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/metrics"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
)

// DefaultPageSize is used when the caller asks for a non-positive page size
const DefaultPageSize = 10

// Converter converts a transaction into a target currency
type Converter interface {
	Convert(ctx context.Context, tx *entity.Transaction, currency string) (*ConversionResult, error)
}

// CreateTransactionInput carries the caller-supplied fields of a new transaction
type CreateTransactionInput struct {
	Description string
	Date        time.Time
	Amount      decimal.Decimal
}

// Page is one page of stored transactions ordered by creation time
type Page struct {
	PageNumber   int
	PageSize     int
	Total        int
	Transactions []*entity.Transaction
}

// TransactionService handles business logic for transactions
type TransactionService struct {
	repo      repository.TransactionRepository
	converter Converter
	events    domainservice.EventPublisher
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// NewTransactionService creates a new transaction service. events may be nil.
func NewTransactionService(
	repo repository.TransactionRepository,
	converter Converter,
	events domainservice.EventPublisher,
	log logger.Logger,
	m *metrics.Metrics,
) *TransactionService {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}

	return &TransactionService{
		repo:      repo,
		converter: converter,
		events:    events,
		logger:    log,
		metrics:   m,
	}
}

// CreateTransaction validates and stores a new transaction
func (s *TransactionService) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*entity.Transaction, error) {
	const op = "TransactionService.CreateTransaction"
	requestID := middleware.GetRequestID(ctx)

	tx, err := entity.NewTransaction(in.Description, in.Date, in.Amount)
	if err != nil {
		s.logger.Warn("Transaction validation failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, err
	}

	if _, err := s.repo.Store(ctx, tx); err != nil {
		s.logger.Error("Failed to store transaction", map[string]interface{}{
			"request_id": requestID,
			"id":         tx.ID(),
			"error":      err.Error(),
		})
		return nil, storageError(op, "failed to store transaction", err)
	}

	s.metrics.TransactionsTotal.WithLabelValues("create").Inc()
	s.logger.Info("Transaction created", map[string]interface{}{
		"request_id": requestID,
		"id":         tx.ID(),
		"amount":     tx.Amount().StringFixed(2),
		"date":       tx.Date().Format("2006-01-02"),
	})

	s.publish(ctx, domainservice.TransactionEvent{
		Type:          domainservice.EventTransactionCreated,
		TransactionID: tx.ID(),
		Description:   tx.Description(),
		Date:          tx.Date().Format("2006-01-02"),
		Amount:        tx.Amount().StringFixed(2),
	})

	return tx, nil
}

// GetTransaction retrieves a transaction by ID
func (s *TransactionService) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	const op = "TransactionService.GetTransaction"

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		fields := map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"id":         id,
			"error":      err.Error(),
		}
		if apperr.KindOf(err) == apperr.NotFound {
			s.logger.Warn("Transaction not found", fields)
			return nil, fmt.Errorf("transaction %s: %w", id, err)
		}
		s.logger.Error("Failed to retrieve transaction", fields)
		return nil, storageError(op, "failed to retrieve transaction", err)
	}

	return tx, nil
}

// GetTransactionInCurrency retrieves a transaction converted to the specified currency
func (s *TransactionService) GetTransactionInCurrency(ctx context.Context, id, currency string) (*ConversionResult, error) {
	s.logger.Info("Converting transaction currency", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"id":         id,
		"currency":   currency,
	})

	tx, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.converter.Convert(ctx, tx, currency)
	if err != nil {
		return nil, fmt.Errorf("transaction %s to %s: %w", id, currency, err)
	}

	return result, nil
}

// ListTransactions returns one page of transactions ordered by creation time
// (ties broken by ID). Pages past the end are empty, not an error.
func (s *TransactionService) ListTransactions(ctx context.Context, pageNumber, pageSize int) (*Page, error) {
	const op = "TransactionService.ListTransactions"

	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	all, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list transactions", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"error":      err.Error(),
		})
		return nil, storageError(op, "failed to list transactions", err)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt().Equal(all[j].CreatedAt()) {
			return all[i].CreatedAt().Before(all[j].CreatedAt())
		}
		return all[i].ID() < all[j].ID()
	})

	page := &Page{
		PageNumber:   pageNumber,
		PageSize:     pageSize,
		Total:        len(all),
		Transactions: []*entity.Transaction{},
	}

	// Work in page units and never add to pageSize so values near MaxInt
	// cannot overflow
	pages := len(all) / pageSize
	if len(all)%pageSize != 0 {
		pages++
	}
	if pageNumber-1 < pages {
		start := (pageNumber - 1) * pageSize
		end := len(all)
		if pageSize < end-start {
			end = start + pageSize
		}
		page.Transactions = all[start:end]
	}

	s.logger.Debug("Listed transactions", map[string]interface{}{
		"request_id":  middleware.GetRequestID(ctx),
		"page_number": pageNumber,
		"page_size":   pageSize,
		"total":       page.Total,
		"returned":    len(page.Transactions),
	})

	return page, nil
}

// DeleteTransaction removes a transaction by ID
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	const op = "TransactionService.DeleteTransaction"
	requestID := middleware.GetRequestID(ctx)

	if err := s.repo.Delete(ctx, id); err != nil {
		fields := map[string]interface{}{
			"request_id": requestID,
			"id":         id,
			"error":      err.Error(),
		}
		if apperr.KindOf(err) == apperr.NotFound {
			s.logger.Warn("Transaction not found for deletion", fields)
			return fmt.Errorf("transaction %s: %w", id, err)
		}
		s.logger.Error("Failed to delete transaction", fields)
		return storageError(op, "failed to delete transaction", err)
	}

	s.metrics.TransactionsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("Transaction deleted", map[string]interface{}{
		"request_id": requestID,
		"id":         id,
	})

	s.publish(ctx, domainservice.TransactionEvent{
		Type:          domainservice.EventTransactionDeleted,
		TransactionID: id,
	})

	return nil
}

// publish sends a lifecycle event. The write has already committed, so a
// failed publish is logged and otherwise ignored.
func (s *TransactionService) publish(ctx context.Context, event domainservice.TransactionEvent) {
	if s.events == nil {
		return
	}

	event.OccurredAt = time.Now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish transaction event", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"type":       event.Type,
			"id":         event.TransactionID,
			"error":      err.Error(),
		})
	}
}

// storageError keeps kinded errors as they are and classifies anything else
// as a storage failure
func storageError(op, message string, err error) error {
	if apperr.KindOf(err) != apperr.Unknown {
		return err
	}
	return apperr.E(apperr.Storage, op, message, err)
}
