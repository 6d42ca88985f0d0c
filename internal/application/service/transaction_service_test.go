package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/apperr"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
	domainservice "github.com/damon-houk/purchase-conversion-service/internal/domain/service"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/purchase-conversion-service/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo    *mocks.MockTransactionRepository
	rates   *mocks.MockExchangeRateRepository
	events  *mocks.MockEventPublisher
	service *TransactionService
}

func newFixture() *fixture {
	f := &fixture{
		repo:   new(mocks.MockTransactionRepository),
		rates:  new(mocks.MockExchangeRateRepository),
		events: new(mocks.MockEventPublisher),
	}
	converter := NewConversionService(f.rates, logger.NewNop(), nil)
	f.service = NewTransactionService(f.repo, converter, f.events, logger.NewNop(), nil)
	return f
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC)

	t.Run("Valid transaction", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Store", ctx, mock.MatchedBy(func(tx *entity.Transaction) bool {
			return tx.Description() == "Test transaction" && tx.Date().Equal(date) &&
				tx.Amount().StringFixed(2) == "123.46"
		})).Return("test-id", nil).Once()
		f.events.On("Publish", ctx, mock.MatchedBy(func(e domainservice.TransactionEvent) bool {
			return e.Type == domainservice.EventTransactionCreated && e.Amount == "123.46"
		})).Return(nil).Once()

		tx, err := f.service.CreateTransaction(ctx, CreateTransactionInput{
			Description: "Test transaction",
			Date:        date,
			Amount:      decimal.RequireFromString("123.456"),
		})

		require.NoError(t, err)
		assert.NotEmpty(t, tx.ID())
		assert.Equal(t, "123.46", tx.Amount().StringFixed(2))
		f.repo.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("Invalid description", func(t *testing.T) {
		f := newFixture()

		tx, err := f.service.CreateTransaction(ctx, CreateTransactionInput{
			Description: strings.Repeat("x", 51),
			Date:        date,
			Amount:      decimal.NewFromInt(10),
		})

		assert.Nil(t, tx)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		f.repo.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	})

	t.Run("Invalid amount", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.CreateTransaction(ctx, CreateTransactionInput{
			Description: "Test transaction",
			Date:        date,
			Amount:      decimal.NewFromInt(-10),
		})

		assert.ErrorIs(t, err, apperr.ErrValidation)
		f.repo.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	})

	t.Run("Storage failure", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Store", ctx, mock.Anything).Return("", errors.New("disk full")).Once()

		_, err := f.service.CreateTransaction(ctx, CreateTransactionInput{
			Description: "Test transaction",
			Date:        date,
			Amount:      decimal.NewFromInt(10),
		})

		assert.ErrorIs(t, err, apperr.ErrStorage)
		f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("Publish failure does not fail the request", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Store", ctx, mock.Anything).Return("test-id", nil).Once()
		f.events.On("Publish", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		tx, err := f.service.CreateTransaction(ctx, CreateTransactionInput{
			Description: "Test transaction",
			Date:        date,
			Amount:      decimal.NewFromInt(10),
		})

		require.NoError(t, err)
		assert.NotNil(t, tx)
	})

	t.Run("Nil publisher", func(t *testing.T) {
		repo := new(mocks.MockTransactionRepository)
		repo.On("Store", ctx, mock.Anything).Return("test-id", nil).Once()
		svc := NewTransactionService(repo, nil, nil, nil, nil)

		_, err := svc.CreateTransaction(ctx, CreateTransactionInput{
			Description: "Test transaction",
			Date:        date,
			Amount:      decimal.NewFromInt(10),
		})
		assert.NoError(t, err)
	})
}

func TestGetTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		f := newFixture()
		tx := mustTransaction(t, "Found", time.Now(), "1.00")
		f.repo.On("FindByID", ctx, tx.ID()).Return(tx, nil).Once()

		got, err := f.service.GetTransaction(ctx, tx.ID())
		require.NoError(t, err)
		assert.Same(t, tx, got)
	})

	t.Run("Not found", func(t *testing.T) {
		f := newFixture()
		f.repo.On("FindByID", ctx, "missing").
			Return(nil, apperr.E(apperr.NotFound, "FindByID", "transaction not found", nil)).Once()

		_, err := f.service.GetTransaction(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Contains(t, err.Error(), "transaction missing")
	})

	t.Run("Storage failure", func(t *testing.T) {
		f := newFixture()
		f.repo.On("FindByID", ctx, "broken").Return(nil, errors.New("corrupt value log")).Once()

		_, err := f.service.GetTransaction(ctx, "broken")
		assert.Equal(t, apperr.Storage, apperr.KindOf(err))
	})
}

func TestGetTransactionInCurrency(t *testing.T) {
	ctx := context.Background()
	txDate := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("Successful conversion", func(t *testing.T) {
		f := newFixture()
		tx := mustTransaction(t, "Convert me", txDate, "100.00")
		f.repo.On("FindByID", ctx, tx.ID()).Return(tx, nil).Once()
		f.rates.On("FindRate", ctx, "Euro Zone-Euro", txDate).Return(&entity.ExchangeRate{
			Currency: "Euro Zone-Euro",
			Date:     txDate.AddDate(0, 0, -15),
			Rate:     decimal.RequireFromString("0.85"),
		}, nil).Once()

		result, err := f.service.GetTransactionInCurrency(ctx, tx.ID(), "Euro Zone-Euro")
		require.NoError(t, err)
		assert.Equal(t, "85.00", result.ConvertedAmount.StringFixed(2))
		f.repo.AssertExpectations(t)
		f.rates.AssertExpectations(t)
	})

	t.Run("Transaction not found", func(t *testing.T) {
		f := newFixture()
		f.repo.On("FindByID", ctx, "missing").
			Return(nil, apperr.E(apperr.NotFound, "FindByID", "transaction not found", nil)).Once()

		result, err := f.service.GetTransactionInCurrency(ctx, "missing", "Euro Zone-Euro")
		assert.Nil(t, result)
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
		f.rates.AssertNotCalled(t, "FindRate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("No rate available", func(t *testing.T) {
		f := newFixture()
		tx := mustTransaction(t, "Convert me", txDate, "100.00")
		f.repo.On("FindByID", ctx, tx.ID()).Return(tx, nil).Once()
		f.rates.On("FindRate", ctx, "Mars-Credit", txDate).
			Return(nil, apperr.E(apperr.NotFound, "FindRate", "no exchange rate", nil)).Once()

		_, err := f.service.GetTransactionInCurrency(ctx, tx.ID(), "Mars-Credit")
		assert.Equal(t, apperr.ConversionFailed, apperr.KindOf(err))
	})
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()

	stored := func(t *testing.T, n int) []*entity.Transaction {
		txs := make([]*entity.Transaction, n)
		for i := range txs {
			txs[i] = mustTransaction(t, fmt.Sprintf("Transaction %d", i+1), time.Now(), "10.00")
			time.Sleep(time.Millisecond)
		}
		return txs
	}

	t.Run("Empty store returns an empty page", func(t *testing.T) {
		f := newFixture()
		f.repo.On("FindAll", ctx).Return([]*entity.Transaction{}, nil).Once()

		page, err := f.service.ListTransactions(ctx, 1, 10)
		require.NoError(t, err)
		assert.Empty(t, page.Transactions)
		assert.NotNil(t, page.Transactions)
		assert.Equal(t, 0, page.Total)
	})

	t.Run("Second page of two over three transactions", func(t *testing.T) {
		f := newFixture()
		txs := stored(t, 3)
		// Storage order is not creation order
		f.repo.On("FindAll", ctx).Return([]*entity.Transaction{txs[2], txs[0], txs[1]}, nil).Once()

		page, err := f.service.ListTransactions(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, page.Transactions, 1)
		assert.Equal(t, txs[2].ID(), page.Transactions[0].ID())
		assert.Equal(t, 3, page.Total)
	})

	t.Run("First page is ordered by creation time", func(t *testing.T) {
		f := newFixture()
		txs := stored(t, 3)
		f.repo.On("FindAll", ctx).Return([]*entity.Transaction{txs[1], txs[2], txs[0]}, nil).Once()

		page, err := f.service.ListTransactions(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, page.Transactions, 2)
		assert.Equal(t, txs[0].ID(), page.Transactions[0].ID())
		assert.Equal(t, txs[1].ID(), page.Transactions[1].ID())
	})

	t.Run("Non-positive arguments are normalised", func(t *testing.T) {
		f := newFixture()
		txs := stored(t, 12)
		f.repo.On("FindAll", ctx).Return(txs, nil).Once()

		page, err := f.service.ListTransactions(ctx, 0, -5)
		require.NoError(t, err)
		assert.Equal(t, 1, page.PageNumber)
		assert.Equal(t, DefaultPageSize, page.PageSize)
		assert.Len(t, page.Transactions, DefaultPageSize)
	})

	t.Run("Page past the end is empty", func(t *testing.T) {
		f := newFixture()
		f.repo.On("FindAll", ctx).Return(stored(t, 3), nil).Once()

		page, err := f.service.ListTransactions(ctx, 3, 2)
		require.NoError(t, err)
		assert.Empty(t, page.Transactions)
	})

	t.Run("Huge page number does not overflow", func(t *testing.T) {
		f := newFixture()
		f.repo.On("FindAll", ctx).Return(stored(t, 1), nil).Once()

		page, err := f.service.ListTransactions(ctx, int(^uint(0)>>1), 1<<40)
		require.NoError(t, err)
		assert.Empty(t, page.Transactions)
	})

	t.Run("Huge page size returns everything", func(t *testing.T) {
		f := newFixture()
		f.repo.On("FindAll", ctx).Return(stored(t, 3), nil).Once()

		page, err := f.service.ListTransactions(ctx, 1, math.MaxInt)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Len(t, page.Transactions, 3)
	})

	t.Run("Huge page size past the first page is empty", func(t *testing.T) {
		f := newFixture()
		f.repo.On("FindAll", ctx).Return(stored(t, 3), nil).Once()

		page, err := f.service.ListTransactions(ctx, 2, math.MaxInt)
		require.NoError(t, err)
		assert.Empty(t, page.Transactions)
	})

	t.Run("Storage failure", func(t *testing.T) {
		f := newFixture()
		f.repo.On("FindAll", ctx).Return(nil, errors.New("io error")).Once()

		_, err := f.service.ListTransactions(ctx, 1, 10)
		assert.ErrorIs(t, err, apperr.ErrStorage)
	})
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Deleted", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Delete", ctx, "test-id").Return(nil).Once()
		f.events.On("Publish", ctx, mock.MatchedBy(func(e domainservice.TransactionEvent) bool {
			return e.Type == domainservice.EventTransactionDeleted && e.TransactionID == "test-id"
		})).Return(nil).Once()

		require.NoError(t, f.service.DeleteTransaction(ctx, "test-id"))
		f.repo.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("Not found", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Delete", ctx, "missing").
			Return(apperr.E(apperr.NotFound, "Delete", "transaction not found", nil)).Once()

		err := f.service.DeleteTransaction(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("Storage failure", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Delete", ctx, "test-id").Return(errors.New("read-only filesystem")).Once()

		err := f.service.DeleteTransaction(ctx, "test-id")
		assert.ErrorIs(t, err, apperr.ErrStorage)
	})
}
