package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/apperr"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()

	badgerDB, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { badgerDB.Close() })

	return badgerDB
}

func newTransaction(t *testing.T, desc string, amount string) *entity.Transaction {
	t.Helper()

	tx, err := entity.NewTransaction(desc, time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC), decimal.RequireFromString(amount))
	require.NoError(t, err)
	return tx
}

func TestBadgerTransactionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewBadgerTransactionRepository(openTestDB(t))

	t.Run("Store and find", func(t *testing.T) {
		tx := newTransaction(t, "Stored transaction", "123.45")

		id, err := repo.Store(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, tx.ID(), id)

		found, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, tx.ID(), found.ID())
		assert.Equal(t, "Stored transaction", found.Description())
		assert.Equal(t, "123.45", found.Amount().StringFixed(2))
		assert.True(t, tx.Date().Equal(found.Date()))
		assert.True(t, tx.CreatedAt().Equal(found.CreatedAt()))
	})

	t.Run("Duplicate id is rejected", func(t *testing.T) {
		tx := newTransaction(t, "Once", "1.00")

		_, err := repo.Store(ctx, tx)
		require.NoError(t, err)

		_, err = repo.Store(ctx, tx)
		assert.ErrorIs(t, err, apperr.ErrStorage)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("Missing id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, "non-existent-id")
		assert.Nil(t, found)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		tx := newTransaction(t, "To delete", "5.00")
		_, err := repo.Store(ctx, tx)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, tx.ID()))

		_, err = repo.FindByID(ctx, tx.ID())
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		err = repo.Delete(ctx, tx.ID())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repo.Store(cctx, newTransaction(t, "Cancelled", "1.00"))
		assert.ErrorIs(t, err, apperr.ErrStorage)
	})
}

func TestBadgerTransactionRepositoryFindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewBadgerTransactionRepository(openTestDB(t))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	ids := map[string]bool{}
	for i := 0; i < 5; i++ {
		tx := newTransaction(t, fmt.Sprintf("Transaction %d", i), "10.00")
		_, err := repo.Store(ctx, tx)
		require.NoError(t, err)
		ids[tx.ID()] = true
	}

	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	for _, tx := range all {
		assert.True(t, ids[tx.ID()])
	}
}

func TestValueLogGC(t *testing.T) {
	badgerDB := openTestDB(t)

	t.Run("Invalid ratio", func(t *testing.T) {
		_, err := NewValueLogGC(badgerDB, "@every 1m", 1.5, nil)
		assert.Error(t, err)
	})

	t.Run("Invalid schedule", func(t *testing.T) {
		_, err := NewValueLogGC(badgerDB, "not a schedule", 0.5, nil)
		assert.Error(t, err)
	})

	t.Run("Run once on an empty database", func(t *testing.T) {
		gc, err := NewValueLogGC(badgerDB, "@every 10m", 0.5, nil)
		require.NoError(t, err)

		gc.Start()
		defer gc.Stop()

		rewritten, err := gc.RunOnce()
		assert.NoError(t, err)
		assert.Equal(t, 0, rewritten)
	})
}

func TestOpen(t *testing.T) {
	dir := t.TempDir() + "/nested/data"

	badgerDB, err := Open(dir, nil)
	require.NoError(t, err)
	assert.NoError(t, badgerDB.Close())
}
