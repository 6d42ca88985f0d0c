package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/apperr"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
)

const transactionPrefix = "tx:"

// BadgerTransactionRepository implements the transaction repository interface using BadgerDB
type BadgerTransactionRepository struct {
	db *badger.DB
}

// NewBadgerTransactionRepository creates a new BadgerDB transaction repository
func NewBadgerTransactionRepository(db *badger.DB) *BadgerTransactionRepository {
	return &BadgerTransactionRepository{db: db}
}

func transactionKey(id string) []byte {
	return []byte(transactionPrefix + id)
}

// Store saves a transaction and returns its ID. Writing an ID that already
// exists fails instead of overwriting.
func (r *BadgerTransactionRepository) Store(ctx context.Context, tx *entity.Transaction) (string, error) {
	const op = "BadgerTransactionRepository.Store"

	if err := ctx.Err(); err != nil {
		return "", apperr.E(apperr.Storage, op, "failed to store transaction", err)
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return "", apperr.E(apperr.Storage, op, "failed to marshal transaction", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key := transactionKey(tx.ID())
		if _, err := txn.Get(key); err == nil {
			return errDuplicateID
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, errDuplicateID) {
		return "", apperr.E(apperr.Storage, op, "transaction already exists", err)
	}
	if err != nil {
		return "", apperr.E(apperr.Storage, op, "failed to store transaction", err)
	}

	return tx.ID(), nil
}

var errDuplicateID = errors.New("duplicate transaction id")

// FindByID retrieves a transaction by its unique identifier
func (r *BadgerTransactionRepository) FindByID(ctx context.Context, id string) (*entity.Transaction, error) {
	const op = "BadgerTransactionRepository.FindByID"

	if err := ctx.Err(); err != nil {
		return nil, apperr.E(apperr.Storage, op, "failed to retrieve transaction", err)
	}

	var tx entity.Transaction
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(transactionKey(id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &tx)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperr.E(apperr.NotFound, op, "transaction not found", nil)
	}
	if err != nil {
		return nil, apperr.E(apperr.Storage, op, "failed to retrieve transaction", err)
	}

	return &tx, nil
}

// FindAll returns every stored transaction in key order
func (r *BadgerTransactionRepository) FindAll(ctx context.Context) ([]*entity.Transaction, error) {
	const op = "BadgerTransactionRepository.FindAll"

	var txs []*entity.Transaction
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(transactionPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			tx := new(entity.Transaction)
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, tx)
			}); err != nil {
				return err
			}
			txs = append(txs, tx)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.E(apperr.Storage, op, "failed to list transactions", err)
	}

	return txs, nil
}

// Delete removes a transaction by its unique identifier
func (r *BadgerTransactionRepository) Delete(ctx context.Context, id string) error {
	const op = "BadgerTransactionRepository.Delete"

	if err := ctx.Err(); err != nil {
		return apperr.E(apperr.Storage, op, "failed to delete transaction", err)
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		key := transactionKey(id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperr.E(apperr.NotFound, op, "transaction not found", nil)
	}
	if err != nil {
		return apperr.E(apperr.Storage, op, "failed to delete transaction", err)
	}

	return nil
}
