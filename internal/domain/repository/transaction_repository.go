package repository

import (
	"context"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
)

// TransactionRepository defines the interface for transaction storage.
// Missing records are reported with an apperr.NotFound error, any other
// failure with apperr.Storage.
type TransactionRepository interface {
	// Store saves a transaction and returns its ID
	Store(ctx context.Context, transaction *entity.Transaction) (string, error)

	// FindByID retrieves a transaction by its unique identifier
	FindByID(ctx context.Context, id string) (*entity.Transaction, error)

	// FindAll returns every stored transaction in no particular order
	FindAll(ctx context.Context) ([]*entity.Transaction, error)

	// Delete removes a transaction by its unique identifier
	Delete(ctx context.Context, id string) error
}
