// Package store caches user records and locally created transactions.
//
// The remote API owns the truth. Anything held here is overwritten on the next
// successful fetch and is only read back when the remote call fails.
package store

import (
	"context"
	"errors"

	"lipia/models"
)

var ErrNotFound = errors.New("not found")

// Stats is a snapshot of what the cache currently holds.
type Stats struct {
	Users        int64 `json:"users"`
	Transactions int64 `json:"transactions"`
}

type Store interface {
	// PutUser overwrites the cached record, last write wins.
	PutUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, username string) (bool, error)

	// AppendTransaction keeps insertion order and accepts duplicate IDs.
	AppendTransaction(ctx context.Context, txn models.Transaction) error
	TransactionsByUser(ctx context.Context, username string) ([]models.Transaction, error)
	// GetTransaction and UpdateTransaction act on the first record with the ID.
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, transactionID string, status models.TransactionStatus, reference string) error

	Reset(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}
