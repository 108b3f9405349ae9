package repository

import (
	"context"
	"errors"

	"wallet_ledger/internal/models"

	"github.com/google/uuid"
)

//go:generate mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks Store,Tx

var (
	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key was committed concurrently.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrWalletAlreadyExist      = errors.New("wallet already exists")
)

// Store is the persistence boundary of the ledger. All balance mutations go
// through InTx; the remaining methods are lock-free reads.
type Store interface {
	// InTx runs fn in one all-or-nothing unit of work. Wallet locks taken by
	// fn are held until InTx returns.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// FindTransactionByIdempotencyKey returns nil, nil when no transaction
	// carries key.
	FindTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	QueryTransactions(ctx context.Context, walletID uuid.UUID, filter models.TransactionFilter, page models.PageRequest) (models.Page[models.Transaction], error)
	GetWalletByOwner(ctx context.Context, ownerID int64) (*models.Wallet, error)
	CreateWallet(ctx context.Context, ownerID int64) (*models.Wallet, error)
}

type Tx interface {
	// LockWalletForOwner takes the owner's wallet lock and returns a private
	// copy of the wallet. Callers lock in ascending owner id order.
	LockWalletForOwner(ctx context.Context, ownerID int64) (*models.Wallet, error)
	SaveWallet(ctx context.Context, wallet *models.Wallet) error
	FindTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
}
