package repository

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"wallet_ledger/internal/apperrors"
	"wallet_ledger/internal/models"

	"github.com/google/uuid"
)

type walletSlot struct {
	// sem is a one-slot semaphore guarding mutations of wallet.
	sem    chan struct{}
	wallet atomic.Pointer[models.Wallet]
}

// MemoryRepository is an in-process Store. Each wallet has its own lock so
// unrelated wallets are mutated in parallel; the index mutexes only guard
// map lookups and the idempotency key index.
type MemoryRepository struct {
	mu      sync.RWMutex
	byOwner map[int64]*walletSlot

	txMu       sync.RWMutex
	txByKey    map[string]*models.Transaction
	txByWallet map[uuid.UUID][]*models.Transaction

	logger *slog.Logger
}

func NewMemoryRepository(logger *slog.Logger) *MemoryRepository {
	return &MemoryRepository{
		byOwner:    make(map[int64]*walletSlot),
		txByKey:    make(map[string]*models.Transaction),
		txByWallet: make(map[uuid.UUID][]*models.Transaction),
		logger:     logger,
	}
}

func (r *MemoryRepository) CreateWallet(_ context.Context, ownerID int64) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOwner[ownerID]; exists {
		return nil, ErrWalletAlreadyExist
	}
	slot := &walletSlot{sem: make(chan struct{}, 1)}
	w := models.NewWallet(ownerID)
	slot.wallet.Store(w)
	r.byOwner[ownerID] = slot
	return w.Clone(), nil
}

func (r *MemoryRepository) GetWalletByOwner(_ context.Context, ownerID int64) (*models.Wallet, error) {
	slot, err := r.slot(ownerID)
	if err != nil {
		return nil, err
	}
	return slot.wallet.Load().Clone(), nil
}

func (r *MemoryRepository) FindTransactionByIdempotencyKey(_ context.Context, key string) (*models.Transaction, error) {
	r.txMu.RLock()
	defer r.txMu.RUnlock()

	if t, ok := r.txByKey[key]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (r *MemoryRepository) QueryTransactions(
	_ context.Context,
	walletID uuid.UUID,
	filter models.TransactionFilter,
	page models.PageRequest,
) (models.Page[models.Transaction], error) {
	page = page.Normalize()

	r.txMu.RLock()
	matched := make([]models.Transaction, 0)
	for _, t := range r.txByWallet[walletID] {
		if filter.Matches(t) {
			matched = append(matched, *t)
		}
	}
	r.txMu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return models.NewPage(matched[start:end], page, total), nil
}

func (r *MemoryRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	mt := &memoryTx{
		repo:   r,
		locked: make(map[int64]*walletSlot),
		staged: make(map[int64]*models.Wallet),
	}
	defer mt.release()

	if err := fn(mt); err != nil {
		return err
	}
	return mt.commit()
}

func (r *MemoryRepository) slot(ownerID int64) (*walletSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.byOwner[ownerID]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "wallet for owner %d not found", ownerID)
	}
	return slot, nil
}

type memoryTx struct {
	repo   *MemoryRepository
	order  []*walletSlot
	locked map[int64]*walletSlot
	staged map[int64]*models.Wallet
	txs    []*models.Transaction
}

func (t *memoryTx) LockWalletForOwner(ctx context.Context, ownerID int64) (*models.Wallet, error) {
	if w, ok := t.staged[ownerID]; ok {
		return w.Clone(), nil
	}
	if slot, ok := t.locked[ownerID]; ok {
		return slot.wallet.Load().Clone(), nil
	}

	slot, err := t.repo.slot(ownerID)
	if err != nil {
		return nil, err
	}
	select {
	case slot.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	t.order = append(t.order, slot)
	t.locked[ownerID] = slot
	return slot.wallet.Load().Clone(), nil
}

func (t *memoryTx) SaveWallet(_ context.Context, wallet *models.Wallet) error {
	if _, ok := t.locked[wallet.OwnerID]; !ok {
		return apperrors.New(apperrors.KindInvalidOperation, "wallet for owner %d is not locked", wallet.OwnerID)
	}
	wallet.Version++
	wallet.UpdatedAt = time.Now().UTC()
	t.staged[wallet.OwnerID] = wallet.Clone()
	return nil
}

func (t *memoryTx) FindTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	for _, staged := range t.txs {
		if staged.IdempotencyKey == key {
			c := *staged
			return &c, nil
		}
	}
	return t.repo.FindTransactionByIdempotencyKey(ctx, key)
}

func (t *memoryTx) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	for _, staged := range t.txs {
		if staged.IdempotencyKey == tx.IdempotencyKey {
			return ErrDuplicateIdempotencyKey
		}
	}
	c := *tx
	t.txs = append(t.txs, &c)
	return nil
}

// commit publishes staged wallets and transactions. Nothing is applied when
// any staged key is already present in the index.
func (t *memoryTx) commit() error {
	r := t.repo
	r.txMu.Lock()
	defer r.txMu.Unlock()

	for _, tx := range t.txs {
		if _, exists := r.txByKey[tx.IdempotencyKey]; exists {
			r.logger.Debug("Idempotency key already committed",
				slog.String("idempotency_key", tx.IdempotencyKey),
			)
			return ErrDuplicateIdempotencyKey
		}
	}
	for ownerID, w := range t.staged {
		t.locked[ownerID].wallet.Store(w)
	}
	for _, tx := range t.txs {
		r.txByKey[tx.IdempotencyKey] = tx
		r.txByWallet[tx.WalletID] = append(r.txByWallet[tx.WalletID], tx)
	}
	return nil
}

func (t *memoryTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		<-t.order[i].sem
	}
}
