package repository

import (
	"wallet_ledger/internal/money"
)

// SeedBalance is a test helper that credits a wallet held by the in-memory
// store without recording a transaction.
func SeedBalance(s Store, ownerID int64, amount money.Money) error {
	mem, ok := s.(*MemoryRepository)
	if !ok {
		return nil
	}
	slot, err := mem.slot(ownerID)
	if err != nil {
		return err
	}
	slot.sem <- struct{}{}
	defer func() { <-slot.sem }()

	w := slot.wallet.Load().Clone()
	if err := w.Credit(amount); err != nil {
		return err
	}
	slot.wallet.Store(w)
	return nil
}
