package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"wallet_ledger/internal/apperrors"
	"wallet_ledger/internal/models"
	"wallet_ledger/internal/money"
	"wallet_ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(w *models.Wallet, typ models.TransactionType, amount money.Money, key string, at time.Time) *models.Transaction {
	at = at.UTC().Truncate(time.Microsecond)
	return &models.Transaction{
		ID:             fmt.Sprintf("TXN-%d-%s", at.UnixMilli(), key),
		WalletID:       w.ID,
		Type:           typ,
		Status:         models.StatusCompleted,
		Amount:         amount,
		IdempotencyKey: key,
		CreatedAt:      at,
		CompletedAt:    &at,
	}
}

// credit deposits amount into the owner's wallet through a full unit of work.
func credit(t *testing.T, store repository.Store, ownerID int64, amount money.Money, key string, at time.Time) *models.Transaction {
	t.Helper()
	var saved *models.Transaction
	err := store.InTx(context.Background(), func(tx repository.Tx) error {
		w, err := tx.LockWalletForOwner(context.Background(), ownerID)
		if err != nil {
			return err
		}
		if err := w.Credit(amount); err != nil {
			return err
		}
		if err := tx.SaveWallet(context.Background(), w); err != nil {
			return err
		}
		saved = newTestTransaction(w, models.TransactionDeposit, amount, key, at)
		return tx.SaveTransaction(context.Background(), saved)
	})
	require.NoError(t, err)
	return saved
}

func testWalletLifecycle(t *testing.T, store repository.Store) {
	ctx := context.Background()

	w, err := store.CreateWallet(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), w.OwnerID)

	_, err = store.CreateWallet(ctx, 10)
	assert.ErrorIs(t, err, repository.ErrWalletAlreadyExist)

	_, err = store.GetWalletByOwner(ctx, 11)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	credit(t, store, 10, money.MustParse("12.34", "USD"), "life-1", time.Now())
	credit(t, store, 10, money.MustParse("1.00", "EUR"), "life-2", time.Now())

	got, err := store.GetWalletByOwner(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, "12.34 USD", got.BalanceOf("USD").String())
	assert.Equal(t, "1.00 EUR", got.BalanceOf("EUR").String())
	assert.EqualValues(t, 2, got.Version)
}

func testRollbackOnError(t *testing.T, store repository.Store) {
	ctx := context.Background()
	_, err := store.CreateWallet(ctx, 20)
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx repository.Tx) error {
		w, err := tx.LockWalletForOwner(ctx, 20)
		if err != nil {
			return err
		}
		require.NoError(t, w.Credit(money.MustParse("5", "USD")))
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := store.GetWalletByOwner(ctx, 20)
	require.NoError(t, err)
	assert.True(t, got.BalanceOf("USD").IsZero())
}

func testDuplicateIdempotencyKey(t *testing.T, store repository.Store) {
	ctx := context.Background()
	_, err := store.CreateWallet(ctx, 30)
	require.NoError(t, err)

	first := credit(t, store, 30, money.MustParse("1", "USD"), "dup", time.Now())

	err = store.InTx(ctx, func(tx repository.Tx) error {
		w, err := tx.LockWalletForOwner(ctx, 30)
		if err != nil {
			return err
		}
		require.NoError(t, w.Credit(money.MustParse("1", "USD")))
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		again := newTestTransaction(w, models.TransactionDeposit, money.MustParse("1", "USD"), "dup", time.Now())
		again.ID = "TXN-other"
		return tx.SaveTransaction(ctx, again)
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateIdempotencyKey)

	found, err := store.FindTransactionByIdempotencyKey(ctx, "dup")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	w, err := store.GetWalletByOwner(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, "1.00 USD", w.BalanceOf("USD").String())

	missing, err := store.FindTransactionByIdempotencyKey(ctx, "never")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func testQueryTransactions(t *testing.T, store repository.Store) {
	ctx := context.Background()
	w, err := store.CreateWallet(ctx, 40)
	require.NoError(t, err)

	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		credit(t, store, 40, money.MustParse(fmt.Sprintf("%d", (i+1)*10), "USD"), fmt.Sprintf("q-usd-%d", i), base.Add(time.Duration(i)*time.Hour))
	}
	credit(t, store, 40, money.MustParse("7", "EUR"), "q-eur", base.Add(24*time.Hour))

	all, err := store.QueryTransactions(ctx, w.ID, models.TransactionFilter{}, models.PageRequest{Size: 4})
	require.NoError(t, err)
	assert.EqualValues(t, 6, all.TotalItems)
	assert.Equal(t, 2, all.TotalPages)
	require.Len(t, all.Items, 4)
	assert.Equal(t, "q-eur", all.Items[0].IdempotencyKey)
	assert.Equal(t, "q-usd-4", all.Items[1].IdempotencyKey)

	usd := "USD"
	minAmt := decimal.NewFromInt(20)
	maxAmt := decimal.NewFromInt(40)
	from := base.Add(2 * time.Hour)
	filtered, err := store.QueryTransactions(ctx, w.ID, models.TransactionFilter{
		Currency:  &usd,
		MinAmount: &minAmt,
		MaxAmount: &maxAmt,
		From:      &from,
	}, models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 2)
	assert.Equal(t, "q-usd-3", filtered.Items[0].IdempotencyKey)
	assert.Equal(t, "q-usd-2", filtered.Items[1].IdempotencyKey)

	empty, err := store.QueryTransactions(ctx, uuid.New(), models.TransactionFilter{}, models.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Zero(t, empty.TotalItems)
}

func testTransferRecordRoundTrip(t *testing.T, store repository.Store) {
	ctx := context.Background()
	sender, err := store.CreateWallet(ctx, 50)
	require.NoError(t, err)
	recipient, err := store.CreateWallet(ctx, 51)
	require.NoError(t, err)

	rate := decimal.RequireFromString("1.0869565217")
	fee := money.MustParse("0.15", "USD")
	converted := money.MustParse("10.87", "EUR")
	want := newTestTransaction(sender, models.TransactionTransfer, money.MustParse("10", "USD"), "rt-transfer", time.Now())
	want.Fee = &fee
	want.CounterpartyWalletID = uuid.NullUUID{UUID: recipient.ID, Valid: true}
	want.CounterpartyCurrency = "EUR"
	want.CounterpartyAmount = &converted
	want.ExchangeRate = decimal.NewNullDecimal(rate)

	err = store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockWalletForOwner(ctx, 50); err != nil {
			return err
		}
		return tx.SaveTransaction(ctx, want)
	})
	require.NoError(t, err)

	got, err := store.FindTransactionByIdempotencyKey(ctx, "rt-transfer")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	require.True(t, got.ExchangeRate.Valid)
	assert.Equal(t, "1.0869565217", got.ExchangeRate.Decimal.String())
	require.NotNil(t, got.Fee)
	assert.Equal(t, "0.15 USD", got.Fee.String())
	require.NotNil(t, got.CounterpartyAmount)
	assert.Equal(t, "10.87 EUR", got.CounterpartyAmount.String())
	assert.Equal(t, recipient.ID, got.CounterpartyWalletID.UUID)
	assert.True(t, got.CreatedAt.Equal(want.CreatedAt))

	page, err := store.QueryTransactions(ctx, sender.ID, models.TransactionFilter{}, models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].ExchangeRate.Decimal.Equal(rate))
}
