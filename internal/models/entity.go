package models

import (
	"sort"
	"time"

	"wallet_ledger/internal/apperrors"
	"wallet_ledger/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        uuid.UUID              `db:"id" json:"walletId"`
	OwnerID   int64                  `db:"owner_id" json:"ownerId"`
	Balances  map[string]money.Money `json:"balances"`
	CreatedAt time.Time              `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time              `db:"updated_at" json:"updatedAt"`
	Version   int64                  `db:"version" json:"version"`
}

func NewWallet(ownerID int64) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balances:  make(map[string]money.Money),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BalanceOf returns the balance held in currency, zero if the wallet never held it.
func (w *Wallet) BalanceOf(currency string) money.Money {
	code := money.Zero(currency).Currency()
	if b, ok := w.Balances[code]; ok {
		return b
	}
	return money.Zero(code)
}

func (w *Wallet) HasSufficient(amount money.Money) bool {
	ok, err := w.BalanceOf(amount.Currency()).GreaterOrEqual(amount)
	return ok && err == nil
}

func (w *Wallet) Credit(amount money.Money) error {
	if amount.IsNegative() {
		return apperrors.New(apperrors.KindInvalidAmount, "credit amount must not be negative: %s", amount)
	}
	next, err := w.BalanceOf(amount.Currency()).Add(amount)
	if err != nil {
		return err
	}
	w.set(next)
	return nil
}

// Debit subtracts amount from the matching balance. The balance is left
// untouched when the result would be negative.
func (w *Wallet) Debit(amount money.Money) error {
	if amount.IsNegative() {
		return apperrors.New(apperrors.KindInvalidAmount, "debit amount must not be negative: %s", amount)
	}
	current := w.BalanceOf(amount.Currency())
	next, err := current.Subtract(amount)
	if err != nil {
		return err
	}
	if next.IsNegative() {
		return apperrors.New(apperrors.KindInsufficientFunds,
			"insufficient funds: required %s, available %s", amount, current)
	}
	w.set(next)
	return nil
}

// Currencies lists the currency codes the wallet holds, sorted.
func (w *Wallet) Currencies() []string {
	codes := make([]string, 0, len(w.Balances))
	for code := range w.Balances {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (w *Wallet) Clone() *Wallet {
	c := *w
	c.Balances = make(map[string]money.Money, len(w.Balances))
	for code, b := range w.Balances {
		c.Balances[code] = b
	}
	return &c
}

func (w *Wallet) set(b money.Money) {
	if w.Balances == nil {
		w.Balances = make(map[string]money.Money)
	}
	w.Balances[b.Currency()] = b
}

type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTransfer   TransactionType = "TRANSFER"
)

type TransactionStatus string

// Every operation persists COMPLETED. StatusPending is reserved for
// asynchronous settlement and is never written today.
const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable record of one money movement.
type Transaction struct {
	ID                   string              `db:"id" json:"transactionId"`
	WalletID             uuid.UUID           `db:"wallet_id" json:"walletId"`
	CounterpartyWalletID uuid.NullUUID       `db:"counterparty_wallet_id" json:"counterpartyWalletId"`
	Type                 TransactionType     `db:"type" json:"type"`
	Status               TransactionStatus   `db:"status" json:"status"`
	Amount               money.Money         `json:"amount"`
	Fee                  *money.Money        `json:"fee,omitempty"`
	CounterpartyCurrency string              `db:"counterparty_currency" json:"counterpartyCurrency,omitempty"`
	CounterpartyAmount   *money.Money        `json:"counterpartyAmount,omitempty"`
	ExchangeRate         decimal.NullDecimal `db:"exchange_rate" json:"exchangeRate"`
	IdempotencyKey       string              `db:"idempotency_key" json:"idempotencyKey"`
	CreatedAt            time.Time           `db:"created_at" json:"createdAt"`
	CompletedAt          *time.Time          `db:"completed_at" json:"completedAt,omitempty"`
	FailureReason        string              `db:"failure_reason" json:"failureReason,omitempty"`
}

// TransactionFilter holds optional history predicates. Nil fields do not constrain.
type TransactionFilter struct {
	Currency  *string
	Type      *TransactionType
	Status    *TransactionStatus
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

func (f TransactionFilter) Validate() error {
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return apperrors.New(apperrors.KindInvalidOperation, "minAmount %s is greater than maxAmount %s",
			f.MinAmount.String(), f.MaxAmount.String())
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return apperrors.New(apperrors.KindInvalidOperation, "fromDate is after toDate")
	}
	return nil
}

// Matches reports whether tx satisfies every set predicate.
func (f TransactionFilter) Matches(tx *Transaction) bool {
	if f.Currency != nil && tx.Amount.Currency() != *f.Currency {
		return false
	}
	if f.Type != nil && tx.Type != *f.Type {
		return false
	}
	if f.Status != nil && tx.Status != *f.Status {
		return false
	}
	if f.From != nil && tx.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.CreatedAt.After(*f.To) {
		return false
	}
	if f.MinAmount != nil && tx.Amount.Amount().LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && tx.Amount.Amount().GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps the request to a non-negative page and a size in (0, MaxPageSize].
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Items:      items,
		Page:       req.Page,
		Size:       req.Size,
		TotalItems: total,
		TotalPages: pages,
	}
}
