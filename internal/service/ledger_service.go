package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"wallet_ledger/internal/apperrors"
	"wallet_ledger/internal/models"
	"wallet_ledger/internal/money"
	"wallet_ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 10 * time.Millisecond

	// MaxIdempotencyKeyLength matches transactions.idempotency_key.
	MaxIdempotencyKeyLength = 255
)

// MaxAmount is the exclusive upper bound of any amount or balance, the
// range of a NUMERIC(19, 2) column.
var MaxAmount = decimal.New(1, 17)

// DefaultFeeRate is the share of a transfer amount charged to the sender.
var DefaultFeeRate = decimal.RequireFromString("0.015")

type LedgerService struct {
	store      repository.Store
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration
	feeRate    decimal.Decimal
}

type Option func(*LedgerService)

func WithMaxRetries(n int) Option {
	return func(s *LedgerService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func WithFeeRate(rate decimal.Decimal) Option {
	return func(s *LedgerService) {
		if !rate.IsNegative() {
			s.feeRate = rate
		}
	}
}

// WithBackoff sets the base delay between retries; attempt i waits base*2^i.
func WithBackoff(base time.Duration) Option {
	return func(s *LedgerService) {
		s.backoff = base
	}
}

func NewLedgerService(store repository.Store, logger *slog.Logger, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:      store,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		feeRate:    DefaultFeeRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// unitOfWork runs inside one store transaction and reports whether it
// created a new transaction or found an existing one under the same key.
type unitOfWork func(tx repository.Tx) (*models.Transaction, bool, error)

func (s *LedgerService) Deposit(
	ctx context.Context,
	ownerID int64,
	currency string,
	amount decimal.Decimal,
	key string,
) (*models.Transaction, bool, error) {
	log := s.logger.With(
		slog.String("operation", string(models.TransactionDeposit)),
		slog.Int64("owner_id", ownerID),
		slog.String("idempotency_key", key),
	)
	if existing, err := s.lookupKey(ctx, key); err != nil || existing != nil {
		return existing, false, err
	}
	m, err := positiveAmount(amount, currency)
	if err != nil {
		log.Warn("Deposit rejected", slog.Any("err", err))
		return nil, false, err
	}

	return s.execute(ctx, key, log, func(tx repository.Tx) (*models.Transaction, bool, error) {
		w, err := tx.LockWalletForOwner(ctx, ownerID)
		if err != nil {
			return nil, false, err
		}
		if existing, err := tx.FindTransactionByIdempotencyKey(ctx, key); err != nil || existing != nil {
			return existing, false, err
		}
		if err := creditWithinLimit(w, m); err != nil {
			return nil, false, err
		}
		if err := tx.SaveWallet(ctx, w); err != nil {
			return nil, false, err
		}
		t := newTransaction(w.ID, models.TransactionDeposit, m, key)
		if err := tx.SaveTransaction(ctx, t); err != nil {
			return nil, false, err
		}
		return t, true, nil
	})
}

func (s *LedgerService) Withdraw(
	ctx context.Context,
	ownerID int64,
	currency string,
	amount decimal.Decimal,
	key string,
) (*models.Transaction, bool, error) {
	log := s.logger.With(
		slog.String("operation", string(models.TransactionWithdrawal)),
		slog.Int64("owner_id", ownerID),
		slog.String("idempotency_key", key),
	)
	if existing, err := s.lookupKey(ctx, key); err != nil || existing != nil {
		return existing, false, err
	}
	m, err := positiveAmount(amount, currency)
	if err != nil {
		log.Warn("Withdraw rejected", slog.Any("err", err))
		return nil, false, err
	}

	return s.execute(ctx, key, log, func(tx repository.Tx) (*models.Transaction, bool, error) {
		w, err := tx.LockWalletForOwner(ctx, ownerID)
		if err != nil {
			return nil, false, err
		}
		if existing, err := tx.FindTransactionByIdempotencyKey(ctx, key); err != nil || existing != nil {
			return existing, false, err
		}
		if !w.HasSufficient(m) {
			return nil, false, apperrors.New(apperrors.KindInsufficientFunds,
				"insufficient funds: required %s, available %s", m, w.BalanceOf(m.Currency()))
		}
		if err := w.Debit(m); err != nil {
			return nil, false, err
		}
		if err := tx.SaveWallet(ctx, w); err != nil {
			return nil, false, err
		}
		t := newTransaction(w.ID, models.TransactionWithdrawal, m, key)
		if err := tx.SaveTransaction(ctx, t); err != nil {
			return nil, false, err
		}
		return t, true, nil
	})
}

// Transfer debits amount plus fee from the sender and credits amount*rate in
// recipientCurrency to the recipient. Both wallets are locked in ascending
// owner id order.
func (s *LedgerService) Transfer(
	ctx context.Context,
	senderID, recipientID int64,
	senderCurrency, recipientCurrency string,
	amount, rate decimal.Decimal,
	key string,
) (*models.Transaction, bool, error) {
	log := s.logger.With(
		slog.String("operation", string(models.TransactionTransfer)),
		slog.Int64("owner_id", senderID),
		slog.Int64("recipient_owner_id", recipientID),
		slog.String("idempotency_key", key),
	)
	if existing, err := s.lookupKey(ctx, key); err != nil || existing != nil {
		return existing, false, err
	}
	m, err := positiveAmount(amount, senderCurrency)
	if err != nil {
		log.Warn("Transfer rejected", slog.Any("err", err))
		return nil, false, err
	}
	if senderID == recipientID {
		err := apperrors.New(apperrors.KindInvalidOperation, "cannot transfer to the same wallet")
		log.Warn("Transfer rejected", slog.Any("err", err))
		return nil, false, err
	}
	if !rate.IsPositive() {
		err := apperrors.New(apperrors.KindInvalidOperation, "exchange rate must be positive, got %s", rate)
		log.Warn("Transfer rejected", slog.Any("err", err))
		return nil, false, err
	}

	fee := m.Multiply(s.feeRate)
	total, err := m.Add(fee)
	if err != nil {
		return nil, false, err
	}
	if err := withinLimit(total); err != nil {
		log.Warn("Transfer rejected", slog.Any("err", err))
		return nil, false, err
	}
	converted, err := money.New(m.Amount().Mul(rate), recipientCurrency)
	if err == nil {
		err = withinLimit(converted)
	}
	if err == nil && converted.IsZero() {
		err = apperrors.New(apperrors.KindInvalidAmount,
			"transfer of %s converts to %s, nothing would be credited", m, converted)
	}
	if err != nil {
		log.Warn("Transfer rejected", slog.Any("err", err))
		return nil, false, err
	}

	first, second := senderID, recipientID
	if second < first {
		first, second = second, first
	}

	return s.execute(ctx, key, log, func(tx repository.Tx) (*models.Transaction, bool, error) {
		locked := make(map[int64]*models.Wallet, 2)
		for _, id := range []int64{first, second} {
			w, err := tx.LockWalletForOwner(ctx, id)
			if err != nil {
				return nil, false, err
			}
			locked[id] = w
		}
		if existing, err := tx.FindTransactionByIdempotencyKey(ctx, key); err != nil || existing != nil {
			return existing, false, err
		}

		sender, recipient := locked[senderID], locked[recipientID]
		if !sender.HasSufficient(total) {
			return nil, false, apperrors.New(apperrors.KindInsufficientFunds,
				"insufficient funds: required %s (including fee %s), available %s",
				total, fee, sender.BalanceOf(total.Currency()))
		}
		if err := sender.Debit(total); err != nil {
			return nil, false, err
		}
		if err := creditWithinLimit(recipient, converted); err != nil {
			return nil, false, err
		}
		for _, id := range []int64{first, second} {
			if err := tx.SaveWallet(ctx, locked[id]); err != nil {
				return nil, false, err
			}
		}

		t := newTransaction(sender.ID, models.TransactionTransfer, m, key)
		t.CounterpartyWalletID = uuid.NullUUID{UUID: recipient.ID, Valid: true}
		t.Fee = &fee
		t.CounterpartyCurrency = converted.Currency()
		t.CounterpartyAmount = &converted
		t.ExchangeRate = decimal.NewNullDecimal(rate)
		if err := tx.SaveTransaction(ctx, t); err != nil {
			return nil, false, err
		}
		return t, true, nil
	})
}

// History returns one page of the wallet's transactions, newest first.
func (s *LedgerService) History(
	ctx context.Context,
	walletID uuid.UUID,
	filter models.TransactionFilter,
	page models.PageRequest,
) (models.Page[models.Transaction], error) {
	if err := filter.Validate(); err != nil {
		return models.Page[models.Transaction]{}, err
	}
	if filter.Currency != nil {
		code, err := money.NormalizeCurrency(*filter.Currency)
		if err != nil {
			return models.Page[models.Transaction]{}, err
		}
		filter.Currency = &code
	}

	result, err := s.store.QueryTransactions(ctx, walletID, filter, page.Normalize())
	if err != nil {
		s.logger.Error("History query failed",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return models.Page[models.Transaction]{}, err
	}
	return result, nil
}

func (s *LedgerService) HistoryForOwner(
	ctx context.Context,
	ownerID int64,
	filter models.TransactionFilter,
	page models.PageRequest,
) (models.Page[models.Transaction], error) {
	w, err := s.store.GetWalletByOwner(ctx, ownerID)
	if err != nil {
		return models.Page[models.Transaction]{}, err
	}
	return s.History(ctx, w.ID, filter, page)
}

// OpenWallet creates the single wallet an owner may hold.
func (s *LedgerService) OpenWallet(ctx context.Context, ownerID int64) (*models.Wallet, error) {
	w, err := s.store.CreateWallet(ctx, ownerID)
	if errors.Is(err, repository.ErrWalletAlreadyExist) {
		s.logger.Warn("OpenWallet: wallet already exists", slog.Int64("owner_id", ownerID))
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, err, "owner %d already has a wallet", ownerID)
	}
	if err != nil {
		s.logger.Error("OpenWallet failed",
			slog.Int64("owner_id", ownerID),
			slog.Any("err", err),
		)
		return nil, err
	}
	s.logger.Info("Wallet opened",
		slog.Int64("owner_id", ownerID),
		slog.String("wallet_id", w.ID.String()),
	)
	return w, nil
}

func (s *LedgerService) GetWallet(ctx context.Context, ownerID int64) (*models.Wallet, error) {
	w, err := s.store.GetWalletByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("GetWallet: wallet not found", slog.Int64("owner_id", ownerID))
			return nil, err
		}
		s.logger.Error("GetWallet failed",
			slog.Int64("owner_id", ownerID),
			slog.Any("err", err),
		)
		return nil, err
	}
	return w, nil
}

func (s *LedgerService) lookupKey(ctx context.Context, key string) (*models.Transaction, error) {
	if strings.TrimSpace(key) == "" {
		return nil, apperrors.New(apperrors.KindInvalidOperation, "idempotency key is required")
	}
	if n := utf8.RuneCountInString(key); n > MaxIdempotencyKeyLength {
		return nil, apperrors.New(apperrors.KindInvalidOperation,
			"idempotency key is %d characters long, at most %d allowed", n, MaxIdempotencyKeyLength)
	}
	existing, err := s.store.FindTransactionByIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Error("Idempotency lookup failed",
			slog.String("idempotency_key", key),
			slog.Any("err", err),
		)
		return nil, err
	}
	if existing != nil {
		s.logger.Info("Idempotent replay",
			slog.String("idempotency_key", key),
			slog.String("transaction_id", existing.ID),
		)
	}
	return existing, nil
}

// execute runs fn in a store transaction, retrying on serialization
// failures and deadlocks. A duplicate key at persistence resolves to the
// transaction that won the race.
func (s *LedgerService) execute(ctx context.Context, key string, log *slog.Logger, fn unitOfWork) (*models.Transaction, bool, error) {
	var lastErr error
	for i := 0; i < s.maxRetries; i++ {
		var (
			result  *models.Transaction
			created bool
		)
		err := s.store.InTx(ctx, func(tx repository.Tx) error {
			var err error
			result, created, err = fn(tx)
			return err
		})
		if err == nil {
			if created {
				log.Info("Transaction applied",
					slog.String("transaction_id", result.ID),
					slog.String("amount", result.Amount.String()),
				)
			} else {
				log.Info("Idempotent replay", slog.String("transaction_id", result.ID))
			}
			return result, created, nil
		}

		if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			existing, ferr := s.store.FindTransactionByIdempotencyKey(ctx, key)
			if ferr != nil {
				log.Error("Lookup after duplicate key failed", slog.Any("err", ferr))
				return nil, false, ferr
			}
			if existing == nil {
				return nil, false, fmt.Errorf("transaction for key %q not visible after duplicate: %w", key, err)
			}
			log.Info("Concurrent request resolved to existing transaction",
				slog.String("transaction_id", existing.ID),
			)
			return existing, false, nil
		}

		if isRetryableError(err) {
			lastErr = err
			if i == s.maxRetries-1 {
				break
			}
			log.Warn("Retrying transaction",
				slog.Int("attempt", i+1),
				slog.Any("err", err),
			)
			select {
			case <-time.After(time.Duration(1<<i) * s.backoff):
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
			continue
		}

		if apperrors.KindOf(err) != "" {
			log.Warn("Transaction rejected", slog.Any("err", err))
		} else {
			log.Error("Transaction failed", slog.Any("err", err))
		}
		return nil, false, err
	}
	log.Error("Transaction failed after retries",
		slog.Int("attempts", s.maxRetries),
		slog.Any("err", lastErr),
	)
	return nil, false, lastErr
}

func positiveAmount(amount decimal.Decimal, currency string) (money.Money, error) {
	m, err := money.New(amount, currency)
	if err != nil {
		return money.Money{}, err
	}
	if !m.IsPositive() {
		return money.Money{}, apperrors.New(apperrors.KindInvalidAmount, "amount must be positive, got %s", amount)
	}
	if err := withinLimit(m); err != nil {
		return money.Money{}, err
	}
	return m, nil
}

func withinLimit(m money.Money) error {
	if m.Amount().Abs().GreaterThanOrEqual(MaxAmount) {
		return apperrors.New(apperrors.KindInvalidAmount, "amount %s exceeds the supported range", m)
	}
	return nil
}

// creditWithinLimit credits w unless the resulting balance would leave the
// supported range.
func creditWithinLimit(w *models.Wallet, m money.Money) error {
	next, err := w.BalanceOf(m.Currency()).Add(m)
	if err != nil {
		return err
	}
	if next.Amount().GreaterThanOrEqual(MaxAmount) {
		return apperrors.New(apperrors.KindInvalidAmount,
			"balance of %s would exceed the supported range", m.Currency())
	}
	return w.Credit(m)
}

func newTransaction(walletID uuid.UUID, typ models.TransactionType, amount money.Money, key string) *models.Transaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return &models.Transaction{
		ID:             fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), suffix),
		WalletID:       walletID,
		Type:           typ,
		Status:         models.StatusCompleted,
		Amount:         amount,
		IdempotencyKey: key,
		CreatedAt:      now,
		CompletedAt:    &now,
	}
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
