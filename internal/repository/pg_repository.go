package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wallet_ledger/internal/apperrors"
	"wallet_ledger/internal/models"
	"wallet_ledger/internal/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	uniqueViolation          = "23505"
	idempotencyKeyConstraint = "transactions_idempotency_key_key"
	ownerIDConstraint        = "wallets_owner_id_key"
)

const transactionColumns = `id, wallet_id, counterparty_wallet_id, type, status, amount, currency, fee,
	counterparty_currency, counterparty_amount, exchange_rate, idempotency_key, created_at,
	completed_at, failure_reason`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPGRepository(pool *pgxpool.Pool, logger *slog.Logger) *PGRepository {
	return &PGRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *PGRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		r.logger.Error("Failed to begin transaction", slog.Any("err", err))
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.Error("Failed to rollback transaction", slog.Any("err", err))
		}
	}()

	if err := fn(&pgTx{tx: tx, logger: r.logger}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err, idempotencyKeyConstraint) {
			return ErrDuplicateIdempotencyKey
		}
		r.logger.Error("Failed to commit transaction", slog.Any("err", err))
		return err
	}
	return nil
}

func (r *PGRepository) FindTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	return findTransactionByKey(ctx, r.pool, key)
}

func (r *PGRepository) GetWalletByOwner(ctx context.Context, ownerID int64) (*models.Wallet, error) {
	return loadWallet(ctx, r.pool, ownerID, false)
}

func (r *PGRepository) CreateWallet(ctx context.Context, ownerID int64) (*models.Wallet, error) {
	w := models.NewWallet(ownerID)
	w.CreatedAt = w.CreatedAt.Truncate(time.Microsecond)
	w.UpdatedAt = w.CreatedAt

	_, err := r.pool.Exec(ctx,
		"INSERT INTO wallets (id, owner_id, version, created_at, updated_at) VALUES ($1, $2, 0, $3, $3)",
		w.ID, ownerID, w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, ownerIDConstraint) {
			return nil, ErrWalletAlreadyExist
		}
		r.logger.Error("Failed to create wallet",
			slog.Int64("owner_id", ownerID),
			slog.Any("err", err),
		)
		return nil, err
	}
	return w, nil
}

func (r *PGRepository) QueryTransactions(
	ctx context.Context,
	walletID uuid.UUID,
	filter models.TransactionFilter,
	page models.PageRequest,
) (models.Page[models.Transaction], error) {
	page = page.Normalize()
	where, args := buildTransactionFilter(walletID, filter)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE "+where, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return models.Page[models.Transaction]{}, fmt.Errorf("count transactions: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		transactionColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		r.logger.Error("Failed to query transactions",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return models.Page[models.Transaction]{}, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	items := make([]models.Transaction, 0, page.Size)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return models.Page[models.Transaction]{}, fmt.Errorf("scan transaction: %w", err)
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Transaction]{}, fmt.Errorf("iterate transactions: %w", err)
	}
	return models.NewPage(items, page, total), nil
}

type pgTx struct {
	tx     pgx.Tx
	logger *slog.Logger
}

func (t *pgTx) LockWalletForOwner(ctx context.Context, ownerID int64) (*models.Wallet, error) {
	return loadWallet(ctx, t.tx, ownerID, true)
}

// SaveWallet bumps the wallet version and upserts every balance in one batch.
func (t *pgTx) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	batch := &pgx.Batch{}
	batch.Queue("UPDATE wallets SET version = version + 1, updated_at = NOW() WHERE id = $1 RETURNING version, updated_at", wallet.ID)
	codes := wallet.Currencies()
	for _, code := range codes {
		batch.Queue(`
			INSERT INTO wallet_balances (wallet_id, currency, balance) VALUES ($1, $2, $3)
			ON CONFLICT (wallet_id, currency) DO UPDATE SET balance = EXCLUDED.balance`,
			wallet.ID, code, wallet.Balances[code].Amount())
	}

	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()

	if err := br.QueryRow().Scan(&wallet.Version, &wallet.UpdatedAt); err != nil {
		t.logger.Error("Failed to update wallet version",
			slog.String("wallet_id", wallet.ID.String()),
			slog.Any("err", err),
		)
		return fmt.Errorf("update wallet %s: %w", wallet.ID, err)
	}
	for _, code := range codes {
		if _, err := br.Exec(); err != nil {
			t.logger.Error("Failed to upsert wallet balance",
				slog.String("wallet_id", wallet.ID.String()),
				slog.String("currency", code),
				slog.Any("err", err),
			)
			return fmt.Errorf("upsert balance %s for wallet %s: %w", code, wallet.ID, err)
		}
	}
	return nil
}

func (t *pgTx) FindTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	return findTransactionByKey(ctx, t.tx, key)
}

func (t *pgTx) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	var cpWallet *uuid.UUID
	if tx.CounterpartyWalletID.Valid {
		cpWallet = &tx.CounterpartyWalletID.UUID
	}
	var fee, cpAmount decimal.NullDecimal
	if tx.Fee != nil {
		fee = decimal.NewNullDecimal(tx.Fee.Amount())
	}
	if tx.CounterpartyAmount != nil {
		cpAmount = decimal.NewNullDecimal(tx.CounterpartyAmount.Amount())
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		tx.ID, tx.WalletID, cpWallet, string(tx.Type), string(tx.Status),
		tx.Amount.Amount(), tx.Amount.Currency(), fee,
		nullString(tx.CounterpartyCurrency), cpAmount, tx.ExchangeRate, tx.IdempotencyKey,
		tx.CreatedAt, tx.CompletedAt, nullString(tx.FailureReason),
	)
	if err != nil {
		if isUniqueViolation(err, idempotencyKeyConstraint) {
			return ErrDuplicateIdempotencyKey
		}
		t.logger.Error("Failed to insert transaction",
			slog.String("transaction_id", tx.ID),
			slog.String("wallet_id", tx.WalletID.String()),
			slog.Any("err", err),
		)
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func loadWallet(ctx context.Context, q querier, ownerID int64, forUpdate bool) (*models.Wallet, error) {
	query := "SELECT id, owner_id, version, created_at, updated_at FROM wallets WHERE owner_id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	w := &models.Wallet{Balances: make(map[string]money.Money)}
	err := q.QueryRow(ctx, query, ownerID).Scan(&w.ID, &w.OwnerID, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.KindNotFound, "wallet for owner %d not found", ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("select wallet for owner %d: %w", ownerID, err)
	}

	rows, err := q.Query(ctx, "SELECT currency, balance FROM wallet_balances WHERE wallet_id = $1", w.ID)
	if err != nil {
		return nil, fmt.Errorf("select balances for wallet %s: %w", w.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		var balance decimal.Decimal
		if err := rows.Scan(&code, &balance); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		m, err := money.New(balance, code)
		if err != nil {
			return nil, err
		}
		w.Balances[m.Currency()] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return w, nil
}

func findTransactionByKey(ctx context.Context, q querier, key string) (*models.Transaction, error) {
	row := q.QueryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE idempotency_key = $1", key)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction by idempotency key: %w", err)
	}
	return t, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		t                  models.Transaction
		cpWallet           *uuid.UUID
		txType, status     string
		amount             decimal.Decimal
		currency           string
		fee, cpAmount      decimal.NullDecimal
		cpCurrency, reason *string
	)
	err := row.Scan(&t.ID, &t.WalletID, &cpWallet, &txType, &status, &amount, &currency, &fee,
		&cpCurrency, &cpAmount, &t.ExchangeRate, &t.IdempotencyKey, &t.CreatedAt, &t.CompletedAt, &reason)
	if err != nil {
		return nil, err
	}

	t.Type = models.TransactionType(txType)
	t.Status = models.TransactionStatus(status)
	if t.Amount, err = money.New(amount, currency); err != nil {
		return nil, err
	}
	if cpWallet != nil {
		t.CounterpartyWalletID = uuid.NullUUID{UUID: *cpWallet, Valid: true}
	}
	if fee.Valid {
		m, err := money.New(fee.Decimal, currency)
		if err != nil {
			return nil, err
		}
		t.Fee = &m
	}
	if cpCurrency != nil {
		t.CounterpartyCurrency = *cpCurrency
		if cpAmount.Valid {
			m, err := money.New(cpAmount.Decimal, *cpCurrency)
			if err != nil {
				return nil, err
			}
			t.CounterpartyAmount = &m
		}
	}
	if reason != nil {
		t.FailureReason = *reason
	}
	return &t, nil
}

func buildTransactionFilter(walletID uuid.UUID, f models.TransactionFilter) (string, []any) {
	conds := []string{"wallet_id = $1"}
	args := []any{walletID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Currency != nil {
		add("currency = $%d", *f.Currency)
	}
	if f.Type != nil {
		add("type = $%d", string(*f.Type))
	}
	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if f.MinAmount != nil {
		add("amount >= $%d", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		add("amount <= $%d", *f.MaxAmount)
	}
	return strings.Join(conds, " AND "), args
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
	}
	return false
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
