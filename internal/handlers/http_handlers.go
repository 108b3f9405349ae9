package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"wallet_ledger/internal/apperrors"
	"wallet_ledger/internal/middleware"
	"wallet_ledger/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=http_handlers.go -destination=../mocks/mock_ledger_service.go -package=mocks LedgerService,RateResolver

type LedgerService interface {
	Deposit(ctx context.Context, ownerID int64, currency string, amount decimal.Decimal, key string) (*models.Transaction, bool, error)
	Withdraw(ctx context.Context, ownerID int64, currency string, amount decimal.Decimal, key string) (*models.Transaction, bool, error)
	Transfer(ctx context.Context, senderID, recipientID int64, senderCurrency, recipientCurrency string, amount, rate decimal.Decimal, key string) (*models.Transaction, bool, error)
	HistoryForOwner(ctx context.Context, ownerID int64, filter models.TransactionFilter, page models.PageRequest) (models.Page[models.Transaction], error)
	OpenWallet(ctx context.Context, ownerID int64) (*models.Wallet, error)
	GetWallet(ctx context.Context, ownerID int64) (*models.Wallet, error)
}

type RateResolver interface {
	Rate(from, to string) (decimal.Decimal, error)
}

const dateLayout = "2006-01-02"

type LedgerHTTPHandler struct {
	service LedgerService
	rates   RateResolver
}

func NewLedgerHTTPHandler(service LedgerService, rates RateResolver) *LedgerHTTPHandler {
	return &LedgerHTTPHandler{service: service, rates: rates}
}

// RegisterRoutes mounts the API under /api/v1. idempotency, when non-nil,
// guards the money-moving endpoints.
func (h *LedgerHTTPHandler) RegisterRoutes(r *gin.Engine, idempotency gin.HandlerFunc) {
	v1 := r.Group("/api/v1", middleware.OwnerIdentity())
	{
		v1.POST("/wallets", h.HandleOpenWallet)
		v1.GET("/wallets/me", h.HandleGetWallet)

		tx := v1.Group("/transactions")
		if idempotency != nil {
			tx.Use(idempotency)
		}
		tx.POST("/deposit", h.HandleDeposit)
		tx.POST("/withdraw", h.HandleWithdraw)
		tx.POST("/transfer", h.HandleTransfer)
		tx.GET("/history", h.HandleHistory)
	}
}

func (h *LedgerHTTPHandler) HandleOpenWallet(c *gin.Context) {
	ownerID, _ := middleware.OwnerIDFromContext(c)
	w, err := h.service.OpenWallet(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *LedgerHTTPHandler) HandleGetWallet(c *gin.Context) {
	ownerID, _ := middleware.OwnerIDFromContext(c)
	w, err := h.service.GetWallet(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *LedgerHTTPHandler) HandleDeposit(c *gin.Context) {
	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	ownerID, _ := middleware.OwnerIDFromContext(c)
	tx, created, err := h.service.Deposit(c.Request.Context(), ownerID, req.Currency, req.Amount, idempotencyKey(c))
	h.writeTransaction(c, ownerID, tx, created, err)
}

func (h *LedgerHTTPHandler) HandleWithdraw(c *gin.Context) {
	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	ownerID, _ := middleware.OwnerIDFromContext(c)
	tx, created, err := h.service.Withdraw(c.Request.Context(), ownerID, req.Currency, req.Amount, idempotencyKey(c))
	h.writeTransaction(c, ownerID, tx, created, err)
}

func (h *LedgerHTTPHandler) HandleTransfer(c *gin.Context) {
	var req models.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	rate, err := h.rates.Rate(req.SenderCurrency, req.RecipientCurrency)
	if err != nil {
		writeError(c, err)
		return
	}
	ownerID, _ := middleware.OwnerIDFromContext(c)
	tx, created, err := h.service.Transfer(c.Request.Context(), ownerID, req.RecipientOwnerID,
		req.SenderCurrency, req.RecipientCurrency, req.Amount, rate, idempotencyKey(c))
	h.writeTransaction(c, ownerID, tx, created, err)
}

func (h *LedgerHTTPHandler) HandleHistory(c *gin.Context) {
	var q models.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	filter, err := parseHistoryQuery(q)
	if err != nil {
		writeError(c, err)
		return
	}
	ownerID, _ := middleware.OwnerIDFromContext(c)
	page, err := h.service.HistoryForOwner(c.Request.Context(), ownerID, filter, models.PageRequest{Page: q.Page, Size: q.Size})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// parseHistoryQuery turns query parameters into a filter. fromDate covers
// its whole day from midnight UTC, toDate up to the last instant of its day.
func parseHistoryQuery(q models.HistoryQuery) (models.TransactionFilter, error) {
	var f models.TransactionFilter
	if q.Currency != "" {
		code := strings.ToUpper(strings.TrimSpace(q.Currency))
		f.Currency = &code
	}
	if q.Type != "" {
		t := models.TransactionType(q.Type)
		f.Type = &t
	}
	if q.Status != "" {
		s := models.TransactionStatus(q.Status)
		f.Status = &s
	}
	if q.FromDate != "" {
		from, err := time.Parse(dateLayout, q.FromDate)
		if err != nil {
			return f, apperrors.Wrap(apperrors.KindFormat, err, "invalid fromDate '%s'", q.FromDate)
		}
		f.From = &from
	}
	if q.ToDate != "" {
		to, err := time.Parse(dateLayout, q.ToDate)
		if err != nil {
			return f, apperrors.Wrap(apperrors.KindFormat, err, "invalid toDate '%s'", q.ToDate)
		}
		to = to.Add(24*time.Hour - time.Microsecond)
		f.To = &to
	}
	if q.MinAmount != "" {
		d, err := decimal.NewFromString(q.MinAmount)
		if err != nil {
			return f, apperrors.Wrap(apperrors.KindFormat, err, "invalid minAmount '%s'", q.MinAmount)
		}
		f.MinAmount = &d
	}
	if q.MaxAmount != "" {
		d, err := decimal.NewFromString(q.MaxAmount)
		if err != nil {
			return f, apperrors.Wrap(apperrors.KindFormat, err, "invalid maxAmount '%s'", q.MaxAmount)
		}
		f.MaxAmount = &d
	}
	return f, nil
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))
}

// writeTransaction answers 201 for a new transaction. A replay is answered
// with 200 only when the stored transaction belongs to the caller's wallet.
func (h *LedgerHTTPHandler) writeTransaction(c *gin.Context, ownerID int64, tx *models.Transaction, created bool, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	if !created {
		w, err := h.service.GetWallet(c.Request.Context(), ownerID)
		if err != nil {
			writeError(c, err)
			return
		}
		if w.ID != tx.WalletID {
			writeError(c, apperrors.New(apperrors.KindInvalidOperation,
				"idempotency key %q is already used by another wallet", tx.IdempotencyKey))
			return
		}
		c.Header(middleware.ReplayedHeader, "true")
		c.JSON(http.StatusOK, tx)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidAmount, apperrors.KindFormat, apperrors.KindArithmetic,
		apperrors.KindCurrencyMismatch, apperrors.KindInvalidOperation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInsufficientFunds:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func writeError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := statusFor(kind)
	if kind == "" {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		middleware.LoggerFromContext(c).Error("Request failed", slog.Any("err", err))
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request",
		"details": err.Error(),
		"kind":    apperrors.KindFormat,
	})
}
