package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet_ledger/internal/apperrors"
	"wallet_ledger/internal/handlers"
	"wallet_ledger/internal/logging"
	"wallet_ledger/internal/mocks"
	"wallet_ledger/internal/models"
	"wallet_ledger/internal/money"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router  *gin.Engine
	service *mocks.MockLedgerService
	rates   *mocks.MockRateResolver
}

func setupMockRouter(t *testing.T) *fixture {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	f := &fixture{
		service: mocks.NewMockLedgerService(ctrl),
		rates:   mocks.NewMockRateResolver(ctrl),
	}
	h := handlers.NewLedgerHTTPHandler(f.service, f.rates)
	f.router = handlers.NewRouter(h, logging.Discard(), nil, nil)
	return f
}

func (f *fixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", "1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func sampleTx(typ models.TransactionType, amount string) *models.Transaction {
	now := time.Now().UTC()
	return &models.Transaction{
		ID:             "TXN-1-abcdef",
		Type:           typ,
		Status:         models.StatusCompleted,
		Amount:         money.MustParse(amount, "USD"),
		IdempotencyKey: "k1",
		CreatedAt:      now,
		CompletedAt:    &now,
	}
}

func TestHandleDeposit_Created(t *testing.T) {
	f := setupMockRouter(t)
	f.service.EXPECT().
		Deposit(gomock.Any(), int64(1), "USD", decimal.RequireFromString("100.50"), "k1").
		Return(sampleTx(models.TransactionDeposit, "100.50"), true, nil)

	w := f.do(http.MethodPost, "/api/v1/transactions/deposit",
		map[string]string{"currency": "USD", "amount": "100.50"},
		map[string]string{"Idempotency-Key": "k1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Idempotent-Replayed"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "TXN-1-abcdef", body["transactionId"])
	assert.Equal(t, map[string]any{"amount": "100.50", "currency": "USD"}, body["amount"])
}

func TestHandleDeposit_Replay(t *testing.T) {
	f := setupMockRouter(t)
	wallet := models.NewWallet(1)
	tx := sampleTx(models.TransactionDeposit, "5")
	tx.WalletID = wallet.ID
	f.service.EXPECT().
		Deposit(gomock.Any(), int64(1), "USD", decimal.RequireFromString("5"), "k1").
		Return(tx, false, nil)
	f.service.EXPECT().GetWallet(gomock.Any(), int64(1)).Return(wallet, nil)

	w := f.do(http.MethodPost, "/api/v1/transactions/deposit",
		map[string]string{"currency": "USD", "amount": "5"},
		map[string]string{"Idempotency-Key": "k1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
}

func TestHandleDeposit_ReplayOfForeignKey(t *testing.T) {
	f := setupMockRouter(t)
	tx := sampleTx(models.TransactionDeposit, "5")
	tx.WalletID = models.NewWallet(2).ID
	f.service.EXPECT().
		Deposit(gomock.Any(), int64(1), "USD", decimal.RequireFromString("5"), "k1").
		Return(tx, false, nil)
	f.service.EXPECT().GetWallet(gomock.Any(), int64(1)).Return(models.NewWallet(1), nil)

	w := f.do(http.MethodPost, "/api/v1/transactions/deposit",
		map[string]string{"currency": "USD", "amount": "5"},
		map[string]string{"Idempotency-Key": "k1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_OPERATION")
	assert.NotContains(t, w.Body.String(), tx.ID)
	assert.Empty(t, w.Header().Get("Idempotent-Replayed"))
}

func TestHandleWithdraw_InsufficientFunds(t *testing.T) {
	f := setupMockRouter(t)
	f.service.EXPECT().
		Withdraw(gomock.Any(), int64(1), "USD", decimal.RequireFromString("100"), "k2").
		Return(nil, false, apperrors.New(apperrors.KindInsufficientFunds, "insufficient funds"))

	w := f.do(http.MethodPost, "/api/v1/transactions/withdraw",
		map[string]string{"currency": "USD", "amount": "100"},
		map[string]string{"Idempotency-Key": "k2"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"insufficient funds","kind":"INSUFFICIENT_FUNDS"}`, w.Body.String())
}

func TestHandleTransfer_ResolvesRate(t *testing.T) {
	f := setupMockRouter(t)
	rate := decimal.RequireFromString("0.92")
	f.rates.EXPECT().Rate("USD", "EUR").Return(rate, nil)
	f.service.EXPECT().
		Transfer(gomock.Any(), int64(1), int64(2), "USD", "EUR", decimal.RequireFromString("10"), rate, "k3").
		Return(sampleTx(models.TransactionTransfer, "10"), true, nil)

	w := f.do(http.MethodPost, "/api/v1/transactions/transfer",
		map[string]any{"recipientOwnerId": 2, "senderCurrency": "USD", "recipientCurrency": "EUR", "amount": "10"},
		map[string]string{"Idempotency-Key": "k3"})

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandleTransfer_UnknownRate(t *testing.T) {
	f := setupMockRouter(t)
	f.rates.EXPECT().Rate("USD", "GBP").
		Return(decimal.Zero, apperrors.New(apperrors.KindInvalidOperation, "no exchange rate available for USD to GBP"))

	w := f.do(http.MethodPost, "/api/v1/transactions/transfer",
		map[string]any{"recipientOwnerId": 2, "senderCurrency": "USD", "recipientCurrency": "GBP", "amount": "10"},
		map[string]string{"Idempotency-Key": "k4"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_OPERATION")
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid amount", apperrors.New(apperrors.KindInvalidAmount, "x"), http.StatusBadRequest},
		{"format", apperrors.New(apperrors.KindFormat, "x"), http.StatusBadRequest},
		{"currency mismatch", apperrors.New(apperrors.KindCurrencyMismatch, "x"), http.StatusBadRequest},
		{"invalid operation", apperrors.New(apperrors.KindInvalidOperation, "x"), http.StatusBadRequest},
		{"not found", apperrors.New(apperrors.KindNotFound, "x"), http.StatusNotFound},
		{"insufficient", apperrors.New(apperrors.KindInsufficientFunds, "x"), http.StatusConflict},
		{"infrastructure", assert.AnError, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupMockRouter(t)
			f.service.EXPECT().GetWallet(gomock.Any(), int64(1)).Return(nil, tt.err)

			w := f.do(http.MethodGet, "/api/v1/wallets/me", nil, nil)

			assert.Equal(t, tt.want, w.Code)
			assert.NotContains(t, w.Body.String(), assert.AnError.Error())
		})
	}
}

func TestHandleDeposit_BadBody(t *testing.T) {
	f := setupMockRouter(t)

	w := f.do(http.MethodPost, "/api/v1/transactions/deposit",
		map[string]string{"currency": "DOLLAR", "amount": "1"},
		map[string]string{"Idempotency-Key": "k5"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "FORMAT_ERROR")
}

func TestRequiresOwnerHeader(t *testing.T) {
	f := setupMockRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallets/me", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleHistory_ParsesFilter(t *testing.T) {
	f := setupMockRouter(t)
	pageReq := models.PageRequest{Page: 2, Size: 5}

	f.service.EXPECT().
		HistoryForOwner(gomock.Any(), int64(1), gomock.Any(), pageReq).
		DoAndReturn(func(_ context.Context, _ int64, filter models.TransactionFilter, page models.PageRequest) (models.Page[models.Transaction], error) {
			require.NotNil(t, filter.Currency)
			assert.Equal(t, "USD", *filter.Currency)
			require.NotNil(t, filter.Type)
			assert.Equal(t, models.TransactionWithdrawal, *filter.Type)
			assert.Nil(t, filter.Status)
			require.NotNil(t, filter.From)
			assert.True(t, filter.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
			require.NotNil(t, filter.To)
			assert.True(t, filter.To.Equal(time.Date(2024, 1, 31, 23, 59, 59, 999999000, time.UTC)))
			require.NotNil(t, filter.MinAmount)
			assert.Equal(t, "10", filter.MinAmount.String())
			assert.Nil(t, filter.MaxAmount)
			items := []models.Transaction{*sampleTx(models.TransactionWithdrawal, "12")}
			return models.NewPage(items, page, 11), nil
		})

	w := f.do(http.MethodGet,
		"/api/v1/transactions/history?currency=usd&type=WITHDRAWAL&fromDate=2024-01-01&toDate=2024-01-31&minAmount=10&page=2&size=5",
		nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items      []map[string]any `json:"items"`
		TotalItems int64            `json:"totalItems"`
		TotalPages int              `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)
	assert.EqualValues(t, 11, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
}

func TestHandleHistory_UnknownType(t *testing.T) {
	f := setupMockRouter(t)

	w := f.do(http.MethodGet, "/api/v1/transactions/history?type=REFUND", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHistory_BadDate(t *testing.T) {
	f := setupMockRouter(t)

	w := f.do(http.MethodGet, "/api/v1/transactions/history?fromDate=01-01-2024", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "FORMAT_ERROR")
}

func TestHandleOpenWallet(t *testing.T) {
	f := setupMockRouter(t)
	f.service.EXPECT().OpenWallet(gomock.Any(), int64(1)).Return(models.NewWallet(1), nil)

	w := f.do(http.MethodPost, "/api/v1/wallets", nil, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"ownerId":1`)
}
