package models

import (
	"github.com/shopspring/decimal"
)

type DepositRequest struct {
	Currency string          `json:"currency" binding:"required,len=3"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

type WithdrawRequest struct {
	Currency string          `json:"currency" binding:"required,len=3"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

type TransferRequest struct {
	RecipientOwnerID  int64           `json:"recipientOwnerId" binding:"required"`
	SenderCurrency    string          `json:"senderCurrency" binding:"required,len=3"`
	RecipientCurrency string          `json:"recipientCurrency" binding:"required,len=3"`
	Amount            decimal.Decimal `json:"amount" binding:"required"`
}

type HistoryQuery struct {
	Currency  string `form:"currency"`
	Type      string `form:"type" binding:"omitempty,oneof=DEPOSIT WITHDRAWAL TRANSFER"`
	Status    string `form:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED"`
	FromDate  string `form:"fromDate"`
	ToDate    string `form:"toDate"`
	MinAmount string `form:"minAmount"`
	MaxAmount string `form:"maxAmount"`
	Page      int    `form:"page"`
	Size      int    `form:"size"`
}
