package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet.Balance is a projection of its SUCCESS transactions and is only
// written together with the transaction that justifies it.
type Wallet struct {
	ID        uuid.UUID
	ManagerID uuid.UUID
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

type WalletTransaction struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	Type        TransactionType
	Status      TransactionStatus
	Reference   string
	Description string
	CreatedAt   time.Time
}
