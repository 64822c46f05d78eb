package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidAmount  = errors.New("amount must be greater than zero")

	ErrGatewayDeclined    = errors.New("payment declined by gateway")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	ErrInvalidPurpose     = errors.New("invalid payment purpose")
	ErrDuplicateReference = errors.New("payment reference already recorded")
	ErrReferenceConflict  = errors.New("payment reference already used for a different purpose")
	ErrAmountMismatch     = errors.New("declared amount does not match verified amount")

	ErrSettlementTargetNotFound = errors.New("settlement target not found")
	ErrTargetNotSettleable      = errors.New("settlement target cannot be confirmed")

	ErrLedgerInconsistency = errors.New("ledger inconsistency")
	ErrVersionConflict     = errors.New("optimistic lock conflict")
)
