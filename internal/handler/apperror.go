package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidSignature = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is invalid"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrPaymentDeclined          = &AppError{http.StatusBadRequest, "PAYMENT_DECLINED", "Payment was not successful"}
	ErrInvalidPurpose           = &AppError{http.StatusBadRequest, "INVALID_PURPOSE", "Payment purpose is missing or invalid"}
	ErrInvalidAmount            = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrSettlementTargetNotFound = &AppError{http.StatusNotFound, "SETTLEMENT_TARGET_NOT_FOUND", "Booking or order not found"}
	ErrReferenceConflict        = &AppError{http.StatusConflict, "REFERENCE_CONFLICT", "Payment reference was already used for a different purpose"}
	ErrTargetNotSettleable      = &AppError{http.StatusConflict, "TARGET_NOT_SETTLEABLE", "Booking or order can no longer be confirmed"}
	ErrVersionConflict          = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrAmountMismatch           = &AppError{http.StatusUnprocessableEntity, "AMOUNT_MISMATCH", "Paid amount does not match the declared amount"}
	ErrGatewayUnavailable       = &AppError{http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "Payment gateway is unavailable, please retry"}
	ErrLedgerInconsistency      = &AppError{http.StatusInternalServerError, "LEDGER_INCONSISTENCY", "Wallet ledger check failed"}
)
