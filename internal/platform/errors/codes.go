package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Security breach errors
	CodeUnauthorizedCaller      Code = "UNAUTHORIZED_CALLER"
	CodeOpenRateLimited         Code = "OPEN_RATE_LIMITED"
	CodeOpenBatchTooLarge       Code = "OPEN_BATCH_TOO_LARGE"
	CodeRequestUnknown          Code = "REQUEST_UNKNOWN"
	CodeRequestAlreadyFulfilled Code = "REQUEST_ALREADY_FULFILLED"
	CodeRequestNotExpired       Code = "REQUEST_NOT_EXPIRED"
	CodeRequestExpired          Code = "REQUEST_EXPIRED"
	CodeCatalogEntryInvalid     Code = "CATALOG_ENTRY_INVALID"

	// Lock errors
	CodeOperationPaused    Code = "OPERATION_PAUSED"
	CodeMintingLocked      Code = "MINTING_LOCKED"
	CodePriceChangesLocked Code = "PRICE_CHANGES_LOCKED"
	CodeCatalogLocked      Code = "CATALOG_LOCKED"

	// Payment errors
	CodePaymentInsufficient    Code = "PAYMENT_INSUFFICIENT"
	CodeRefundTransportFailed  Code = "REFUND_TRANSPORT_FAILED"
	CodeWithdrawalFailed       Code = "WITHDRAWAL_FAILED"
	CodeWithdrawalEmpty        Code = "WITHDRAWAL_EMPTY"
	CodePaymentAmountInvalid   Code = "PAYMENT_AMOUNT_INVALID"
	CodeRoyaltyTransportFailed Code = "ROYALTY_TRANSPORT_FAILED"

	// Opening errors
	CodeEmissionCapExceeded Code = "EMISSION_CAP_EXCEEDED"
	CodeNoEligibleDesigns   Code = "NO_ELIGIBLE_DESIGNS"
	CodeOracleUnavailable   Code = "ORACLE_UNAVAILABLE"
	CodeRandomWordsMissing  Code = "RANDOM_WORDS_MISSING"

	// Catalog errors
	CodeCardExists        Code = "CARD_EXISTS"
	CodeCardNameEmpty     Code = "CARD_NAME_EMPTY"
	CodeCardTierInvalid   Code = "CARD_TIER_INVALID"
	CodeCardOwnerEmpty    Code = "CARD_OWNER_EMPTY"
	CodeDeckUnknown       Code = "DECK_UNKNOWN"
	CodeDeckExists        Code = "DECK_EXISTS"
	CodeDeckNameEmpty     Code = "DECK_NAME_EMPTY"
	CodeDeckEmpty         Code = "DECK_EMPTY"
	CodeDeckSlotInvalid   Code = "DECK_SLOT_INVALID"
	CodePriceInvalid      Code = "PRICE_INVALID"
	CodeSupplyExhausted   Code = "SUPPLY_EXHAUSTED"
	CodeDesignUnknown     Code = "DESIGN_UNKNOWN"
	CodeDesignRemoved     Code = "DESIGN_REMOVED"
	CodeBatchCountInvalid Code = "BATCH_COUNT_INVALID"

	// Transport errors
	CodeRequestBodyInvalid Code = "REQUEST_BODY_INVALID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeCardNameEmpty,
		CodeCardTierInvalid,
		CodeCardOwnerEmpty,
		CodeDeckNameEmpty,
		CodeDeckEmpty,
		CodeDeckSlotInvalid,
		CodePriceInvalid,
		CodePaymentAmountInvalid,
		CodeBatchCountInvalid,
		CodeRandomWordsMissing,
		CodeCatalogEntryInvalid,
		CodeRequestBodyInvalid:
		return http.StatusBadRequest

	// Payment required - caller must send more funds
	case CodePaymentInsufficient:
		return http.StatusPaymentRequired

	// Unauthorized / forbidden callers
	case CodeUnauthorizedCaller:
		return http.StatusForbidden

	// Too many requests - retry after the cooldown window
	case CodeOpenRateLimited:
		return http.StatusTooManyRequests

	// Locked - a targeted or global lock blocks the operation
	case CodeOperationPaused,
		CodeMintingLocked,
		CodePriceChangesLocked,
		CodeCatalogLocked:
		return http.StatusLocked

	// Conflict - state doesn't allow the operation
	case CodeRequestAlreadyFulfilled,
		CodeRequestNotExpired,
		CodeRequestExpired,
		CodeCardExists,
		CodeDeckExists,
		CodeEmissionCapExceeded,
		CodeNoEligibleDesigns,
		CodeSupplyExhausted,
		CodeDesignRemoved,
		CodeWithdrawalEmpty,
		CodeOpenBatchTooLarge:
		return http.StatusConflict

	// Not found - resource doesn't exist
	case CodeNotFound,
		CodeRequestUnknown,
		CodeDeckUnknown,
		CodeDesignUnknown:
		return http.StatusNotFound

	// Upstream dependency failures
	case CodeOracleUnavailable:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
