package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an operation was rejected.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindPreconditionViolation
	KindCapacityExhausted
	KindAuthorizationFailure
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindPreconditionViolation:
		return "PreconditionViolation"
	case KindCapacityExhausted:
		return "CapacityExhausted"
	case KindAuthorizationFailure:
		return "AuthorizationFailure"
	case KindInvalidInput:
		return "InvalidInput"
	default:
		return "Internal"
	}
}

// Error is a rejected operation. Every rejection reverts the whole transaction.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sale errors.
var (
	ErrNotActive          = NewError(KindPreconditionViolation, "NOT ACTIVE")
	ErrNotSuccess         = NewError(KindPreconditionViolation, "NOT SUCCESS")
	ErrNotFailed          = NewError(KindPreconditionViolation, "NOT FAILED")
	ErrAlreadyFinalized   = NewError(KindPreconditionViolation, "ALREADY FINALIZED")
	ErrAwaitingLP         = NewError(KindPreconditionViolation, "AWAITING LP GENERATION")
	ErrNothingToClaim     = NewError(KindPreconditionViolation, "NOTHING TO CLAIM")
	ErrAlreadyClaimed     = NewError(KindPreconditionViolation, "ALREADY CLAIMED")
	ErrAlreadyReclaimed   = NewError(KindPreconditionViolation, "ALREADY RECLAIMED")
	ErrSaleStarted        = NewError(KindPreconditionViolation, "SALE STARTED")
	ErrZeroTokens         = NewError(KindCapacityExhausted, "ZERO TOKENS")
	ErrNotWhitelisted     = NewError(KindAuthorizationFailure, "NOT WHITELISTED")
	ErrNotSaleOwner       = NewError(KindAuthorizationFailure, "NOT LAUNCHPAD OWNER")
	ErrInvalidValue       = NewError(KindInvalidInput, "INVALID VALUE")
	ErrZeroAmount         = NewError(KindInvalidInput, "ZERO AMOUNT")
	ErrFeeNotMet          = NewError(KindInvalidInput, "FEE NOT MET")
	ErrInvalidReferral    = NewError(KindInvalidInput, "INVALID REFERRAL")
	ErrMinDivisibility    = NewError(KindInvalidInput, "MIN DIVIS")
	ErrInvalidTimePeriod  = NewError(KindInvalidInput, "INVALID TIME PERIOD")
	ErrInvalidLiquidity   = NewError(KindInvalidInput, "INVALID LIQUIDITY")
	ErrInvalidListingRate = NewError(KindInvalidInput, "INVALID LISTING RATE")
	ErrInvalidCaps        = NewError(KindInvalidInput, "INVALID CAPS")
	ErrInvalidTokenPrice  = NewError(KindInvalidInput, "INVALID TOKEN PRICE")
)

// Access and configuration errors.
var (
	ErrNotOwner          = NewError(KindAuthorizationFailure, "Ownable: caller is not the owner")
	ErrNotAdmin          = NewError(KindAuthorizationFailure, "NOT ADMIN")
	ErrNotCreator        = NewError(KindAuthorizationFailure, "FORBIDDEN")
	ErrNotRegistered     = NewError(KindAuthorizationFailure, "LAUNCHPAD NOT REGISTERED")
	ErrInvalidFee        = NewError(KindInvalidInput, "INVALID FEE")
	ErrZeroAddress       = NewError(KindInvalidInput, "ZERO ADDRESS")
	ErrAlreadyRegistered = NewError(KindPreconditionViolation, "ALREADY REGISTERED")
)

// Ledger and arithmetic errors.
var (
	ErrTransferFailed     = NewError(KindInvalidInput, "TRANSFER_FAILED")
	ErrTransferFromFailed = NewError(KindInvalidInput, "TRANSFER_FROM_FAILED")
	ErrUnknownAsset       = NewError(KindInvalidInput, "UNKNOWN ASSET")
	ErrSinkIsFrozen       = NewError(KindAuthorizationFailure, "BURN SINK")
	ErrOverflow           = NewError(KindInvalidInput, "OVERFLOW")
	ErrUnderflow          = NewError(KindInvalidInput, "UNDERFLOW")
	ErrDivisionByZero     = NewError(KindInvalidInput, "DIVISION BY ZERO")
)

// AMM errors.
var (
	ErrIdenticalAssets       = NewError(KindInvalidInput, "IDENTICAL_ADDRESSES")
	ErrPairExists            = NewError(KindPreconditionViolation, "PAIR_EXISTS")
	ErrInsufficientLiquidity = NewError(KindCapacityExhausted, "INSUFFICIENT_LIQUIDITY_MINTED")
	ErrInsufficientAmount    = NewError(KindInvalidInput, "INSUFFICIENT_AMOUNT")
)

// Vault errors.
var (
	ErrTimestampInvalid = NewError(KindInvalidInput, "TIMESTAMP INVALID")
	ErrInsufficient     = NewError(KindInvalidInput, "INSUFFICIENT")
	ErrNotPair          = NewError(KindInvalidInput, "NOT PAIR")
	ErrLockNotFound     = NewError(KindInvalidInput, "LOCK MISMATCH")
	ErrNotLockOwner     = NewError(KindAuthorizationFailure, "NOT LOCK OWNER")
	ErrNotUnlocked      = NewError(KindPreconditionViolation, "NOT YET")
	ErrMigratorNotSet   = NewError(KindPreconditionViolation, "NOT SET")
	ErrFeeTokenNotSet   = NewError(KindPreconditionViolation, "FEE TOKEN NOT SET")
	ErrShortenedLock    = NewError(KindInvalidInput, "UNLOCK TIME BEFORE CURRENT")
	ErrMigrationFailed  = NewError(KindPreconditionViolation, "MIGRATION FAILED")
)
