package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code identifies a failure kind the API contract documents.
type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodeConflict    Code = "CONFLICT"
	CodeIdempotency Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal    Code = "INTERNAL_ERROR"

	// Reconciliation-specific kinds.
	CodeUnitNotAvailable  Code = "UNIT_NOT_AVAILABLE"
	CodeInvalidParent     Code = "INVALID_PARENT"
	CodeBrokenChain       Code = "BROKEN_CHAIN"
	CodeAmountMismatch    Code = "AMOUNT_MISMATCH"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodePaymentsExist     Code = "PAYMENTS_EXIST"
	CodePaymentLock       Code = "PAYMENT_LOCK"
	CodeDuplicatePeriod   Code = "DUPLICATE_PERIOD"
	CodeMemberNotResolved Code = "MEMBER_NOT_RESOLVED"
	CodeStorage           Code = "STORAGE_UNAVAILABLE"
)

// Metadata drives how a code is rendered over HTTP and whether callers may retry.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeUnitNotAvailable: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "unit is not available for assignment",
		DetailsAllowed: true,
	},
	CodeInvalidParent: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "parent value does not belong to the preceding level",
		DetailsAllowed: true,
	},
	CodeBrokenChain: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "selected values do not form an unbroken chain",
		DetailsAllowed: true,
	},
	CodeAmountMismatch: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "full payment must close the outstanding balance exactly",
		DetailsAllowed: true,
	},
	CodeInvalidAmount: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "payment amount is outside the outstanding balance",
		DetailsAllowed: true,
	},
	CodePaymentsExist: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "payments already recorded against this assignment",
	},
	CodePaymentLock: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "assignment is locked by recorded payments",
	},
	CodeDuplicatePeriod: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "dues already recorded for this member and period",
	},
	CodeMemberNotResolved: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "member could not be resolved",
		DetailsAllowed: true,
	},
	CodeStorage: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "storage unavailable",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
}

// MetadataFor resolves rendering metadata, defaulting to internal.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error every service returns across package boundaries.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches structured details surfaced when the code allows it.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stdErrors.Is(err, target)
}

// As extracts a typed *Error from anywhere in the chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
