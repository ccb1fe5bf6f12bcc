package errors

import (
	"errors"
	"fmt"
)

// AppError is the error type carried from repositories up to the HTTP layer.
// Code is the business code returned to clients, Message is safe to show,
// and Err is the internal cause which is only ever logged.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError without an internal cause.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap turns a system error (database, network) into an internal AppError.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// WrapCode is Wrap with a specific server-side code.
func WrapCode(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// Error codes
// =========================================
// - 4xxxx: client errors (bad params, business rule violations)
// - 5xxxx: server errors (database, cache, broker)

const (
	// system (50000-50099)
	ErrCodeInternal      = 50000
	ErrCodeDatabaseError = 50001
	ErrCodeRedisError    = 50002
	ErrCodeLockTimeout   = 50003

	// auth (40100-40199)
	ErrCodeUnauthorized    = 40100
	ErrCodeInvalidToken    = 40101
	ErrCodeTokenExpired    = 40102
	ErrCodeInvalidPassword = 40103
	ErrCodeForbidden       = 40104

	// not found (40400-40499)
	ErrCodeNotFound            = 40400
	ErrCodeUserNotFound        = 40401
	ErrCodeBookNotFound        = 40402
	ErrCodeReservationNotFound = 40403

	// business rules (40000-40099)
	ErrCodeBusinessError            = 40000
	ErrCodeInsufficientStock        = 40001
	ErrCodeInvalidReservationStatus = 40002
	ErrCodeEmailDuplicate           = 40003
	ErrCodeISBNDuplicate            = 40004
	ErrCodeWeakPassword             = 40005
	ErrCodeReservationClosed        = 40006
	ErrCodeEmptyQueue               = 40007
	ErrCodeDuplicateEntry           = 40009

	// params (40900-40999)
	ErrCodeInvalidParams = 40900
	ErrCodeBindError     = 40901
)

var (
	ErrInternal      = New(ErrCodeInternal, "internal server error")
	ErrDatabaseError = New(ErrCodeDatabaseError, "database error")
	ErrRedisError    = New(ErrCodeRedisError, "cache service error")
	ErrLockTimeout   = New(ErrCodeLockTimeout, "book is busy, please retry")

	ErrUnauthorized    = New(ErrCodeUnauthorized, "please log in first")
	ErrInvalidToken    = New(ErrCodeInvalidToken, "invalid token")
	ErrTokenExpired    = New(ErrCodeTokenExpired, "token expired")
	ErrInvalidPassword = New(ErrCodeInvalidPassword, "wrong password")
	ErrForbidden       = New(ErrCodeForbidden, "access denied")

	ErrUserNotFound        = New(ErrCodeUserNotFound, "user not found")
	ErrBookNotFound        = New(ErrCodeBookNotFound, "book not found")
	ErrReservationNotFound = New(ErrCodeReservationNotFound, "Reservation not found")

	ErrInsufficientStock = New(ErrCodeInsufficientStock, "insufficient stock")
	ErrEmailDuplicate    = New(ErrCodeEmailDuplicate, "email already registered")
	ErrISBNDuplicate     = New(ErrCodeISBNDuplicate, "ISBN already exists")
	ErrWeakPassword      = New(ErrCodeWeakPassword, "password must be 8-20 characters with letters and digits")

	ErrInvalidParams = New(ErrCodeInvalidParams, "invalid parameters")
	ErrBindError     = New(ErrCodeBindError, "malformed request body")
)

// IsAppError reports whether err wraps an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts the AppError from err, wrapping anything else as internal.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "internal server error")
}
