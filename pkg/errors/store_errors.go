// Package errors classifies persistence errors from the MySQL and Redis backends
// so callers can decide between degrading and giving up.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// StoreErrorType represents the kind of persistence failure.
type StoreErrorType int

const (
	// ErrorTypeUnknown represents an unclassified error.
	ErrorTypeUnknown StoreErrorType = iota
	// ErrorTypeNotFound represents a missing record or key.
	ErrorTypeNotFound
	// ErrorTypeDuplicateKey represents a unique constraint violation (MySQL 1062).
	ErrorTypeDuplicateKey
	// ErrorTypeDeadlock represents a deadlock or lock wait timeout (MySQL 1213, 1205).
	ErrorTypeDeadlock
	// ErrorTypeDataTooLong represents a value that does not fit its column (MySQL 1406).
	ErrorTypeDataTooLong
	// ErrorTypeSchema represents a missing table or column (MySQL 1146, 1054).
	ErrorTypeSchema
	// ErrorTypeAuth represents rejected credentials (MySQL 1045, Redis NOAUTH/WRONGPASS).
	ErrorTypeAuth
	// ErrorTypeConnection represents an unreachable or dropped backend.
	ErrorTypeConnection
	// ErrorTypeTimeout represents a deadline hit while talking to the backend.
	ErrorTypeTimeout
)

var typeNames = map[StoreErrorType]string{
	ErrorTypeUnknown:      "unknown",
	ErrorTypeNotFound:     "not_found",
	ErrorTypeDuplicateKey: "duplicate_key",
	ErrorTypeDeadlock:     "deadlock",
	ErrorTypeDataTooLong:  "data_too_long",
	ErrorTypeSchema:       "schema",
	ErrorTypeAuth:         "auth",
	ErrorTypeConnection:   "connection",
	ErrorTypeTimeout:      "timeout",
}

// String returns the type name used in log fields.
func (t StoreErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// StoreError wraps a persistence error with classification information.
type StoreError struct {
	Type         StoreErrorType
	OriginalErr  error
	MySQLErrCode uint16 // MySQL error number, 0 for other backends
	Message      string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.MySQLErrCode > 0 {
		return fmt.Sprintf("%s (MySQL error %d): %v", e.Message, e.MySQLErrCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *StoreError) Unwrap() error {
	return e.OriginalErr
}

// Retryable reports whether the same write may succeed later without operator action.
func (e *StoreError) Retryable() bool {
	switch e.Type {
	case ErrorTypeDeadlock, ErrorTypeConnection, ErrorTypeTimeout:
		return true
	}
	return false
}

// ClassifyStoreError classifies an error returned by GORM, the MySQL driver or go-redis.
//
//   - gorm.ErrRecordNotFound, redis.Nil → ErrorTypeNotFound
//   - MySQL 1062 → ErrorTypeDuplicateKey
//   - MySQL 1213, 1205 → ErrorTypeDeadlock
//   - MySQL 1406 → ErrorTypeDataTooLong
//   - MySQL 1146, 1054 → ErrorTypeSchema
//   - MySQL 1045, Redis NOAUTH/WRONGPASS → ErrorTypeAuth
//   - MySQL 2006, 2013, driver.ErrBadConn, refused/reset/closed → ErrorTypeConnection
//   - context.DeadlineExceeded, net timeouts → ErrorTypeTimeout
func ClassifyStoreError(err error) *StoreError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, redis.Nil) {
		return &StoreError{Type: ErrorTypeNotFound, OriginalErr: err, Message: "record not found"}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return classifyMySQLError(mysqlErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &StoreError{Type: ErrorTypeTimeout, OriginalErr: err, Message: "store operation timed out"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &StoreError{Type: ErrorTypeTimeout, OriginalErr: err, Message: "store operation timed out"}
	}

	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, redis.ErrClosed) || isConnectionError(err.Error()) {
		return &StoreError{Type: ErrorTypeConnection, OriginalErr: err, Message: "store connection error"}
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS") {
		return &StoreError{Type: ErrorTypeAuth, OriginalErr: err, Message: "store authentication failed"}
	}

	return &StoreError{Type: ErrorTypeUnknown, OriginalErr: err, Message: "unknown store error"}
}

func classifyMySQLError(err *mysql.MySQLError) *StoreError {
	e := &StoreError{OriginalErr: err, MySQLErrCode: err.Number}

	switch err.Number {
	case 1062: // ER_DUP_ENTRY
		e.Type, e.Message = ErrorTypeDuplicateKey, "duplicate key constraint violation"
	case 1213: // ER_LOCK_DEADLOCK
		e.Type, e.Message = ErrorTypeDeadlock, "deadlock detected"
	case 1205: // ER_LOCK_WAIT_TIMEOUT
		e.Type, e.Message = ErrorTypeDeadlock, "lock wait timeout"
	case 1406: // ER_DATA_TOO_LONG
		e.Type, e.Message = ErrorTypeDataTooLong, "data too long for column"
	case 1146, 1054: // ER_NO_SUCH_TABLE, ER_BAD_FIELD_ERROR
		e.Type, e.Message = ErrorTypeSchema, "schema mismatch"
	case 1045: // ER_ACCESS_DENIED_ERROR
		e.Type, e.Message = ErrorTypeAuth, "access denied"
	case 2006, 2013: // CR_SERVER_GONE_ERROR, CR_SERVER_LOST
		e.Type, e.Message = ErrorTypeConnection, "MySQL server gone away"
	default:
		e.Type, e.Message = ErrorTypeUnknown, "MySQL error"
	}
	return e
}

var connectionKeywords = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"connection lost",
	"can't connect",
	"use of closed network connection",
	"dial tcp",
	"i/o timeout",
}

func isConnectionError(msg string) bool {
	msg = strings.ToLower(msg)
	for _, keyword := range connectionKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// IsNotFoundError checks if the error is a missing record or key.
func IsNotFoundError(err error) bool {
	se := ClassifyStoreError(err)
	return se != nil && se.Type == ErrorTypeNotFound
}

// IsConnectionError checks if the backend was unreachable.
func IsConnectionError(err error) bool {
	se := ClassifyStoreError(err)
	return se != nil && (se.Type == ErrorTypeConnection || se.Type == ErrorTypeTimeout)
}

// IsRetryable checks if the failed operation may succeed later on its own.
func IsRetryable(err error) bool {
	se := ClassifyStoreError(err)
	return se != nil && se.Retryable()
}
