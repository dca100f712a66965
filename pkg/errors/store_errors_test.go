package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyStoreError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyStoreError(nil))
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsRetryable(nil))
}

func TestClassifyStoreError_NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"gorm record not found", gorm.ErrRecordNotFound},
		{"wrapped gorm record not found", fmt.Errorf("load origin: %w", gorm.ErrRecordNotFound)},
		{"redis nil", redis.Nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := ClassifyStoreError(tt.err)
			require.NotNil(t, se)
			assert.Equal(t, ErrorTypeNotFound, se.Type)
			assert.True(t, IsNotFoundError(tt.err))
			assert.False(t, se.Retryable())
		})
	}
}

func TestClassifyStoreError_MySQL(t *testing.T) {
	tests := []struct {
		name      string
		code      uint16
		expected  StoreErrorType
		retryable bool
	}{
		{"duplicate entry", 1062, ErrorTypeDuplicateKey, false},
		{"deadlock", 1213, ErrorTypeDeadlock, true},
		{"lock wait timeout", 1205, ErrorTypeDeadlock, true},
		{"data too long", 1406, ErrorTypeDataTooLong, false},
		{"missing table", 1146, ErrorTypeSchema, false},
		{"unknown column", 1054, ErrorTypeSchema, false},
		{"access denied", 1045, ErrorTypeAuth, false},
		{"server gone away", 2006, ErrorTypeConnection, true},
		{"server lost", 2013, ErrorTypeConnection, true},
		{"other", 1999, ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("save origin: %w", &mysql.MySQLError{Number: tt.code, Message: tt.name})

			se := ClassifyStoreError(err)
			require.NotNil(t, se)
			assert.Equal(t, tt.expected, se.Type)
			assert.Equal(t, tt.code, se.MySQLErrCode)
			assert.Equal(t, tt.retryable, se.Retryable())
			assert.Contains(t, se.Error(), fmt.Sprintf("MySQL error %d", tt.code))
		})
	}
}

func TestClassifyStoreError_Connection(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected StoreErrorType
	}{
		{"dial refused", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), ErrorTypeConnection},
		{"reset", errors.New("read: Connection Reset by peer"), ErrorTypeConnection},
		{"redis closed", redis.ErrClosed, ErrorTypeConnection},
		{"mysql invalid conn", mysql.ErrInvalidConn, ErrorTypeConnection},
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout},
		{"wrapped deadline", fmt.Errorf("flush: %w", context.DeadlineExceeded), ErrorTypeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := ClassifyStoreError(tt.err)
			require.NotNil(t, se)
			assert.Equal(t, tt.expected, se.Type)
			assert.True(t, IsConnectionError(tt.err))
			assert.True(t, IsRetryable(tt.err))
		})
	}
}

func TestClassifyStoreError_RedisAuth(t *testing.T) {
	se := ClassifyStoreError(errors.New("WRONGPASS invalid username-password pair"))
	require.NotNil(t, se)
	assert.Equal(t, ErrorTypeAuth, se.Type)
	assert.Equal(t, "auth", se.Type.String())
}

func TestClassifyStoreError_Unknown(t *testing.T) {
	original := errors.New("something odd")
	se := ClassifyStoreError(original)

	require.NotNil(t, se)
	assert.Equal(t, ErrorTypeUnknown, se.Type)
	assert.True(t, errors.Is(se, original))
	assert.Equal(t, "unknown store error: something odd", se.Error())
}
