package data

import (
	"testing"
	"time"

	"ScoutBot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMySQLHealthRepo_NilDB(t *testing.T) {
	assert.Nil(t, NewMySQLHealthRepo(nil, log.DefaultLogger))
}

func TestOriginHealthRecord_RoundTrip(t *testing.T) {
	want := sampleHealth("reddit.com")

	row := newOriginHealthRecord(want)
	assert.Equal(t, "open", row.BreakerState)
	assert.Equal(t, int64(40000), row.CurrentDelayMs)
	require.NotNil(t, row.BreakerOpenedAt)

	got, err := row.toModel()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOriginHealthRecord_ZeroTimesStayNull(t *testing.T) {
	h := &model.OriginHealth{
		Origin:       "example.com",
		CurrentDelay: 5 * time.Second,
		BreakerState: model.BreakerClosed,
		CreatedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	row := newOriginHealthRecord(h)
	assert.Nil(t, row.BreakerOpenedAt)
	assert.Nil(t, row.LastRequestAt)

	got, err := row.toModel()
	require.NoError(t, err)
	assert.True(t, got.BreakerOpenedAt.IsZero())
	assert.True(t, got.LastRequestAt.IsZero())
}

func TestOriginHealthRecord_CorruptState(t *testing.T) {
	row := &OriginHealthRecord{Origin: "example.com", BreakerState: "melted"}

	_, err := row.toModel()
	assert.Error(t, err)
}

func TestOriginHealthRecord_TableName(t *testing.T) {
	assert.Equal(t, "origin_health", OriginHealthRecord{}.TableName())
	assert.Equal(t, "origin_audit_logs", BreakerAuditLog{}.TableName())
}
