package biz

import (
	"testing"
	"time"

	"ScoutBot/internal/conf"
	"ScoutBot/internal/data"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestNewHealthRepo(t *testing.T) {
	redisRepo := &data.RedisHealthRepo{}
	mysqlRepo := &data.MySQLHealthRepo{}

	tests := []struct {
		name   string
		driver string
		redis  *data.RedisHealthRepo
		mysql  *data.MySQLHealthRepo
		want   HealthRepo
	}{
		{"redis selected", conf.PersistDriverRedis, redisRepo, mysqlRepo, redisRepo},
		{"default is redis", "", redisRepo, mysqlRepo, redisRepo},
		{"mysql selected", conf.PersistDriverMySQL, redisRepo, mysqlRepo, mysqlRepo},
		{"redis unavailable", conf.PersistDriverRedis, nil, mysqlRepo, nil},
		{"mysql unavailable", conf.PersistDriverMySQL, redisRepo, nil, nil},
		{"persistence off", conf.PersistDriverNone, redisRepo, mysqlRepo, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &conf.Data{Persist: &conf.Persist{Driver: tt.driver}}
			got := NewHealthRepo(c, tt.redis, tt.mysql, testLogger())
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Same(t, tt.want, got)
		})
	}
}

func TestNewSettings(t *testing.T) {
	assert.Equal(t, DefaultSettings(), NewSettings(nil))
	assert.Equal(t, DefaultSettings(), NewGovernorSettings(nil))

	s := NewSettings(&conf.Governor{
		Enabled:          true,
		MinDelay:         durationpb.New(2 * time.Second),
		MaxDelay:         durationpb.New(time.Minute),
		GrowthFactor:     3,
		FailureThreshold: 7,
		OpenTimeout:      durationpb.New(10 * time.Minute),
		RequestTimeout:   durationpb.New(0),
	})
	assert.True(t, s.Enabled)
	assert.Equal(t, 2*time.Second, s.MinDelay)
	assert.Equal(t, time.Minute, s.MaxDelay)
	assert.Equal(t, 3.0, s.GrowthFactor)
	assert.Equal(t, 0.9, s.DecayFactor)
	assert.Equal(t, 7, s.FailureThreshold)
	assert.Equal(t, 10*time.Minute, s.OpenTimeout)
	assert.Zero(t, s.RequestTimeout)
	assert.Equal(t, 50, s.RecentWindow)

	disabled := NewSettings(&conf.Governor{Enabled: false})
	assert.False(t, disabled.Enabled)
	assert.Equal(t, 5*time.Second, disabled.MinDelay)
}
