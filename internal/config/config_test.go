package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, StoreMemory, cfg.StoreBackend)
	require.Equal(t, 18*time.Hour, cfg.ImportThrottleWindow)
	require.Equal(t, 14, cfg.ImportLookbackDays)
	require.Equal(t, 200, cfg.ExportDedupCapacity)
	require.Nil(t, cfg.Preferences.Workouts)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, []string{"workout_sessions"}, cfg.ConsumerTopics)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("IMPORT_THROTTLE_WINDOW", "6h")
	t.Setenv("IMPORT_LOOKBACK_DAYS", "30")
	t.Setenv("EXPORT_DEDUP_CAPACITY", "not-a-number")
	t.Setenv("HEALTH_SYNC_HEART_RATE", "false")
	t.Setenv("HEALTH_SYNC_WORKOUTS", "maybe")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("RATE_LIMIT_RPS", "0.5")

	cfg := Load()
	require.Equal(t, StoreRedis, cfg.StoreBackend)
	require.Equal(t, 6*time.Hour, cfg.ImportThrottleWindow)
	require.Equal(t, 30, cfg.ImportLookbackDays)
	require.Equal(t, 200, cfg.ExportDedupCapacity)
	require.NotNil(t, cfg.Preferences.HeartRate)
	require.False(t, *cfg.Preferences.HeartRate)
	require.Nil(t, cfg.Preferences.Workouts)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 0.5, cfg.RateLimitRPS)
}
