package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg := fromViper(newTestViper())

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, ActivationTransactional, cfg.Grading.ActivationMode)
	assert.Equal(t, "fallback", cfg.Grading.UnmatchedPolicy)
	assert.False(t, cfg.Grading.SummaryCacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Grading.SummaryCacheTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.Brokers)
	assert.Equal(t, time.Second, cfg.Queue.RetryDelay)
	assert.True(t, cfg.Migrations.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRADING_ACTIVATION_MODE", "LOCKED")
	t.Setenv("GRADING_UNMATCHED_POLICY", "exclude")
	t.Setenv("GRADING_SUMMARY_CACHE_TTL", "not-a-duration")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("ALLOWED_ORIGINS", "https://school.example")

	cfg := fromViper(newTestViper())

	assert.Equal(t, ActivationLocked, cfg.Grading.ActivationMode)
	assert.Equal(t, "exclude", cfg.Grading.UnmatchedPolicy)
	assert.Equal(t, 5*time.Minute, cfg.Grading.SummaryCacheTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, []string{"https://school.example"}, cfg.CORS.AllowedOrigins)
}
