package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "WORKER_BASE_URL", "DISPATCH_MODE", "S3_SIGNED_URL_TTL_SECONDS", "S3_BUCKET_NAME", "S3_BUCKET", "S3_USE_SSL"} {
		t.Setenv(key, "")
	}

	cfg, _ := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "", cfg.WorkerBaseURL)
	assert.Equal(t, DispatchModeHTTP, cfg.DispatchMode)
	assert.Equal(t, 900*time.Second, cfg.Storage.SignedURLTTL)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, 5*time.Second, cfg.HealthProbeTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKER_BASE_URL", "http://worker:8000/")
	t.Setenv("S3_SIGNED_URL_TTL_SECONDS", "60")
	t.Setenv("S3_BUCKET_NAME", "")
	t.Setenv("S3_BUCKET", "legacy-bucket")
	t.Setenv("GENERATE_RATE_PER_MINUTE", "not-a-number")

	cfg, _ := Load()

	assert.Equal(t, "http://worker:8000", cfg.WorkerBaseURL)
	assert.Equal(t, time.Minute, cfg.Storage.SignedURLTTL)
	assert.Equal(t, "legacy-bucket", cfg.Storage.Bucket)
	assert.Equal(t, 6, cfg.GenerateRatePerMin)
}

func TestStorageMissing(t *testing.T) {
	s := StorageConfig{Region: "eu-west-1", Bucket: "audio"}
	assert.False(t, s.Complete())
	assert.Equal(t, []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"}, s.Missing())
}
