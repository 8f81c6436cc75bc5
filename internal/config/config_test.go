package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"docutrain/admin/internal/config"
)

func TestLoadConfig(t *testing.T) {
	// Set env var directly to test envconfig logic
	os.Setenv("DB_HOST", "test-host")
	defer os.Unsetenv("DB_HOST")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "test-host", cfg.DBHost)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	content := []byte("PIPELINE_BASE_URL=http://pipeline.test:9000")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "http://pipeline.test:9000", cfg.PipelineBaseURL)
}

func TestLoadConfig_PollIntervals(t *testing.T) {
	os.Setenv("STATUS_POLL_INTERVAL", "3s")
	os.Setenv("DOCUMENTS_POLL_INTERVAL", "7s")
	os.Setenv("STUCK_THRESHOLD", "10m")
	defer os.Unsetenv("STATUS_POLL_INTERVAL")
	defer os.Unsetenv("DOCUMENTS_POLL_INTERVAL")
	defer os.Unsetenv("STUCK_THRESHOLD")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.StatusPollInterval)
	assert.Equal(t, 7*time.Second, cfg.DocumentsPollInterval)
	assert.Equal(t, 10*time.Minute, cfg.StuckThreshold)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "downloads", cfg.StorageBucket)
	assert.Equal(t, 2*time.Second, cfg.StatusPollInterval)
	assert.Equal(t, 5*time.Minute, cfg.StuckThreshold)
	assert.Equal(t, "document_status", cfg.RealtimeChannel)
}

func TestValidate_RejectsNonPositiveInterval(t *testing.T) {
	cfg := &config.Config{
		DBHost:          "h",
		DBUser:          "u",
		DBName:          "d",
		PipelineBaseURL: "http://p",
		StorageBucket:   "downloads",
	}
	err := cfg.Validate()
	assert.Error(t, err)

	cfg.StatusPollInterval = 2 * time.Second
	assert.NoError(t, cfg.Validate())
}
