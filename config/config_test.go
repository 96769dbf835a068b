package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresDBPassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")
	require.Error(t, LoadConfig())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("EXA_API_KEY", "")
	t.Setenv("EXA_POLL_INTERVAL", "")
	t.Setenv("EXA_MAX_POLL_ATTEMPTS", "")
	t.Setenv("EDITOR_SESSION_IDLE_TIMEOUT", "")

	require.NoError(t, LoadConfig())
	assert.Equal(t, "https://api.exa.ai/websets/v0", AppConfig.Exa.BaseURL)
	assert.Equal(t, 2*time.Second, AppConfig.Exa.PollInterval)
	assert.Equal(t, 30, AppConfig.Exa.MaxPollAttempts)
	assert.Equal(t, 30*time.Minute, AppConfig.SessionIdleTimeout)
	assert.Empty(t, AppConfig.Exa.APIKey)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("EXA_POLL_INTERVAL", "250ms")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("WEBSET_WORKER_QUEUE", "4")

	require.NoError(t, LoadConfig())
	assert.Equal(t, 250*time.Millisecond, AppConfig.Exa.PollInterval)
	assert.True(t, AppConfig.Redis.Enabled)
	assert.Equal(t, 4, AppConfig.WebsetWorkerQueue)
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "host=db password=***** dbname=x", maskPassword("host=db password=hunter2 dbname=x"))
	assert.Equal(t, "password=*****", maskPassword("password=hunter2"))
	assert.Equal(t, "host=db", maskPassword("host=db"))
}
