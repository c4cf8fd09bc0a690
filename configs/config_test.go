package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.flutterwave.com/v3", cfg.Flutterwave.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Flutterwave.Timeout)
	assert.Equal(t, 336*time.Hour, cfg.Jobs.WithdrawalStaleAfter)
	assert.Equal(t, "ledger_events", cfg.Kafka.LedgerTopic)
	assert.Equal(t, uint16(1), cfg.NodeID)
	assert.Equal(t, "20", cfg.Limits.ResearcherMin.String())
	assert.Equal(t, "10000", cfg.Limits.ResearcherMax.String())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("WITHDRAWAL_TUTOR_MAX", "750.50")
	t.Setenv("GATEWAY_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "750.5", cfg.Limits.TutorMax.String())
	assert.Equal(t, 3*time.Second, cfg.Flutterwave.Timeout)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("WITHDRAWAL_MENTOR_MIN", "900")
	t.Setenv("WITHDRAWAL_MENTOR_MAX", "100")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "mentor")
}
