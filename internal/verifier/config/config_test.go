package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TASK_REGISTRY_URL", "http://localhost:9101")
	t.Setenv("POWER_PROVIDER_URL", "http://localhost:9102")
	t.Setenv("DEV_MODE", "true")
}

func TestInit_Defaults(t *testing.T) {
	setBaseEnv(t)

	require.NoError(t, Init())

	assert.Equal(t, ModeExactMatch, GetTallyMode())
	assert.Equal(t, StorageMemory, GetStorageBackend())
	assert.Equal(t, uint64(70), GetRequiredPercentage())
	assert.Equal(t, "9201", GetRPCPort())
	assert.Equal(t, "@every 1m", GetJanitorInterval())
}

func TestInit_RequiredPercentageBounds(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"lower bound", "1", false},
		{"upper bound", "100", false},
		{"zero rejected", "0", true},
		{"above hundred rejected", "101", true},
		{"not a number", "seventy", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("REQUIRED_PERCENTAGE", tt.value)

			err := Init()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInit_MedianSpreadValidation(t *testing.T) {
	t.Run("valid spreads accepted", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("TALLY_MODE", "median")
		t.Setenv("THRESHOLD_PERCENT", "0.67")
		t.Setenv("ALLOWED_SPREAD", "0.1")
		t.Setenv("SLASHABLE_SPREAD", "0.2")

		require.NoError(t, Init())
		assert.Equal(t, ModeMedianSpread, GetTallyMode())
		assert.Equal(t, "0.1", GetAllowedSpread().String())
	})

	t.Run("slashable narrower than allowed rejected", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("TALLY_MODE", "median")
		t.Setenv("ALLOWED_SPREAD", "0.2")
		t.Setenv("SLASHABLE_SPREAD", "0.1")

		assert.Error(t, Init())
	})

	t.Run("spreads ignored in exact mode", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("TALLY_MODE", "exact")
		t.Setenv("ALLOWED_SPREAD", "0.2")
		t.Setenv("SLASHABLE_SPREAD", "0.1")

		assert.NoError(t, Init())
	})
}

func TestInit_RejectsUnknownModes(t *testing.T) {
	t.Run("unknown tally mode", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("TALLY_MODE", "plurality")
		assert.Error(t, Init())
	})

	t.Run("unknown storage backend", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("STORAGE_BACKEND", "postgres")
		assert.Error(t, Init())
	})
}

func TestInit_RequiresClientURLs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TASK_REGISTRY_URL", "")

	assert.Error(t, Init())
}
