package arena

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero threads", Config{Threads: 0}, true},
		{"negative limit", Config{Threads: 1, AdaptationLimit: -1}, true},
		{"negative timeout", Config{Threads: 1, StatementTimeout: -time.Second}, true},
		{"bad run id", Config{Threads: 1, RunID: "not-a-uuid"}, true},
		{"uuid run id", Config{Threads: 2, RunID: uuid.NewString()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestConfig_EnsureDefaults(t *testing.T) {
	var config Config
	config.EnsureDefaults()

	assert.GreaterOrEqual(t, config.Threads, 1)
	assert.Equal(t, 10*time.Second, config.StatementTimeout)

	_, err := uuid.Parse(config.RunID)
	require.NoError(t, err)
}

func TestNewExecutor_RejectsInvalidConfig(t *testing.T) {
	_, err := NewExecutor(Config{Threads: 2000}, nil, nil)
	assert.Error(t, err)
}
