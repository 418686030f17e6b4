package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	require.NotNil(t, config)
	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "Asia/Kolkata", config.Market.Timezone)
	assert.Equal(t, 4, config.Fiscal.StartMonth)
	assert.Equal(t, 7, config.Sync.DefaultWindowDays)
	assert.Equal(t, 30, config.Sync.MaxWindowDays)
	assert.Equal(t, 3, config.Metrics.AlertThreshold)
	assert.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Market.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "bad open time",
			mutate:  func(c *Config) { c.Market.Open = "25:00" },
			wantErr: true,
		},
		{
			name:    "max window below default window",
			mutate:  func(c *Config) { c.Sync.MaxWindowDays = 3 },
			wantErr: true,
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.Upstream.RateLimit = 0 },
			wantErr: true,
		},
		{
			name:    "confidence threshold above 100",
			mutate:  func(c *Config) { c.Extractor.ConfidenceThreshold = 150 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.IsProduction())

	config.Environment = "production"
	assert.True(t, config.IsProduction())

	config.Environment = "  PROD "
	assert.True(t, config.IsProduction())
}
