package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BUSINESS_TIMEZONE", "")
	t.Setenv("SCHEDULER_INTERVAL", "not-a-duration")
	t.Setenv("SCHEDULER_ENABLED_JOBS", " apply_price_updates , ,")

	cfg := Load()
	assert.Equal(t, "America/Sao_Paulo", cfg.BusinessTimezone)
	assert.Equal(t, time.Hour, cfg.SchedulerInterval)
	assert.Equal(t, []string{"apply_price_updates"}, cfg.SchedulerEnabledJobs)
	assert.False(t, cfg.IsProduction())
}

func TestEngineConfigDefaultsWithoutFile(t *testing.T) {
	holder, err := newEngineConfigHolder(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultEngineConfig(), holder.Get())
}

func TestEngineConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`delivery:
  previewLimit: 3
  upcomingDays: 7
  labels:
    unknownProduct: "Produto removido"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "delivery.yml"), body, 0o600))

	holder, err := newEngineConfigHolder(zap.NewNop(), dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 3, cfg.PreviewLimit)
	assert.Equal(t, 7, cfg.UpcomingDays)
	assert.Equal(t, 366, cfg.MaxRangeDays)
	assert.Equal(t, "Produto removido", cfg.Labels.UnknownProduct)
	assert.Equal(t, "Uncategorized", cfg.Labels.Uncategorized)
}

func TestEngineConfigRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte("delivery:\n  previewLimit: 0\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "delivery.yml"), body, 0o600))

	_, err := newEngineConfigHolder(zap.NewNop(), dir)
	assert.Error(t, err)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *EngineConfigHolder
	assert.Equal(t, DefaultEngineConfig(), holder.Get())
}

func TestValidateEngineConfigRanges(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*EngineConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*EngineConfig) {}},
		{name: "upcoming fills range with week lead", mutate: func(c *EngineConfig) {
			c.UpcomingDays = 360
			c.MaxRangeDays = 366
		}},
		{name: "upcoming leaves no room for week", mutate: func(c *EngineConfig) {
			c.UpcomingDays = 365
			c.MaxRangeDays = 366
		}, wantErr: true},
		{name: "upcoming equals max range", mutate: func(c *EngineConfig) {
			c.UpcomingDays = 30
			c.MaxRangeDays = 30
		}, wantErr: true},
		{name: "max range above engine cap", mutate: func(c *EngineConfig) {
			c.MaxRangeDays = 500
		}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultEngineConfig()
			tc.mutate(&cfg)
			err := validateEngineConfig(cfg)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngineConfigRejectsUpcomingBeyondDashboardWindow(t *testing.T) {
	dir := t.TempDir()
	body := []byte("delivery:\n  upcomingDays: 365\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "delivery.yml"), body, 0o600))

	_, err := newEngineConfigHolder(zap.NewNop(), dir)
	assert.Error(t, err)
}
