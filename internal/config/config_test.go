package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidateWithPreset(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.ApplyPreset())
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Strategy.MomentumPeriod)
	assert.InDelta(t, 0.02, cfg.Strategy.MomentumThreshold, 1e-9)
	assert.Equal(t, 20, cfg.Strategy.VolumeWindow)
	assert.InDelta(t, 2.0, cfg.Strategy.VolumeThreshold, 1e-9)
}

func TestSensitivePreset(t *testing.T) {
	cfg := Defaults()
	cfg.Strategy.Preset = "sensitive"
	require.NoError(t, cfg.ApplyPreset())

	assert.InDelta(t, 0.01, cfg.Strategy.MomentumThreshold, 1e-9)
	assert.Equal(t, 10, cfg.Strategy.VolumeWindow)
	assert.InDelta(t, 1.0, cfg.Strategy.VolumeThreshold, 1e-9)
}

func TestExplicitFieldsOverridePreset(t *testing.T) {
	cfg := Defaults()
	cfg.Strategy.VolumeThreshold = 3.5
	require.NoError(t, cfg.ApplyPreset())

	assert.InDelta(t, 3.5, cfg.Strategy.VolumeThreshold, 1e-9)
	assert.Equal(t, 20, cfg.Strategy.VolumeWindow) // still filled from preset
}

func TestUnknownPresetRejected(t *testing.T) {
	cfg := Defaults()
	cfg.Strategy.Preset = "yolo"
	assert.Error(t, cfg.ApplyPreset())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.ApplyPreset())
	cfg.Trading.InitialBankroll = -5
	cfg.Strategy.KellyFraction = 1.5
	cfg.Risk.MaxDrawdownPct = 0
	cfg.Mode = "live"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial_bankroll")
	assert.Contains(t, err.Error(), "kelly_fraction")
	assert.Contains(t, err.Error(), "max_drawdown_pct")
	assert.Contains(t, err.Error(), "mode")
}

func TestVolumeWindowBoundedByCapacity(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.ApplyPreset())
	cfg.Strategy.VolumeWindow = cfg.Trading.WindowCapacity + 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume_window must not exceed")
}

func TestS3RequiresPostgres(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.ApplyPreset())
	cfg.S3.Bucket = "trades"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archival requires postgres")
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "monitor"

[trading]
initial_bankroll = 2500.0
poll_interval = "30s"

[strategy]
preset = "sensitive"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("MOMBOT_TRADING_TOP_MARKETS", "7")
	t.Setenv("MOMBOT_STRATEGY_KELLY_FRACTION", "0.25")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "monitor", cfg.Mode)
	assert.InDelta(t, 2500.0, cfg.Trading.InitialBankroll, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Trading.PollInterval.Duration)
	assert.Equal(t, 7, cfg.Trading.TopMarkets)
	assert.InDelta(t, 0.25, cfg.Strategy.KellyFraction, 1e-9)
	assert.Equal(t, 10, cfg.Strategy.VolumeWindow) // sensitive preset
}
