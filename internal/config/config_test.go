package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	t.Setenv("FLUSSO_SIGNING_KEY", "")
	t.Setenv("FLUSSO_DATA_DIR", "")
	t.Setenv("FLUSSO_ORACLE_PROVIDER", "")
	t.Setenv("FLUSSO_MAX_ITERATIONS", "")
	t.Setenv("FLUSSO_CONFIDENCE_FLOOR", "")
	t.Setenv("FLUSSO_REDIS_ADDR", "")
	viper.Reset()
	viper.SetEnvPrefix("FLUSSO")
	viper.AutomaticEnv()
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
	viper.SetDefault(KeyOracleProvider, DefaultOracleProvider)
	viper.SetDefault(KeyOracleClassifyModel, DefaultClassifyModel)
	viper.SetDefault(KeyOracleAgentModel, DefaultAgentModel)
	viper.SetDefault(KeyOllamaBaseURL, DefaultOllamaURL)
	viper.SetDefault(KeyRedisAddr, DefaultRedisAddr)
	viper.SetDefault(KeyMaxIterations, DefaultMaxIterations)
	viper.SetDefault(KeyTicketTimeoutMin, DefaultTicketTimeoutMin)
	viper.SetDefault(KeyDedupTTLMin, DefaultDedupTTLMin)
	viper.SetDefault(KeyAuditRingCapacity, DefaultAuditRingCapacity)
	viper.SetDefault(KeyConfidenceFloor, DefaultConfidenceFloor)
	viper.SetDefault(KeyVisionHighThreshold, DefaultVisionHigh)
	viper.SetDefault(KeyVisionMedThreshold, DefaultVisionMedium)
	viper.SetDefault(KeyOCRThreshold, DefaultOCRThreshold)
	viper.SetDefault(KeyTicketFactsThreshold, DefaultTicketFacts)
	viper.SetDefault(KeyAgentTrustThreshold, DefaultAgentTrust)
	viper.SetDefault(KeyResweepSpec, DefaultResweepSpec)
	viper.SetDefault(KeyResweepMaxAgeHours, DefaultResweepMaxAgeH)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, "openai", cfg.OracleProvider)
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, 25*time.Minute, cfg.TicketTimeout)
	assert.Equal(t, time.Hour, cfg.DedupTTL)
	assert.Equal(t, DefaultConfidenceFloor, cfg.Thresholds.ConfidenceFloor)
	assert.True(t, cfg.UsingDefaultSigningKey(), "should report default key when none is set")
	assert.True(t, len(cfg.SigningKey) >= 32)
}

func TestLoad_ExplicitSigningKey(t *testing.T) {
	resetViper(t)
	t.Setenv("FLUSSO_SIGNING_KEY", "my-signing-key-at-least-32-chars!")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "my-signing-key-at-least-32-chars!", cfg.SigningKey)
	assert.False(t, cfg.UsingDefaultSigningKey())
}

func TestLoad_InvalidSigningKeyLength(t *testing.T) {
	resetViper(t)
	t.Setenv("FLUSSO_SIGNING_KEY", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing_key must be at least 32 bytes")
}

func TestLoad_InvalidProvider(t *testing.T) {
	resetViper(t)
	t.Setenv("FLUSSO_ORACLE_PROVIDER", "watson")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle_provider")
}

func TestLoad_InvalidThreshold(t *testing.T) {
	resetViper(t)
	t.Setenv("FLUSSO_CONFIDENCE_FLOOR", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence_floor")
}

func TestLoad_MaxIterationsTooLow(t *testing.T) {
	resetViper(t)
	t.Setenv("FLUSSO_MAX_ITERATIONS", "1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_iterations")
}

func TestLoad_CustomDataDir(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Setenv("FLUSSO_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "audit.db"), cfg.AuditDBPath())
	require.NoError(t, cfg.EnsureDataDir())
}
