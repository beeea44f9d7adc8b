package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresBothMongoURIs(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONNECTOR_MONGO_DB")

	t.Setenv("CONNECTOR_MONGO_DB", "mongodb://localhost:27017")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASSET_MONGO_DB")
}

func TestLoad_AppliesDefaultsWhenOnlyRequiredVarsSet(t *testing.T) {
	t.Setenv("CONNECTOR_MONGO_DB", "mongodb://localhost:27017")
	t.Setenv("ASSET_MONGO_DB", "mongodb://localhost:27018")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "connector", cfg.ConnectorDB)
	assert.Equal(t, "registry", cfg.ConnectorRegistry)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "/tmp/platform-connectors", cfg.WorkDir)
	assert.False(t, cfg.TestMode)
}

func TestLoad_ReadsOverridesFromEnvironment(t *testing.T) {
	t.Setenv("CONNECTOR_MONGO_DB", "mongodb://localhost:27017")
	t.Setenv("ASSET_MONGO_DB", "mongodb://localhost:27018")
	t.Setenv("test_mode", "true")
	t.Setenv("CONNECTOR_LISTEN_ADDR", ":9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.TestMode)
	assert.Equal(t, ":9000", cfg.ListenAddr)
}

func TestParseBool_InvalidValueFallsBackToDefault(t *testing.T) {
	t.Setenv("CONNECTOR_MONGO_DB", "mongodb://localhost:27017")
	t.Setenv("ASSET_MONGO_DB", "mongodb://localhost:27018")
	t.Setenv("test_mode", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.TestMode)
}
