package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "archive")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, 0.2, cfg.GenAITemperature)
	assert.Equal(t, "data/archives.bleve", cfg.SearchIndexPath)
	assert.Equal(t, 0.3, cfg.SearchMatchThreshold)
	assert.Equal(t, 5, cfg.SearchMatchCount)
	assert.Equal(t, "data/uploads", cfg.UploadDir)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "archive")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "DB_USER")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.NotContains(t, err.Error(), "DB_NAME")
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GENAI_HOST", "localhost:11434")
	t.Setenv("GENAI_TEMPERATURE", "0.7")
	t.Setenv("SEARCH_MATCH_THRESHOLD", "0.5")
	t.Setenv("SEARCH_MATCH_COUNT", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "localhost:11434", cfg.GenAIHost)
	assert.Equal(t, 0.7, cfg.GenAITemperature)
	assert.Equal(t, 0.5, cfg.SearchMatchThreshold)
	assert.Equal(t, 10, cfg.SearchMatchCount)
}

func TestValidateRejectsBadSearchSettings(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("SEARCH_MATCH_THRESHOLD", "1.5")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEARCH_MATCH_THRESHOLD")

	t.Setenv("SEARCH_MATCH_THRESHOLD", "0.3")
	t.Setenv("SEARCH_MATCH_COUNT", "-1")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEARCH_MATCH_COUNT")
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.example.com",
		DBPort:     "5433",
		DBUser:     "curator",
		DBPassword: "secret",
		DBName:     "archive",
		DBSSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.example.com port=5433 user=curator password=secret dbname=archive sslmode=require",
		cfg.GetDSN())
}

func TestGetRedisAddr(t *testing.T) {
	cfg := &Config{RedisHost: "cache.example.com", RedisPort: "6380"}
	assert.Equal(t, "cache.example.com:6380", cfg.GetRedisAddr())
}
