package config_test

import (
	"testing"
	"time"

	"pharmacy-connector/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("pharmacy-connector")
	require.NoError(t, err)

	assert.Equal(t, "pharmacy-connector", cfg.ServiceName)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, "pharmacy-connector", cfg.DB.DBName)
	assert.Equal(t, 1*time.Hour, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, "pharmacy_connector", cfg.Metrics.Prefix)
	assert.Empty(t, cfg.Auth.AdminAPIKey)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30m")
	t.Setenv("ADMIN_API_KEY", "operator-key")

	cfg, err := config.Load("pharmacy-connector")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, "operator-key", cfg.Auth.AdminAPIKey)
}

func TestGetDSN(t *testing.T) {
	cfg := &config.DBConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "secret",
		DBName:   "connector",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=connector sslmode=disable",
		cfg.GetDSN())
}
