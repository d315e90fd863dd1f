package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv() map[string]string {
	return map[string]string{
		"LINE_CHANNEL_SECRET":       "secret",
		"LINE_CHANNEL_ACCESS_TOKEN": "token",
	}
}

func TestLoadFromMap_Defaults(t *testing.T) {
	cfg, err := LoadFromMap(validEnv())
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.ChannelSecret)
	assert.Equal(t, "token", cfg.ChannelAccessToken)
	assert.Equal(t, 8000, cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "static", cfg.StaticDir)
	assert.Equal(t, "configs/replies.yaml", cfg.RepliesFile)
	assert.Empty(t, cfg.DBURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 8, cfg.APIConcurrency)
	assert.Equal(t, 10*time.Minute, cfg.DedupeTTL)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "line-webhook", cfg.Tracing.ServiceName)
	assert.Empty(t, cfg.Tracing.Endpoint)
}

func TestLoadFromMap_Overrides(t *testing.T) {
	vars := validEnv()
	vars["PORT"] = "9001"
	vars["DEBUG"] = "true"
	vars["DATABASE_URL"] = "postgres://localhost/linebot"
	vars["DEDUPE_TTL"] = "1h"
	vars["OTEL_EXPORTER_ENDPOINT"] = "localhost:4318"

	cfg, err := LoadFromMap(vars)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "postgres://localhost/linebot", cfg.DBURL)
	assert.Equal(t, time.Hour, cfg.DedupeTTL)
	assert.Equal(t, "localhost:4318", cfg.Tracing.Endpoint)
}

func TestLoadFromMap_MissingCredentials(t *testing.T) {
	cases := map[string]struct {
		vars map[string]string
		name string
	}{
		"no secret":      {vars: map[string]string{"LINE_CHANNEL_ACCESS_TOKEN": "token"}, name: "LINE_CHANNEL_SECRET"},
		"no token":       {vars: map[string]string{"LINE_CHANNEL_SECRET": "secret"}, name: "LINE_CHANNEL_ACCESS_TOKEN"},
		"empty token":    {vars: map[string]string{"LINE_CHANNEL_SECRET": "secret", "LINE_CHANNEL_ACCESS_TOKEN": ""}, name: "LINE_CHANNEL_ACCESS_TOKEN"},
		"blank token":    {vars: map[string]string{"LINE_CHANNEL_SECRET": "secret", "LINE_CHANNEL_ACCESS_TOKEN": "   "}, name: "LINE_CHANNEL_ACCESS_TOKEN"},
		"nothing at all": {vars: nil, name: "LINE_CHANNEL_SECRET"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromMap(tc.vars)
			require.Error(t, err)
			assert.True(t, IsMissing(err))
			assert.Contains(t, err.Error(), tc.name)
		})
	}
}

func TestLoadFromMap_InvalidValues(t *testing.T) {
	vars := validEnv()
	vars["PORT"] = "70000"
	_, err := LoadFromMap(vars)
	assert.Error(t, err)

	vars = validEnv()
	vars["LINE_API_CONCURRENCY"] = "0"
	_, err = LoadFromMap(vars)
	assert.Error(t, err)

	vars = validEnv()
	vars["LINE_API_TIMEOUT"] = "soon"
	_, err = LoadFromMap(vars)
	assert.Error(t, err)
}
