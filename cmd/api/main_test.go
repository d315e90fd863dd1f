package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/line-webhook-service/internal/config"
)

func TestRun_MissingAccessTokenFailsBeforeStartup(t *testing.T) {
	static := filepath.Join(t.TempDir(), "static")

	err := run(context.Background(), nil, map[string]string{
		"LINE_CHANNEL_SECRET": "secret",
		"STATIC_DIR":          static,
	})

	require.Error(t, err)
	assert.True(t, config.IsMissing(err))
	assert.Contains(t, err.Error(), "LINE_CHANNEL_ACCESS_TOKEN")

	_, statErr := os.Stat(static)
	assert.True(t, os.IsNotExist(statErr), "nothing should be created before config is valid")
}

func TestRun_StartsAndStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	static := filepath.Join(dir, "static")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, []string{"-p", "0", "--debug=false"}, map[string]string{
		"LINE_CHANNEL_SECRET":       "secret",
		"LINE_CHANNEL_ACCESS_TOKEN": "token",
		"STATIC_DIR":                static,
		"REPLIES_FILE":              filepath.Join(dir, "replies.yaml"),
		"LOG_LEVEL":                 "error",
	})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(static, "tmp"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRun_RejectsUnknownFlags(t *testing.T) {
	err := run(context.Background(), []string{"--bogus"}, map[string]string{
		"LINE_CHANNEL_SECRET":       "secret",
		"LINE_CHANNEL_ACCESS_TOKEN": "token",
	})
	assert.Error(t, err)
}
