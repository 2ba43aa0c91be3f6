package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ladderplan/ladderd/internal/config"
)

func TestServeModeRequiresServerEnabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Enabled = false

	a := New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := a.ServeMode(context.Background(), &Dependencies{})
	require.ErrorContains(t, err, "server.enabled")
}
