package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/dmrelay-server/internal/auth"
	"github.com/nkoval/dmrelay-server/internal/config"
	"github.com/nkoval/dmrelay-server/internal/contacts"
	"github.com/nkoval/dmrelay-server/internal/core"
	"github.com/nkoval/dmrelay-server/internal/store"
	"github.com/nkoval/dmrelay-server/internal/store/sqlite"
)

// startTestServer spins up the full HTTP surface over an in-memory store.
func startTestServer(t *testing.T) (*httptest.Server, store.Store, *auth.Service) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.New(nil)

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	authService := auth.NewService(st, jwtConfig, &logger)
	deriver := contacts.NewDeriver(st, &logger)

	hub := core.NewHub(st, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	cfg := config.Default()
	server := NewServer(hub, authService, st, deriver, &cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, st, authService
}
