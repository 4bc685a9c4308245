// Package gateway assembles the HTTP daemon from its parts: configuration,
// the OpenFGA-backed authorizer, and the resource store.
package gateway

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hiershare/hiershare/internal/client"
	"github.com/hiershare/hiershare/internal/config"
	"github.com/hiershare/hiershare/internal/daemon"
	"github.com/hiershare/hiershare/internal/fga"
	"github.com/hiershare/hiershare/internal/store"
)

// StartWebService wires up and starts the gateway. It returns once the
// listener is up; callers are responsible for waiting and calling Stop.
func StartWebService(cfg *config.Config) (*daemon.Server, error) {
	ctx := context.Background()

	authorizer, err := fga.NewAuthorizer(ctx, cfg.OpenFGA)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to authorization server: %w", err)
	}

	resources, err := newResourceStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	probe := client.NewOpenFGAClient(cfg.OpenFGA.URL(), cfg.OpenFGA.Token)

	server := daemon.NewServer(cfg, authorizer, resources, probe)
	if err := server.Start(); err != nil {
		resources.Close()
		return nil, err
	}

	return server, nil
}

// newResourceStore picks Postgres when a database URL is configured and
// falls back to the in-memory store otherwise.
func newResourceStore(ctx context.Context, cfg *config.Config) (store.ResourceStore, error) {
	if cfg.HasDatabase() {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logrus.Info("Using Postgres resource store")
		return pg, nil
	}

	logrus.Warn("No database configured, using in-memory resource store")
	return store.NewMemoryStore(), nil
}
