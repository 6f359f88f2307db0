package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/persistence/memory"
	"github.com/dealerdesk/automation/pkg/persistence/postgresql"
)

// NewPersistence selects a backend from the database URL scheme. An empty or
// "memory" URL yields the in-memory backend, anything postgres-shaped the
// PostgreSQL one.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return memory.NewPersistence()
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "memory"
	}

	if scheme == "postgres" || scheme == "postgresql" {
		return "postgres"
	}

	return "memory"
}
