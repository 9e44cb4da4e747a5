package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/factlog/internal/config"
	"github.com/roach88/factlog/internal/pgstore"
	"github.com/roach88/factlog/internal/service"
	"github.com/roach88/factlog/internal/sqlitestore"
	"github.com/roach88/factlog/internal/xmlstore"
)

// SQLiteFileName is the database file the sqlite backend keeps in its data
// directory.
const SQLiteFileName = "factlog.db"

// Backend is an opened storage backend.
type Backend struct {
	service.Backend
	Name  string
	close func() error
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// BackendOpener constructs the backend a configuration selects.
type BackendOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

// OpenBackend opens the backend named by cfg.Backend.
//
//   - xml: data.xml, history.xml and users.xml in cfg.DataDir
//   - sqlite: factlog.db in cfg.DataDir
//   - postgres: cfg.Postgres.DSN
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendXML:
		opt := xmlstore.WithLogger(logger)
		return &Backend{
			Name: cfg.Backend,
			Backend: service.Backend{
				Persister: xmlstore.NewDataFile(xmlstore.DataPath(cfg.DataDir), opt),
				History:   xmlstore.NewHistoryFile(xmlstore.HistoryPath(cfg.DataDir), opt),
				Users:     xmlstore.NewUserFile(xmlstore.UsersPath(cfg.DataDir), opt),
			},
		}, nil

	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		st, err := sqlitestore.Open(filepath.Join(cfg.DataDir, SQLiteFileName), sqlitestore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &Backend{
			Name:    cfg.Backend,
			Backend: service.Backend{Persister: st, History: st, Users: st},
			close:   st.Close,
		}, nil

	case config.BackendPostgres:
		client, err := pgstore.New(ctx, cfg.Postgres.DSN, pgstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &Backend{
			Name:    cfg.Backend,
			Backend: service.Backend{Persister: client, History: client, Users: client},
			close:   client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
