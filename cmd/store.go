package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cropplan/internal/resilience"
	"github.com/sells-group/cropplan/internal/store"
)

// initStore opens the configured run store and applies migrations. Postgres
// connects and migrations are retried while the database is unreachable.
func initStore(ctx context.Context) (store.Store, error) {
	retry := resilience.DefaultRetryConfig(cfg.Store.ConnectAttempts)

	var st store.Store
	err := resilience.Do(ctx, retry, "open store", func(ctx context.Context) error {
		var err error
		st, err = openStore(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := resilience.Do(ctx, retry, "migrate store", st.Migrate); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "cropplan.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
