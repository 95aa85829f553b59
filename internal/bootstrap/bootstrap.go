// Package bootstrap opens the configured poll backend and account stores
// for the cmd tools.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/firestoredb"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/mongodb"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

// Resources holds everything opened from the config. Close releases it all.
type Resources struct {
	Backend ports.PollBackend
	Users   ports.UserRepository
	Tokens  ports.AuthRepository

	closers []func() error
}

func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// Open connects the poll backend named by cfg.Backend. Accounts live in
// Postgres whenever it is configured, in memory otherwise.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Resources, error) {
	res := &Resources{}
	ok := false
	defer func() {
		if !ok {
			_ = res.Close()
		}
	}()

	var db *sql.DB
	if cfg.Backend == config.BackendPostgres || cfg.Postgres.DB != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Postgres.ConnString())
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		res.Users = postgres.NewUserRepository(db)
		res.Tokens = postgres.NewAuthRepository(db)
	} else {
		res.Users = memory.NewUserRepository()
		res.Tokens = memory.NewAuthRepository()
	}

	switch cfg.Backend {
	case config.BackendMemory:
		res.Backend = memory.NewPollBackend()

	case config.BackendPostgres:
		res.Backend = postgres.NewPollBackend(db, cfg.Postgres.ConnString(), log)

	case config.BackendFirestore:
		client, err := firestoredb.NewClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, client.Close)
		res.Backend = firestoredb.NewPollBackend(client, cfg.PollsCollection, log)

	case config.BackendMongo:
		client, err := mongodb.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, func() error {
			return client.Disconnect(context.Background())
		})
		res.Backend = mongodb.NewPollBackend(client.Database(cfg.Mongo.Database), cfg.PollsCollection, log)

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	log.Info(ctx, "backend opened", "backend", cfg.Backend, "postgres_accounts", db != nil)
	ok = true
	return res, nil
}
