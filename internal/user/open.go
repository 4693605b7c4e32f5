package user

import (
	"context"
	"fmt"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/config"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/database"
)

// Store is an opened credential store and the handle that releases it
type Store struct {
	Repository
	close func(context.Context) error
}

// Close releases the underlying connection pool, if any
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStore connects the credential store selected by cfg.Driver.
// When migrate is set, SQL migrations run before the store is returned.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, migrate bool) (*Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		sqlDB, err := database.OpenPostgres(ctx, database.PostgresOptions{
			DSN:          cfg.ConnectionString(),
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		})
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.Migrate(ctx, sqlDB); err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
		}
		db := database.NewBunDB(sqlDB)
		return &Store{
			Repository: NewBunRepository(db),
			close:      func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		mdb := client.Database(cfg.MongoDatabase)
		if err := database.EnsureUserIndexes(ctx, mdb); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &Store{
			Repository: NewMongoRepository(mdb),
			close:      client.Disconnect,
		}, nil

	case config.DriverMemory:
		return &Store{Repository: NewMemoryRepository()}, nil

	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}
