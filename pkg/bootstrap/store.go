package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/simple-account/migrations"
	"github.com/tendant/simple-account/pkg/account"
	"github.com/tendant/simple-account/pkg/config"
)

// OpenStore opens the store selected by cfg. The returned close function
// releases the database pool, if any.
func OpenStore(ctx context.Context, cfg config.Config) (account.Store, func(), error) {
	persistence := cfg.AccountConfig.Persistence
	switch persistence {
	case "postgres", "postgresql":
		if cfg.AccountConfig.Migrate {
			if err := migrations.Up(ctx, cfg.DatabaseConfig.ToDatabaseURL()); err != nil {
				return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
			}
			slog.Info("Database migrations applied", "database", cfg.DatabaseConfig.Database)
		}

		dbConfig := cfg.DatabaseConfig.ToDbConfig()
		pool, err := dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		store, err := account.NewStore(persistence, account.RepositoryConfig{DB: pool})
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		store, err := account.NewStore(persistence, account.RepositoryConfig{DataDir: cfg.AccountConfig.DataDir})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Using non-postgres account store", "persistence", persistence, "dataDir", cfg.AccountConfig.DataDir)
		return store, func() {}, nil
	}
}

// NewAccountService opens the configured store and builds the account service on it
func NewAccountService(ctx context.Context, cfg config.Config) (*account.AccountService, func(), error) {
	opts, err := cfg.AccountConfig.ServiceOptions()
	if err != nil {
		return nil, nil, err
	}
	store, closeFn, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return account.NewAccountService(store, opts...), closeFn, nil
}

// BootstrapFromConfig runs the admin bootstrap when ADMIN_USERNAME is set
func BootstrapFromConfig(ctx context.Context, cfg config.Config, service AccountService) (*AdminBootstrapResult, error) {
	if !cfg.AdminConfig.Enabled() {
		return nil, nil
	}
	userType, err := cfg.AccountConfig.UserType()
	if err != nil {
		return nil, err
	}
	return BootstrapAdminRolesAndAccount(ctx, AdminBootstrapConfig{
		AdminRoleNames: cfg.AdminConfig.Roles(),
		AdminUsername:  cfg.AdminConfig.Username,
		AdminPassword:  cfg.AdminConfig.Password,
		UserType:       userType,
		Service:        service,
	})
}
