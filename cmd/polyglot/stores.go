package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zulandar/polyglot/internal/admin"
	"github.com/zulandar/polyglot/internal/config"
	"github.com/zulandar/polyglot/internal/db"
	"github.com/zulandar/polyglot/internal/store"
	"github.com/zulandar/polyglot/internal/store/mongostore"
	"gorm.io/gorm"
)

// stores bundles the opened backend behind the store interfaces.
type stores struct {
	links    store.Links
	channels store.Channels
	migrate  func(ctx context.Context) error
	close    func(ctx context.Context) error
	describe string
}

// openStores connects to the configured store driver.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite, config.DriverMySQL:
		var (
			gormDB   *gorm.DB
			err      error
			describe string
		)
		if cfg.Store.Driver == config.DriverSQLite {
			gormDB, err = db.ConnectSQLite(cfg.Store.Path)
			describe = "sqlite " + cfg.Store.Path
		} else {
			gormDB, err = db.Connect(cfg.Store.User, cfg.Store.Host, cfg.Store.Port, cfg.Store.Database)
			describe = fmt.Sprintf("mysql %s:%d/%s", cfg.Store.Host, cfg.Store.Port, cfg.Store.Database)
		}
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", describe, err)
		}
		s, err := store.NewSQLStore(gormDB)
		if err != nil {
			return nil, err
		}
		return &stores{
			links:    s,
			channels: s,
			migrate:  func(context.Context) error { return db.AutoMigrate(gormDB) },
			close: func(context.Context) error {
				sqlDB, err := gormDB.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
			describe: describe,
		}, nil

	case config.DriverMongo:
		s, err := mongostore.Connect(ctx, cfg.Store.URI, cfg.Store.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		return &stores{
			links:    s,
			channels: s,
			migrate:  s.EnsureIndexes,
			close:    s.Close,
			describe: "mongo " + cfg.Store.Database,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// withStores loads the store config, opens the store, and runs fn.
func withStores(cmd *cobra.Command, configPath string, fn func(ctx context.Context, cfg *config.Config, s *stores) error) error {
	cfg, err := config.LoadStore(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close(ctx)
	return fn(ctx, cfg, s)
}

// notifyDaemon asks a running relay to drop its cached configuration for
// the given channels. An unreachable daemon is not an error: its caches
// refresh on the next scheduled flush or restart.
func notifyDaemon(ctx context.Context, out io.Writer, cfg *config.Config, channelIDs ...string) {
	if cfg.Admin.Port == 0 {
		return
	}
	if err := admin.NewClient(cfg.Admin.Port).Invalidate(ctx, channelIDs...); err != nil {
		fmt.Fprintf(out, "Note: running relay not notified (%v)\n", err)
		return
	}
	fmt.Fprintf(out, "Running relay caches invalidated\n")
}
