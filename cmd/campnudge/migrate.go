package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	sqliteadapter "github.com/ericfisherdev/campnudge/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/campnudge/internal/config"
)

func cmdMigrate(configFile *string) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations without running a scan",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}

			db, err := openDatabase(ctx, cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					slog.Error("error closing database", "error", err)
				}
			}()

			version, _, err := sqliteadapter.SchemaVersion(db.Writer)
			if err != nil {
				return err
			}

			slog.Info("migrations complete", "db_path", cfg.DBPath, "schema_version", version)
			return nil
		},
	}
}
