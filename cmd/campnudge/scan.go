package main

import (
	"context"

	"github.com/urfave/cli/v3"

	sqliteadapter "github.com/ericfisherdev/campnudge/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/campnudge/internal/application"
)

func cmdScan(configFile *string) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Scan client projects and post reminders for stale messages and comments",
		Action: func(ctx context.Context, _ *cli.Command) error {
			rt, err := newRuntime(ctx, *configFile)
			if err != nil {
				return err
			}
			defer rt.close()

			client, err := rt.basecampClient(ctx)
			if err != nil {
				return err
			}

			cfg := rt.cfg
			scanner := application.NewScanService(client, application.ScanPolicy{
				ProjectPattern: cfg.ProjectRegexp,
				MaxProjectAge:  cfg.MaxProjectAge,
				MaxProjectIdle: cfg.MaxProjectIdle,
				StaleAfter:     cfg.StaleAfter,
				Concurrency:    cfg.ScanConcurrency,
			})
			notifier := application.NewNotifyService(client, sqliteadapter.NewHistoryRepo(rt.db), application.NotifyPolicy{
				Cooldown:      cfg.Cooldown,
				StaleAfter:    cfg.StaleAfter,
				ThreadSubject: cfg.ThreadSubject,
				ThreadMarker:  cfg.ThreadMarker,
			})

			_, err = application.NewReminderJob(rt.creds, scanner, notifier).Run(ctx)
			return err
		},
	}
}
