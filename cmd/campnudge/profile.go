package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func cmdProfile(configFile *string) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Print the Basecamp identity behind the stored credential",
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

			identity, err := client.GetProfile(ctx)
			if err != nil {
				return fmt.Errorf("fetching profile: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(identity)
		},
	}
}
