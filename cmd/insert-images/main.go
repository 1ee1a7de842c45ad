package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vaultfill/internal"
	"github.com/starford/vaultfill/internal/journal"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := internal.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithFlags(internal.Flags{
			Apply: cmd.Bool("apply"),
			Yes:   cmd.Bool("yes"),
			Note:  cmd.String("note"),
			Watch: cmd.Bool("watch"),
		}),
	}

	if err := internal.RunImages(ctx, opts...); err != nil {
		return fmt.Errorf("insert-images: %w", err)
	}
	return nil
}

func history(ctx context.Context, cmd *cli.Command) error {
	cfg, err := internal.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	return internal.RunHistory(ctx, internal.ToolInsertImages, int(cmd.Int("limit")),
		internal.WithConfig(cfg),
		internal.WithFlags(internal.Flags{Note: cmd.String("note")}),
	)
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("VAULTFILL_CONFIG"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "insert-images",
		Usage:  "Replace <!-- IMAGE: ... --> style markers in vault notes with downloaded images",
		Action: run,
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "apply",
				Usage: "Write changes (default is a dry run)",
			},
			&cli.StringFlag{
				Name:  "note",
				Usage: "Process a single note, relative to the vault",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Skip write confirmation",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and process notes as they change (needs --apply)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "history",
				Usage:  "Show recently applied changes",
				Action: history,
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of entries to show",
						Value: journal.DefaultLimit,
					},
					&cli.StringFlag{
						Name:  "note",
						Usage: "Show only the latest change to this note",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
