package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/thoughts/internal"
	"github.com/starford/thoughts/internal/entryservice"
	pkgconfig "github.com/starford/thoughts/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// withService opens the configured store for the duration of fn.
func withService(ctx context.Context, cmd *cli.Command, fn func(context.Context, *entryservice.Service) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, _, err := internal.Open(internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer svc.Store().Close()
	return fn(ctx, svc)
}

func main() {
	cmd := &cli.Command{
		Name:    "thoughts",
		Usage:   "Personal note-taking with a tiny query language",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "thoughts.yaml",
				Value:       "thoughts.yaml",
				Sources:     cli.EnvVars("THOUGHTS_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			newCommand(),
			searchCommand(),
			showCommand(),
			favoriteCommand(),
			renameCommand(),
			tagCommand(),
			deleteCommand(),
			backupCommand(),
			queryCommand(),
			watchCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
