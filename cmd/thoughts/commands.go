package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/thoughts/internal"
	"github.com/starford/thoughts/internal/entryservice"
	"github.com/starford/thoughts/internal/mcpserver"
	"github.com/starford/thoughts/internal/models"
)

var errUsage = errors.New("usage")

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.Args().Len() < n {
		return fmt.Errorf("%w: %s %s", errUsage, cmd.Name, cmd.ArgsUsage)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create an entry",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "Entry body; <DATE> and <TIME> are expanded"},
			&cli.BoolFlag{Name: "stdin", Usage: "Read the body from standard input"},
			&cli.BoolFlag{Name: "favorite", Aliases: []string{"f"}, Usage: "Mark as favorite"},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag to attach (repeatable)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			body := cmd.String("body")
			if cmd.Bool("stdin") {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				body = string(data)
			}
			return withService(ctx, cmd, func(ctx context.Context, svc *entryservice.Service) error {
				e, err := svc.Create(ctx, entryservice.CreateInput{
					Title:    strings.Join(cmd.Args().Slice(), " "),
					Body:     body,
					Favorite: cmd.Bool("favorite"),
					Tags:     cmd.StringSlice("tag"),
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, e.ID)
				return nil
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"ls"},
		Usage:     "List entries matching a query (all entries without one)",
		ArgsUsage: "[query...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(ctx context.Context, svc *entryservice.Service) error {
				entries, err := svc.Search(ctx, strings.Join(cmd.Args().Slice(), " "))
				if err != nil {
					return err
				}
				writeListing(cmd.Root().Writer, entries)
				return nil
			})
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print one entry",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			return withService(ctx, cmd, func(ctx context.Context, svc *entryservice.Service) error {
				e, err := svc.Get(ctx, cmd.Args().First())
				if err != nil {
					return err
				}
				writeEntry(cmd.Root().Writer, e)
				return nil
			})
		},
	}
}

func favoriteCommand() *cli.Command {
	return &cli.Command{
		Name:      "favorite",
		Usage:     "Toggle the favorite flag",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			return withService(ctx, cmd, func(ctx context.Context, svc *entryservice.Service) error {
				e, err := svc.ToggleFavorite(ctx, cmd.Args().First())
				if err != nil {
					return err
				}
				writeListing(cmd.Root().Writer, []models.Entry{e})
				return nil
			})
		},
	}
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Change an entry's title",
		ArgsUsage: "<id> <title>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}
			args := cmd.Args().Slice()
			title := strings.Join(args[1:], " ")
			return withService(ctx, cmd, func(ctx context.Context, svc *entryservice.Service) error {
				e, err := svc.Update(ctx, args[0], entryservice.Patch{Title: &title}, "")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, e.ID)
				return nil
			})
		},
	}
}

func tagCommand() *cli.Command {
	return &cli.Command{
		Name:      "tag",
		Usage:     "Replace an entry's tags (none clears them)",
		ArgsUsage: "<id> [tags...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			args := cmd.Args().Slice()
			tags := args[1:]
			return withService(ctx, cmd, func(ctx context.Context, svc *entryservice.Service) error {
				e, err := svc.Update(ctx, args[0], entryservice.Patch{Tags: &tags}, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.Root().Writer, "%s: %s\n", e.ID, strings.Join(e.Tags, ", "))
				return nil
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete an entry",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm deletion"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			if !cmd.Bool("yes") {
				return fmt.Errorf("refusing to delete %s without --yes", cmd.Args().First())
			}
			return withService(ctx, cmd, func(ctx context.Context, svc *entryservice.Service) error {
				return svc.Delete(ctx, cmd.Args().First())
			})
		},
	}
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Copy the whole store into the backup directory",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			svc, _, err := internal.Open(internal.WithConfig(cfg))
			if err != nil {
				return err
			}
			defer svc.Store().Close()
			path, err := svc.Backup(ctx, cfg.Backup.Path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, path)
			return nil
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Interactive query prompt",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(ctx context.Context, svc *entryservice.Service) error {
				return (&repl{svc: svc, out: cmd.Root().Writer}).run(ctx)
			})
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-run a query whenever the store changes",
		ArgsUsage: "[query...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			svc, logger, err := internal.Open(internal.WithConfig(cfg))
			if err != nil {
				return err
			}
			defer svc.Store().Close()
			return watchQuery(ctx, svc, logger, strings.Join(cmd.Args().Slice(), " "), cmd.Root().Writer)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := internal.Serve(ctx, internal.WithConfig(cfg)); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(_ context.Context, svc *entryservice.Service) error {
				return mcpserver.New(svc, version).ServeStdio()
			})
		},
	}
}
