package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/semwiki/internal"
	"github.com/starford/semwiki/internal/dataitem"
	"github.com/starford/semwiki/internal/wikiservice"
	pkgconfig "github.com/starford/semwiki/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func undeclared(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	q := wikiservice.ListQuery{
		Limit:    int(cmd.Int("limit")),
		Offset:   int(cmd.Int("offset")),
		Prefix:   cmd.String("prefix"),
		Contains: cmd.String("contains"),
	}
	return internal.RunQuery(ctx, func(ctx context.Context, svc *wikiservice.Service) (any, error) {
		return svc.UndeclaredProperties(ctx, q)
	}, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func exportPage(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	title := cmd.Args().First()
	if title == "" {
		return errors.New("export-page: title argument is required")
	}
	page := dataitem.NewWikiPageFromText(title, dataitem.NSMain)
	if sub := cmd.String("subobject"); sub != "" {
		page = page.WithSubobject(sub)
	}
	aux := cmd.Bool("aux")
	return internal.RunQuery(ctx, func(ctx context.Context, svc *wikiservice.Service) (any, error) {
		return svc.MapResource(ctx, page, aux)
	}, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func main() {
	cmd := &cli.Command{
		Name:   "semwiki",
		Usage:  "Semantic property lookups and resource export over a Markdown wiki",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and vault watcher (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: serveMCP,
			},
			{
				Name:  "undeclared",
				Usage: "Print properties used without a declaration page",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Max number of results"},
					&cli.IntFlag{Name: "offset", Usage: "Number of results to skip"},
					&cli.StringFlag{Name: "prefix", Usage: "Name prefix filter"},
					&cli.StringFlag{Name: "contains", Usage: "Name substring filter"},
				},
				Action: undeclared,
			},
			{
				Name:      "export-page",
				Usage:     "Print the export resource of a page",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subobject", Usage: "Subobject name"},
					&cli.BoolFlag{Name: "aux", Usage: "Auxiliary resource"},
				},
				Action: exportPage,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
