package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/laomst/lmrc/internal"
	pkgconfig "github.com/laomst/lmrc/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err == nil || cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// The workspace flag wins over the config file.
	if w := cmd.String("workspace"); w != "" {
		cfg.Workspace.Path = w
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runIndex(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunIndex(ctx, cfg, cmd.Args().Slice())
}

func runVerify(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunVerify(ctx, cfg)
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, cfg)
}

// newFlags returns fresh flag instances; urfave/cli flags carry parse state,
// so commands must not share them.
func newFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("LMRC_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "workspace",
			Aliases: []string{"w"},
			Usage:   "Path to the watched document workspace (overrides config)",
			Sources: cli.EnvVars("LMRC_WORKSPACE"),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "lmrc",
		Usage:  "Keeps Markdown document headers and the serial index in sync with the filesystem",
		Action: runWatch,
		Flags:  newFlags(),
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Watch the workspace and reconcile events (default)",
				Action: runWatch,
				Flags:  newFlags(),
			},
			{
				Name:      "index",
				Usage:     "One-shot indexing pass over the workspace, or over the given documents",
				ArgsUsage: "[path ...]",
				Action:    runIndex,
				Flags:     newFlags(),
			},
			{
				Name:   "verify",
				Usage:  "Run one verification pass and print the repair report",
				Action: runVerify,
				Flags:  newFlags(),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the index tools over MCP stdio",
				Action: runMCP,
				Flags:  newFlags(),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
