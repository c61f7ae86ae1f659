package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/medlog/internal"
	"github.com/starford/medlog/internal/medservice"
	"github.com/starford/medlog/internal/mcpserver"
	"github.com/starford/medlog/internal/storage"
	pkgconfig "github.com/starford/medlog/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// runMCP serves the MCP tools over stdio. Notifications are discarded:
// there is no UI on the other end, tools return their results directly.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var store storage.Provider
	switch cfg.Data.Driver {
	case internal.DriverSQLite:
		store, err = storage.OpenSQLite(cfg.Data.Path)
	default:
		if err = os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		store, err = storage.NewFile(cfg.Data.Path)
	}
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	svc, err := medservice.New(store, nil, slog.Default())
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	return mcpserver.New(svc).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "medlog",
		Usage:  "Personal medication tracker with schedules, intake history, and adherence statistics",
		Action: runServe,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve MedLog tools over the Model Context Protocol on stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
