// Package cmd provides the CLI commands for the site API.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/alabrestoise/siteapi/internal/apperrors"
	"github.com/alabrestoise/siteapi/internal/config"
	"github.com/alabrestoise/siteapi/internal/email"
	"github.com/alabrestoise/siteapi/internal/gallery"
	"github.com/alabrestoise/siteapi/internal/notify"
	"github.com/alabrestoise/siteapi/internal/server"
	"github.com/alabrestoise/siteapi/internal/store"
	"github.com/alabrestoise/siteapi/internal/version"
)

// Shared flags for all commands.
var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a TOML configuration file (environment overrides it)",
	}
	verboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable verbose logging",
	}
)

// loadConfig builds the configuration for a command invocation.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	setupLogging(cmd, cfg)
	return cfg, nil
}

// setupLogging configures the global logger from the verbose flag and the
// configured log format.
func setupLogging(cmd *cli.Command, cfg *config.Config) {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))

	if cfg.LogFormat != "" && cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		slog.Warn("invalid log format, using text", "value", cfg.LogFormat)
	}
	if level == slog.LevelDebug {
		slog.Debug("verbose logging enabled")
	}
}

// NewApp creates the CLI application.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "siteapi",
		Usage:   "Backend for the À la Brestoise site: lead capture, content store, admin endpoints",
		Version: version.Version,
		Commands: []*cli.Command{
			serveCommand(),
			galleryCommand(),
			checkCommand(),
		},
	}
}

// serveCommand creates the serve subcommand.
func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port (overrides ALB_PORT)",
			},
			configFlag,
			verboseFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port := cmd.Int("port"); port > 0 {
				cfg.Port = port
			}

			logger := slog.Default()

			content, err := store.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("open content store: %w", err)
			}

			mailer := email.NewClient(cfg.ResendAPIKey, email.WithLogger(logger))
			notifier := notify.New(notify.WithLogger(logger))

			srv := server.NewServer(cfg, content, mailer, notifier, logger)
			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		},
	}
}

// galleryCommand creates the gallery subcommand for operating on the
// home-page gallery document from the shell.
func galleryCommand() *cli.Command {
	return &cli.Command{
		Name:  "gallery",
		Usage: "Read or replace the home-page gallery document",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the current gallery document",
				Flags: []cli.Flag{configFlag, verboseFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					content, err := store.Open(cfg, slog.Default())
					if err != nil {
						return fmt.Errorf("open content store: %w", err)
					}

					doc, err := content.Read(ctx, gallery.Key)
					if apperrors.IsKind(err, apperrors.KindNotFound) {
						encoded, encErr := gallery.Default().Encode()
						if encErr != nil {
							return encErr
						}
						fmt.Print(string(encoded))
						return nil
					}
					if err != nil {
						return fmt.Errorf("read gallery: %w", err)
					}

					fmt.Print(string(doc.Content))
					return nil
				},
			},
			{
				Name:      "put",
				Usage:     "Replace the gallery document with the given JSON file",
				ArgsUsage: "<gallery.json>",
				Flags:     []cli.Flag{configFlag, verboseFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() < 1 {
						return apperrors.New(apperrors.KindValidation, "gallery file path required")
					}

					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}

					data, err := os.ReadFile(cmd.Args().Get(0)) //nolint:gosec // operator-supplied path
					if err != nil {
						return fmt.Errorf("read gallery file: %w", err)
					}

					var g gallery.Gallery
					if err := json.Unmarshal(data, &g); err != nil {
						return fmt.Errorf("parse gallery file: %w", err)
					}
					if err := g.Validate(); err != nil {
						return err
					}
					g.EnsureIDs()

					encoded, err := g.Encode()
					if err != nil {
						return err
					}

					content, err := store.Open(cfg, slog.Default())
					if err != nil {
						return fmt.Errorf("open content store: %w", err)
					}

					doc, err := content.Update(ctx, gallery.Key, "update home gallery",
						func(_ []byte, _ bool) ([]byte, error) { return encoded, nil })
					if err != nil {
						return fmt.Errorf("write gallery: %w", err)
					}

					slog.Info("gallery updated", "items", len(g.Items), "revision", doc.Revision, "mode", content.Mode())
					return nil
				},
			},
		},
	}
}

// checkCommand creates the check subcommand: verify store and email
// configuration before deploying.
func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Verify store connectivity and provider configuration",
		Flags: []cli.Flag{configFlag, verboseFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			content, err := store.Open(cfg, slog.Default())
			if err != nil {
				return fmt.Errorf("open content store: %w", err)
			}

			// A read proves credentials and repository access; a missing
			// gallery document still means the store is reachable.
			_, err = content.Read(ctx, gallery.Key)
			switch {
			case err == nil, apperrors.IsKind(err, apperrors.KindNotFound):
				slog.Info("content store reachable", "mode", content.Mode())
			default:
				return fmt.Errorf("content store check failed: %w", err)
			}

			if cfg.EmailConfigured() {
				slog.Info("email provider configured", "from", cfg.EmailFrom)
			} else {
				slog.Warn("email provider not configured, contact falls back to mailto")
			}

			if cfg.AdminToken == "" {
				slog.Warn("admin token not configured, admin endpoints are open")
			}
			if cfg.LeadWebhookURL == "" {
				slog.Info("lead webhook not configured")
			}
			if cfg.DeployHookURL == "" {
				slog.Info("deploy hook not configured")
			}

			return nil
		},
	}
}
