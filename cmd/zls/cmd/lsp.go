package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/Mindgibber/zls/internal/config"
	"github.com/Mindgibber/zls/internal/lspserver"
)

func lspCommand() *cli.Command {
	return &cli.Command{
		Name:  "lsp",
		Usage: "Run the language server on stdin/stdout",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a JSON configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log verbosity: debug, info, warn, error",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			levelName := cfg.LogLevel
			if flagLevel := cmd.String("log-level"); flagLevel != "" {
				levelName = flagLevel
			}
			level, err := logrus.ParseLevel(levelName)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", levelName, err)
			}
			logrus.SetLevel(level)
			// stdout carries the protocol; logs go to stderr only.
			logrus.SetOutput(os.Stderr)

			return lspserver.New(cfg).RunStdio(ctx)
		},
	}
}
