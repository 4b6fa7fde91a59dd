package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Mindgibber/zls/internal/version"
)

// NewApp creates the CLI application
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "zls",
		Usage:   "A language server for Zig",
		Version: version.Version(),
		Description: `zls is a language server for the Zig programming language.

It tracks the documents your editor has open together with everything they
transitively import, resolves @cImport blocks through translate-c, and
associates documents with their build.zig.

Examples:
  zls lsp
  zls lsp --config ~/.config/zls.json`,
		Commands: []*cli.Command{
			lspCommand(),
			versionCommand(),
		},
	}
}

// Execute runs the CLI application
func Execute() error {
	return NewApp().Run(context.Background(), os.Args)
}
