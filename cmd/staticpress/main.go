package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/eringen/staticpress"
)

// version is set at build time via ldflags.
var version = "dev"

// Global is passed to every command's Run method.
type Global struct {
	Logger *slog.Logger
}

// CLI is the command line: global flags plus one struct per command.
type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"staticpress.yaml" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Serve      ServeCmd   `cmd:"" default:"1" help:"Pre-generate pages and serve them with background revalidation"`
	Build      BuildCmd   `cmd:"" help:"Generate every page and export a static site"`
	Paths      PathsCmd   `cmd:"" help:"Print the routes that would be pre-generated"`
	Init       InitCmd    `cmd:"" help:"Write a starter configuration"`
	VersionCmd VersionCmd `cmd:"" name:"version" help:"Print the staticpress version"`
}

func (c *CLI) loadConfig() (staticpress.SiteConfig, error) {
	cfg, err := staticpress.LoadConfig(c.Config)
	if err != nil {
		return staticpress.SiteConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("staticpress"),
		kong.Description("A statically generated blog front-end for a headless CMS."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := ctx.Run(&Global{Logger: logger}, &cli); err != nil {
		logger.Error("Command failed", slog.String("command", ctx.Command()), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run(_ *Global, _ *CLI) error {
	fmt.Printf("staticpress %s\n", version)
	return nil
}
