package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/staticpress"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Output directory, overrides the configured one"`
	Strict bool   `help:"Exit with an error when any page fails or links are broken"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	out := cfg.OutputDir
	if b.Output != "" {
		out = b.Output
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := staticpress.New(cfg, staticpress.WithLogger(cfg.NewLogger(root.Verbose)))
	defer app.Close()

	report, err := app.Build(ctx, out)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	fmt.Printf("Build %s: %d pages (%d not found, %d failed) in %s -> %s\n",
		report.ID, report.Pages, report.NotFound, report.Failed, report.Duration.Round(time.Millisecond), out)
	for _, l := range report.BrokenLinks {
		fmt.Printf("  broken link %s -> %s\n", l.From, l.To)
	}
	if b.Strict && (report.Failed > 0 || len(report.BrokenLinks) > 0) {
		return fmt.Errorf("build finished with %d failed pages and %d broken links", report.Failed, len(report.BrokenLinks))
	}
	return nil
}
