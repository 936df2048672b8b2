package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/eringen/staticpress"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr         string `help:"Listen address, overrides the configured one"`
	SkipPrebuild bool   `name:"skip-prebuild" help:"Start serving without pre-generating pages"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Addr = s.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := staticpress.New(cfg, staticpress.WithLogger(cfg.NewLogger(root.Verbose)))
	defer app.Close()
	return app.Start(ctx, !s.SkipPrebuild)
}
