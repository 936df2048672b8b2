package main

import (
	"context"
	"fmt"

	"github.com/eringen/staticpress"
	"github.com/eringen/staticpress/content"
	"github.com/eringen/staticpress/fetch"
)

// PathsCmd implements the 'paths' command.
type PathsCmd struct {
	Kind string `enum:"all,post,category" default:"all" help:"Which routes to list (all|post|category)"`
}

func (p *PathsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	fc := fetch.New(cfg.Fetch.Timeout, cfg.FetchPolicy())
	pipeline := staticpress.NewPipeline(content.NewClient(cfg.APIURL, fc), nil, cfg.Limits, cfg.NewLogger(root.Verbose))

	ctx := context.Background()
	var routes []staticpress.Route
	switch p.Kind {
	case "post":
		routes = pipeline.PostPaths(ctx).Routes()
	case "category":
		routes = pipeline.CategoryPaths(ctx).Routes()
	default:
		routes = pipeline.AllRoutes(ctx)
	}
	for _, r := range routes {
		fmt.Println(r.Path())
	}
	return nil
}
