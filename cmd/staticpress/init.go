package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eringen/staticpress/scaffold"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Dir    string `arg:"" optional:"" default:"." help:"Directory to write the starter files into"`
	Force  bool   `help:"Overwrite existing files"`
	Name   string `help:"Site name" default:"Blog"`
	URL    string `name:"url" help:"Public site URL" default:"http://localhost:3000"`
	APIURL string `name:"api-url" help:"Content API base URL" env:"CMS_API_URL"`
}

func (i *InitCmd) Run(g *Global, _ *CLI) error {
	if err := os.MkdirAll(i.Dir, 0o755); err != nil {
		return err
	}
	files, err := scaffold.Write(i.Dir, scaffold.Data{
		SiteName: i.Name,
		SiteURL:  i.URL,
		APIURL:   i.APIURL,
	}, i.Force)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	for _, f := range files {
		fmt.Printf("  created %s\n", f)
	}
	fmt.Println()
	fmt.Println("Done! Next steps:")
	fmt.Println()
	if abs, err := filepath.Abs(i.Dir); err == nil && i.Dir != "." {
		fmt.Printf("  cd %s\n", abs)
	}
	fmt.Println("  cp .env.example .env   # set CMS_API_URL")
	fmt.Println("  staticpress serve")
	fmt.Println()
	return nil
}
