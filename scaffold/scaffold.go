// Package scaffold provides the embedded starter files written by
// `staticpress init`.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Templates contains all scaffold template files.
// Files use Go text/template syntax and have a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS

// ErrExists is returned when a target file exists and overwriting was not requested.
var ErrExists = errors.New("file already exists")

// Data holds the template variables passed to every scaffold template.
type Data struct {
	SiteName string
	SiteURL  string
	APIURL   string
}

// Write renders every template into dir and returns the files written. The
// template "dotenv" becomes ".env.example". Existing files are only replaced
// when force is set; otherwise nothing is written.
func Write(dir string, data Data, force bool) ([]string, error) {
	const root = "templates"

	type file struct {
		src, dst string
	}
	var files []file
	err := fs.WalkDir(Templates, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dir, strings.TrimSuffix(rel, ".tmpl"))
		if filepath.Base(out) == "dotenv" {
			out = filepath.Join(filepath.Dir(out), ".env.example")
		}
		files = append(files, file{src: path, dst: out})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !force {
		for _, f := range files {
			if _, err := os.Stat(f.dst); err == nil {
				return nil, fmt.Errorf("%s: %w", f.dst, ErrExists)
			}
		}
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := render(f.src, f.dst, data); err != nil {
			return written, err
		}
		written = append(written, f.dst)
	}
	return written, nil
}

func render(src, dst string, data Data) error {
	content, err := Templates.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	tmpl, err := template.New(filepath.Base(src)).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return fmt.Errorf("parse template %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("execute template %s: %w", src, err)
	}
	return nil
}
