// Package web holds the upload page and its assets.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed index.html static/css/*.css static/js/*.js
var content embed.FS

// IndexFile is the page served at the site root.
const IndexFile = "index.html"

// Assets returns the asset tree. An empty dir selects the embedded copy;
// otherwise dir must contain index.html and a static/ directory.
func Assets(dir string) (fs.FS, error) {
	if dir == "" {
		return content, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("static dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static dir %s is not a directory", dir)
	}
	fsys := os.DirFS(dir)
	if _, err := fs.Stat(fsys, IndexFile); err != nil {
		return nil, fmt.Errorf("static dir %s: %w", dir, err)
	}
	return fsys, nil
}

// Static returns the static/ subtree of fsys.
func Static(fsys fs.FS) (fs.FS, error) {
	return fs.Sub(fsys, "static")
}
