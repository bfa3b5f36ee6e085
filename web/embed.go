package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// StaticFS returns the built-in landing page, served when no frontend build
// directory is configured.
func StaticFS() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic("web: static sub-filesystem: " + err.Error())
	}
	return sub
}
