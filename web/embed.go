package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html static/*
var content embed.FS

// Templates parses the page templates with the given helpers
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(content, "templates/*.html")
}

// StaticFS returns the embedded stylesheet and script files
func StaticFS() fs.FS {
	staticFS, _ := fs.Sub(content, "static")
	return staticFS
}
