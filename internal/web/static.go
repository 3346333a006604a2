package web

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/cjeanneret/espcam/internal/store"
)

// static holds the embedded index page template.
//
//go:embed static/*
var staticFiles embed.FS

var indexTemplate = template.Must(template.ParseFS(staticFiles, "static/index.html"))

type indexData struct {
	Images []store.ImageFile
}

// renderIndex builds the index page listing images.
func renderIndex(images []store.ImageFile) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, indexData{Images: images}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
