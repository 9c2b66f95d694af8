// Package web holds the page templates and the static assets named in the
// offline manifest.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses every page shell. Each file is named by its route, e.g.
// "animals.html".
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(templatesFS, "templates/*.html")
}

// Static exposes the embedded assets rooted at the static directory.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Register installs the templates and serves the static assets.
func Register(router *gin.Engine) error {
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)

	static := Static()
	router.StaticFileFS("/styles.css", "styles.css", static)
	router.StaticFileFS("/app.js", "app.js", static)
	router.StaticFileFS("/manifest.webmanifest", "manifest.webmanifest", static)
	router.StaticFileFS("/icons/icon-192.png", "icons/icon-192.png", static)
	router.StaticFileFS("/icons/icon-512.png", "icons/icon-512.png", static)
	return nil
}
