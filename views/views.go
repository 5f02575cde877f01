// Package views holds the embedded page templates and static assets.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"lipia/utils"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static serves the stylesheet and script.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var funcs = template.FuncMap{
	"formatDate": utils.FormatDate,
	"money": func(v float64) string {
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.2f", v)
	},
}

// Renderer pairs every page with the base layout. Pages define "content".
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		page := path.Base(name)
		if page == "base.html" {
			continue
		}
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/base.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[strings.TrimSuffix(page, ".html")] = tmpl
	}
	return r, nil
}

// Instance implements gin's render.HTMLRender.
func (r *Renderer) Instance(name string, data interface{}) render.Render {
	return render.HTML{
		Template: r.pages[name],
		Name:     "base",
		Data:     data,
	}
}
