package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/bakushin-github/bakushin.dev/internal/platform/observability"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplates = []string{"home", "listing", "detail"}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageTemplates))}
	for _, name := range pageTemplates {
		t, err := template.New(name).ParseFS(templateFS, "templates/base.tmpl", "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// render buffers the page so a template failure still yields a clean 500.
func (r *renderer) render(w http.ResponseWriter, req *http.Request, status int, page string, data any) {
	t, ok := r.pages[page]
	if !ok {
		http.Error(w, "template not initialized", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		observability.FromContext(req.Context()).Error("template execution failed", zap.String("template", page), zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
