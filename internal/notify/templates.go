// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package notify

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"sort"
	"strings"

	"github.com/samber/oops"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "base.html"

// Templates renders the embedded HTML email templates. Each page template
// fills the "title" and "content" blocks of the shared layout.
type Templates struct {
	pages map[string]*template.Template
}

// LoadTemplates parses the embedded templates.
func LoadTemplates() (*Templates, error) {
	return loadTemplates(templateFS, "templates")
}

func loadTemplates(fsys fs.FS, dir string) (*Templates, error) {
	layout, err := template.ParseFS(fsys, dir+"/"+layoutFile)
	if err != nil {
		return nil, oops.With("operation", "parse layout").Wrap(err)
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, oops.With("operation", "list templates").Wrap(err)
	}

	pages := make(map[string]*template.Template)
	for _, entry := range entries {
		file := entry.Name()
		name, ok := strings.CutSuffix(file, ".html")
		if !ok || file == layoutFile {
			continue
		}
		page, err := layout.Clone()
		if err != nil {
			return nil, oops.With("operation", "clone layout").Wrap(err)
		}
		if _, err := page.ParseFS(fsys, dir+"/"+file); err != nil {
			return nil, oops.With("operation", "parse template").With("template", name).Wrap(err)
		}
		pages[name] = page
	}
	return &Templates{pages: pages}, nil
}

// Render executes the named template with data.
func (t *Templates) Render(name string, data map[string]any) (string, error) {
	page, ok := t.pages[name]
	if !ok {
		return "", oops.With("template", name).Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "base", data); err != nil {
		return "", oops.With("operation", "execute template").With("template", name).Wrap(err)
	}
	return buf.String(), nil
}

// Names lists the available templates in sorted order.
func (t *Templates) Names() []string {
	names := make([]string, 0, len(t.pages))
	for name := range t.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
