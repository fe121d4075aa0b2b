package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-press/pkg/interfaces"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// Config controls template resolution for the HTML renderer.
type Config struct {
	// TemplatesDir optionally points at theme templates. Files found there
	// override the embedded defaults by name.
	TemplatesDir string
	// Funcs extends the builtin template function map.
	Funcs template.FuncMap
}

// HTMLRenderer renders site pages through html/template. Embedded default
// layouts ship with the binary so a site builds without any theme on disk.
type HTMLRenderer struct {
	set *template.Template
}

var _ interfaces.TemplateRenderer = (*HTMLRenderer)(nil)

// New parses the embedded default templates and overlays any templates found
// in cfg.TemplatesDir.
func New(cfg Config) (*HTMLRenderer, error) {
	root := template.New("press").Funcs(builtins())
	if len(cfg.Funcs) > 0 {
		root = root.Funcs(cfg.Funcs)
	}

	set, err := root.ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse default templates: %w", err)
	}

	dir := strings.TrimSpace(cfg.TemplatesDir)
	if dir != "" {
		pattern := filepath.Join(dir, "*.html")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("render: glob %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			if set, err = set.ParseGlob(pattern); err != nil {
				return nil, fmt.Errorf("render: parse theme templates: %w", err)
			}
		} else if _, statErr := os.Stat(dir); statErr != nil && !os.IsNotExist(statErr) {
			return nil, fmt.Errorf("render: templates dir %s: %w", dir, statErr)
		}
	}

	return &HTMLRenderer{set: set}, nil
}

// RenderTemplate executes the named template and returns the output, also
// streaming it to any supplied writers.
func (r *HTMLRenderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if r == nil || r.set == nil {
		return "", fmt.Errorf("render: renderer not initialised")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("render: template name is required")
	}

	var buf bytes.Buffer
	if err := r.set.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render: execute template %q: %w", name, err)
	}

	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", fmt.Errorf("render: write template %q output: %w", name, err)
		}
	}
	return buf.String(), nil
}

// Lookup reports whether the named template is registered.
func (r *HTMLRenderer) Lookup(name string) bool {
	return r != nil && r.set != nil && r.set.Lookup(name) != nil
}

func builtins() template.FuncMap {
	return template.FuncMap{
		"safeHTML": func(value string) template.HTML {
			return template.HTML(value)
		},
		"formatDate": func(layout string, value any) string {
			type timeLike interface{ Format(string) string }
			if t, ok := value.(timeLike); ok {
				return t.Format(layout)
			}
			return fmt.Sprint(value)
		},
		"cssVars": func(vars map[string]string) template.CSS {
			if len(vars) == 0 {
				return ""
			}
			keys := make([]string, 0, len(vars))
			for key := range vars {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			var builder strings.Builder
			for _, key := range keys {
				builder.WriteString(key)
				builder.WriteString(": ")
				builder.WriteString(vars[key])
				builder.WriteString("; ")
			}
			return template.CSS(strings.TrimSpace(builder.String()))
		},
	}
}
