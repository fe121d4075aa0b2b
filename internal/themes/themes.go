package themes

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gotheme "github.com/goliatone/go-theme"
)

// Config selects the theme directory used for layout rendering.
type Config struct {
	// Name identifies the theme; defaults to the manifest name when empty.
	Name string
	// Path points at the theme directory holding the manifest, templates and assets.
	Path string
	// Variant picks a manifest variant (e.g. "dark"); optional.
	Variant string
	// CSSVariablePrefix prefixes generated CSS custom properties.
	CSSVariablePrefix string
	// PartialFallbacks maps partial identifiers to fallback template names.
	PartialFallbacks map[string]string
}

// Context surfaces go-theme selection data to templates.
type Context struct {
	Name     string
	Variant  string
	Tokens   map[string]string
	CSSVars  map[string]string
	Partials map[string]string
}

// Manager resolves a theme manifest from disk and exposes its selection,
// template directory and asset list. A Manager with no manifest is valid and
// signals callers to fall back to the built-in templates.
type Manager struct {
	cfg       Config
	dir       string
	selection *gotheme.Selection
}

// NewManager loads and registers the theme manifest under cfg.Path. A missing
// theme directory is not an error; the returned manager simply reports no
// selection so the renderer can use its embedded defaults.
func NewManager(cfg Config) (*Manager, error) {
	dir := filepath.Clean(strings.TrimSpace(cfg.Path))
	manager := &Manager{cfg: cfg, dir: dir}

	if dir == "" || dir == "." {
		return manager, nil
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return manager, nil
		}
		return nil, fmt.Errorf("themes: stat %s: %w", dir, err)
	}

	manifest, err := gotheme.LoadDir(os.DirFS(dir), ".")
	if err != nil {
		return nil, fmt.Errorf("themes: load manifest from %s: %w", dir, err)
	}

	normalized := *manifest
	if name := strings.TrimSpace(cfg.Name); name != "" {
		normalized.Name = name
	}
	if strings.TrimSpace(normalized.Name) == "" {
		return nil, fmt.Errorf("themes: theme name required for manifest registration")
	}

	registry := gotheme.NewRegistry()
	if err := registry.Register(&normalized); err != nil {
		return nil, fmt.Errorf("themes: register manifest: %w", err)
	}

	selector := gotheme.Selector{
		Registry:       registry,
		DefaultTheme:   normalized.Name,
		DefaultVariant: strings.TrimSpace(cfg.Variant),
	}
	selection, err := selector.Select(normalized.Name, strings.TrimSpace(cfg.Variant))
	if err != nil {
		return nil, fmt.Errorf("themes: select theme %s: %w", normalized.Name, err)
	}
	manager.selection = selection
	return manager, nil
}

// HasTheme reports whether a manifest was resolved.
func (m *Manager) HasTheme() bool {
	return m != nil && m.selection != nil
}

// Dir returns the theme directory, or "" when no theme is configured.
func (m *Manager) Dir() string {
	if m == nil {
		return ""
	}
	return m.dir
}

// TemplatesDir returns the directory holding the theme's layout templates.
func (m *Manager) TemplatesDir() string {
	if !m.HasTheme() {
		return ""
	}
	return filepath.Join(m.dir, "templates")
}

// Context resolves tokens, CSS variables and partials for template rendering.
// Without a theme the zero-value maps are returned so templates stay simple.
func (m *Manager) Context() Context {
	empty := Context{
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
		Partials: map[string]string{},
	}
	if !m.HasTheme() {
		return empty
	}

	return Context{
		Name:     m.selection.Theme,
		Variant:  m.selection.Variant,
		Tokens:   m.selection.Tokens(),
		CSSVars:  m.selection.CSSVariables(m.cfg.CSSVariablePrefix),
		Partials: m.selection.Partials(m.cfg.PartialFallbacks),
	}
}

// Assets enumerates the manifest asset files, variant overrides applied,
// normalized to slash-separated relative paths with duplicates removed.
func (m *Manager) Assets() []string {
	if !m.HasTheme() || m.selection.Manifest == nil {
		return nil
	}

	files := m.selection.Manifest.Assets.Files
	if variant := strings.TrimSpace(m.selection.Variant); variant != "" {
		if v, ok := m.selection.Manifest.Variants[variant]; ok && len(v.Assets.Files) > 0 {
			merged := make(map[string]string, len(files)+len(v.Assets.Files))
			for key, path := range files {
				merged[key] = path
			}
			for key, path := range v.Assets.Files {
				merged[key] = path
			}
			files = merged
		}
	}

	seen := map[string]struct{}{}
	var out []string
	for _, asset := range files {
		asset = strings.TrimPrefix(strings.TrimSpace(asset), "/")
		if asset == "" {
			continue
		}
		if _, ok := seen[asset]; ok {
			continue
		}
		seen[asset] = struct{}{}
		out = append(out, filepath.ToSlash(asset))
	}
	return out
}

// Open returns a reader for the named theme asset.
func (m *Manager) Open(asset string) (io.ReadCloser, error) {
	if !m.HasTheme() {
		return nil, fmt.Errorf("themes: no theme configured")
	}
	clean := filepath.Clean(strings.TrimPrefix(strings.TrimSpace(asset), "/"))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return nil, fmt.Errorf("themes: invalid asset path %q", asset)
	}
	file, err := os.Open(filepath.Join(m.dir, clean))
	if err != nil {
		return nil, fmt.Errorf("themes: open asset %s: %w", asset, err)
	}
	return file, nil
}
