// Package press turns a directory of Markdown posts into a static blog:
// permalink pages, a chronological index, tag archives, feeds, and a sitemap.
package press

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-press/internal/content"
	"github.com/goliatone/go-press/internal/generator"
	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/internal/logging/console"
	"github.com/goliatone/go-press/internal/logging/gologger"
	"github.com/goliatone/go-press/internal/markdown"
	"github.com/goliatone/go-press/internal/render"
	"github.com/goliatone/go-press/internal/themes"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// GeneratorService is the build contract exposed by the module.
type GeneratorService = generator.Service

// BuildOptions narrows the scope of a single build run.
type BuildOptions = generator.BuildOptions

// BuildResult reports aggregated build metadata.
type BuildResult = generator.BuildResult

// Module wires the content source, Markdown parser, theme, renderer and
// generator into a working pipeline.
type Module struct {
	cfg       Config
	provider  interfaces.LoggerProvider
	source    *content.Source
	parser    *markdown.GoldmarkParser
	themes    *themes.Manager
	renderer  *render.HTMLRenderer
	generator generator.Service
}

// New validates the configuration and assembles the pipeline. The content
// directory must exist; a missing theme directory falls back to the embedded
// templates.
func New(cfg Config) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := newLoggerProvider(cfg.Logging)
	if err != nil {
		return nil, err
	}

	source, err := content.NewSource(content.SourceConfig{
		BasePath:  cfg.Content.Dir,
		Pattern:   cfg.Content.Pattern,
		Recursive: cfg.Content.Recursive,
		Logger:    logging.ContentLogger(provider),
	})
	if err != nil {
		return nil, err
	}

	parser := markdown.NewGoldmarkParser(interfaces.ParseOptions{
		Extensions: cfg.Markdown.Extensions,
		Sanitize:   cfg.Markdown.Sanitize,
		HardWraps:  cfg.Markdown.HardWraps,
		SafeMode:   cfg.Markdown.SafeMode,
	})

	themeManager, err := themes.NewManager(themes.Config{
		Name:    cfg.Theme.Name,
		Path:    cfg.Theme.Path,
		Variant: cfg.Theme.Variant,
	})
	if err != nil {
		return nil, fmt.Errorf("press: load theme: %w", err)
	}

	templatesDir := ""
	if themeManager.HasTheme() {
		templatesDir = themeManager.TemplatesDir()
	}
	renderer, err := render.New(render.Config{TemplatesDir: templatesDir})
	if err != nil {
		return nil, fmt.Errorf("press: load templates: %w", err)
	}

	svc := generator.NewService(generator.Config{
		OutputDir:       cfg.Generator.OutputDir,
		BaseURL:         cfg.Site.BaseURL,
		SiteTitle:       cfg.Site.Title,
		SiteDescription: cfg.Site.Description,
		SiteAuthor:      cfg.Site.Author,
		StaticDir:       cfg.Content.StaticDir,
		CleanBuild:      cfg.Generator.CleanBuild,
		Incremental:     cfg.Generator.Incremental,
		GenerateSitemap: cfg.Generator.GenerateSitemap,
		GenerateRobots:  cfg.Generator.GenerateRobots,
		GenerateFeeds:   cfg.Generator.GenerateFeeds,
		FeedLimit:       cfg.Generator.FeedLimit,
		Workers:         cfg.Generator.Workers,
		IncludeDrafts:   cfg.Content.IncludeDrafts,
		IncludeFuture:   cfg.Content.IncludeFuture,
	}, generator.Dependencies{
		Source:   source,
		Parser:   parser,
		Renderer: renderer,
		Themes:   themeManager,
		Logger:   logging.GeneratorLogger(provider),
	})

	return &Module{
		cfg:       cfg,
		provider:  provider,
		source:    source,
		parser:    parser,
		themes:    themeManager,
		renderer:  renderer,
		generator: svc,
	}, nil
}

// Build runs a full site build.
func (m *Module) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	return m.generator.Build(ctx, opts)
}

// Generator exposes the underlying build service.
func (m *Module) Generator() GeneratorService {
	return m.generator
}

// Logger returns a module logger from the configured provider.
func (m *Module) Logger(name string) interfaces.Logger {
	return logging.ModuleLogger(m.provider, name)
}

// Config returns the effective configuration.
func (m *Module) Config() Config {
	return m.cfg
}

func newLoggerProvider(cfg LoggingConfig) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gologger":
		return gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
	case "noop":
		return noopProvider{}, nil
	default:
		return console.NewProvider(console.Options{
			MinLevel: console.ParseLevel(cfg.Level),
		}), nil
	}
}

type noopProvider struct{}

func (noopProvider) GetLogger(string) interfaces.Logger {
	return logging.NoOp()
}
