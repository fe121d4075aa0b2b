package runtimeconfig

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ErrSiteTitleRequired indicates the site cannot be rendered without a title.
var ErrSiteTitleRequired = errors.New("press config: site title is required")

// ErrContentDirRequired indicates the content directory setting is missing.
var ErrContentDirRequired = errors.New("press config: content directory is required")

// ErrOutputDirRequired indicates the generator output directory is missing.
var ErrOutputDirRequired = errors.New("press config: output directory is required")

var ErrLoggingProviderUnknown = errors.New("press config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("press config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("press config: logging format is invalid")

// Config aggregates site metadata and pipeline settings for the generator.
// Fields intentionally use simple types so host applications can extend them later.
type Config struct {
	Site      SiteConfig      `mapstructure:"site" yaml:"site"`
	Content   ContentConfig   `mapstructure:"content" yaml:"content"`
	Theme     ThemeConfig     `mapstructure:"theme" yaml:"theme"`
	Markdown  MarkdownConfig  `mapstructure:"markdown" yaml:"markdown"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// SiteConfig captures the static site-wide metadata surfaced to templates and feeds.
type SiteConfig struct {
	Title       string `mapstructure:"title" yaml:"title"`
	Description string `mapstructure:"description" yaml:"description"`
	Author      string `mapstructure:"author" yaml:"author"`
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
}

// ContentConfig controls post discovery.
type ContentConfig struct {
	Dir           string `mapstructure:"dir" yaml:"dir"`
	StaticDir     string `mapstructure:"static_dir" yaml:"static_dir"`
	Pattern       string `mapstructure:"pattern" yaml:"pattern"`
	Recursive     bool   `mapstructure:"recursive" yaml:"recursive"`
	IncludeDrafts bool   `mapstructure:"include_drafts" yaml:"include_drafts"`
	IncludeFuture bool   `mapstructure:"include_future" yaml:"include_future"`
}

// ThemeConfig selects the theme used for layout rendering.
type ThemeConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Path    string `mapstructure:"path" yaml:"path"`
	Variant string `mapstructure:"variant" yaml:"variant"`
}

// MarkdownConfig mirrors the parser options exposed per build.
type MarkdownConfig struct {
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
	HardWraps  bool     `mapstructure:"hard_wraps" yaml:"hard_wraps"`
	SafeMode   bool     `mapstructure:"safe_mode" yaml:"safe_mode"`
	Sanitize   bool     `mapstructure:"sanitize" yaml:"sanitize"`
}

// GeneratorConfig captures runtime behaviour toggles for the site build.
type GeneratorConfig struct {
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir"`
	CleanBuild      bool   `mapstructure:"clean_build" yaml:"clean_build"`
	Incremental     bool   `mapstructure:"incremental" yaml:"incremental"`
	GenerateSitemap bool   `mapstructure:"sitemap" yaml:"sitemap"`
	GenerateRobots  bool   `mapstructure:"robots" yaml:"robots"`
	GenerateFeeds   bool   `mapstructure:"feeds" yaml:"feeds"`
	FeedLimit       int    `mapstructure:"feed_limit" yaml:"feed_limit"`
	Workers         int    `mapstructure:"workers" yaml:"workers"`
}

// ServerConfig tunes the local dev server started by `press serve`.
type ServerConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Watch    bool          `mapstructure:"watch" yaml:"watch"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `mapstructure:"provider" yaml:"provider"`
	Level     string   `mapstructure:"level" yaml:"level"`
	Format    string   `mapstructure:"format" yaml:"format"`
	AddSource bool     `mapstructure:"add_source" yaml:"add_source"`
	Focus     []string `mapstructure:"focus" yaml:"focus"`
}

// DefaultConfig returns the conventional directory layout and feature toggles.
func DefaultConfig() Config {
	return Config{
		Site: SiteConfig{
			Title: "A Developer Blog",
		},
		Content: ContentConfig{
			Dir:       "content",
			StaticDir: "static",
			Pattern:   "*.md",
		},
		Theme: ThemeConfig{
			Name: "default",
			Path: "themes/default",
		},
		Markdown: MarkdownConfig{
			Extensions: []string{"gfm", "linkify", "tasklist"},
		},
		Generator: GeneratorConfig{
			OutputDir:       "public",
			CleanBuild:      true,
			GenerateSitemap: true,
			GenerateRobots:  true,
			GenerateFeeds:   true,
			FeedLimit:       20,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			Watch:    true,
			Debounce: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
			Format:   "console",
		},
	}
}

// Validate checks cross-field consistency before the pipeline is wired up.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c.Site,
		validation.Field(&c.Site.Title, validation.Required.ErrorObject(
			validation.NewError("press.config.site_title_required", ErrSiteTitleRequired.Error()))),
		validation.Field(&c.Site.BaseURL, is.URL),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Content,
		validation.Field(&c.Content.Dir, validation.Required.ErrorObject(
			validation.NewError("press.config.content_dir_required", ErrContentDirRequired.Error()))),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Generator,
		validation.Field(&c.Generator.OutputDir, validation.Required.ErrorObject(
			validation.NewError("press.config.output_dir_required", ErrOutputDirRequired.Error()))),
		validation.Field(&c.Generator.FeedLimit, validation.Min(0)),
		validation.Field(&c.Generator.Workers, validation.Min(0)),
	); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Provider)) {
	case "", "console", "gologger", "noop":
	default:
		return ErrLoggingProviderUnknown
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return ErrLoggingLevelInvalid
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json", "pretty":
	default:
		return ErrLoggingFormatInvalid
	}
	return nil
}
