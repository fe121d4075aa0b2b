// Package server hosts the local preview server used during writing. It
// serves the generated output directory and rebuilds the site when content,
// theme, or static files change.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/goliatone/go-press/internal/generator"
	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/pkg/interfaces"
)

const defaultDebounce = 500 * time.Millisecond

// Config tunes the preview server.
type Config struct {
	Addr      string
	OutputDir string
	// WatchDirs are rebuilt-on-change roots; missing directories are ignored.
	WatchDirs []string
	Watch     bool
	Debounce  time.Duration
}

// Builder runs a site build; the preview server triggers it on file changes.
type Builder interface {
	Build(ctx context.Context, opts generator.BuildOptions) (*generator.BuildResult, error)
}

// Server is the development HTTP server plus optional rebuild watcher.
type Server struct {
	cfg     Config
	builder Builder
	logger  interfaces.Logger

	mu       sync.Mutex
	building bool
}

// New prepares a preview server. The output directory does not need to exist
// yet; the initial build in Run creates it.
func New(cfg Config, builder Builder, logger interfaces.Logger) (*Server, error) {
	if builder == nil {
		return nil, errors.New("server: builder is required")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, errors.New("server: output directory is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Server{cfg: cfg, builder: builder, logger: logger}, nil
}

// Run performs an initial build, then serves the output directory until the
// context is cancelled. With watching enabled, changes under the watch roots
// trigger a debounced rebuild.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.logger.Info("initial build")
	if _, err := s.builder.Build(ctx, generator.BuildOptions{}); err != nil {
		return fmt.Errorf("server: initial build: %w", err)
	}

	var watcher *fsnotify.Watcher
	if s.cfg.Watch {
		var err error
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("server: create watcher: %w", err)
		}
		defer watcher.Close()
		s.addWatchDirs(watcher)
		go s.watchLoop(ctx, watcher)
	}

	httpServer := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preview server listening", "addr", s.cfg.Addr, "dir", s.cfg.OutputDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server: listen on %s: %w", s.cfg.Addr, err)
	}
}

// handler serves the generated files with caching disabled so edits show up
// on refresh. Directory requests without an index.html return 404 instead of
// a listing.
func (s *Server) handler() http.Handler {
	fileServer := http.FileServer(http.Dir(s.cfg.OutputDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") && r.URL.Path != "/" {
			index := filepath.Join(s.cfg.OutputDir, filepath.FromSlash(r.URL.Path), "index.html")
			if _, err := os.Stat(index); os.IsNotExist(err) {
				http.NotFound(w, r)
				return
			}
		}
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		fileServer.ServeHTTP(w, r)
	})
}

func (s *Server) addWatchDirs(watcher *fsnotify.Watcher) {
	for _, root := range s.cfg.WatchDirs {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			s.logger.Debug("skipping missing watch dir", "dir", root)
			continue
		}
		err := filepath.WalkDir(root, func(entryPath string, entry os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if entry.IsDir() {
				if watchErr := watcher.Add(entryPath); watchErr != nil {
					s.logger.Warn("failed to watch directory", "dir", entryPath, "error", watchErr)
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Warn("failed to walk watch dir", "dir", root, "error", err)
		}
		s.logger.Info("watching for changes", "dir", root)
	}
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())

			// New subdirectories are not watched automatically.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						s.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
				}
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.cfg.Debounce, func() {
				s.rebuild(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

func (s *Server) rebuild(ctx context.Context) {
	s.mu.Lock()
	if s.building {
		s.mu.Unlock()
		return
	}
	s.building = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.building = false
		s.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return
	}
	s.logger.Info("rebuilding site")
	result, err := s.builder.Build(ctx, generator.BuildOptions{})
	if err != nil {
		s.logger.Error("rebuild failed", "error", err)
		return
	}
	s.logger.Info("rebuild finished",
		"pages_built", result.PagesBuilt,
		"pages_skipped", result.PagesSkipped,
		"duration", result.Duration,
	)
}
