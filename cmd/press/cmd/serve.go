package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/cobra"

	press "github.com/goliatone/go-press"
	"github.com/goliatone/go-press/internal/server"
)

const timeRounding = time.Millisecond

var (
	serveAddr    string
	serveNoWatch bool
	serveDrafts  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the site and serve it locally, rebuilding on changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		if serveNoWatch {
			cfg.Server.Watch = false
		}
		if cmd.Flags().Changed("drafts") {
			cfg.Content.IncludeDrafts = serveDrafts
		}

		module, err := press.New(cfg)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration").
				WithTextCode("CONFIG_INVALID")
		}

		srv, err := server.New(server.Config{
			Addr:      cfg.Server.Addr,
			OutputDir: cfg.Generator.OutputDir,
			WatchDirs: []string{cfg.Content.Dir, cfg.Content.StaticDir, cfg.Theme.Path},
			Watch:     cfg.Server.Watch,
			Debounce:  cfg.Server.Debounce,
		}, module, module.Logger("press.server"))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryCommand, "server setup failed").
				WithTextCode("SERVE_SETUP_FAILED")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return goerrors.Wrap(err, goerrors.CategoryCommand, "server failed").
				WithTextCode("SERVE_FAILED")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "disable rebuild on file changes")
	serveCmd.Flags().BoolVar(&serveDrafts, "drafts", false, "include draft posts")
	rootCmd.AddCommand(serveCmd)
}
