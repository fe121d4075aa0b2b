package cmd

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/cobra"

	press "github.com/goliatone/go-press"
)

var (
	buildDrafts      bool
	buildFuture      bool
	buildIncremental bool
	buildClean       bool
	buildDryRun      bool
	buildSlugs       []string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site into the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if cmd.Flags().Changed("drafts") {
			cfg.Content.IncludeDrafts = buildDrafts
		}
		if cmd.Flags().Changed("future") {
			cfg.Content.IncludeFuture = buildFuture
		}
		if cmd.Flags().Changed("incremental") {
			cfg.Generator.Incremental = buildIncremental
			if buildIncremental {
				cfg.Generator.CleanBuild = false
			}
		}
		if cmd.Flags().Changed("clean") {
			cfg.Generator.CleanBuild = buildClean
		}

		module, err := press.New(cfg)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration").
				WithTextCode("CONFIG_INVALID")
		}

		result, err := module.Build(cmd.Context(), press.BuildOptions{
			Slugs:  buildSlugs,
			DryRun: buildDryRun,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryCommand, "build failed").
				WithTextCode("BUILD_FAILED")
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"Built %d pages (%d skipped, %d assets, %d feeds) from %d posts in %s\n",
			result.PagesBuilt, result.PagesSkipped, result.AssetsBuilt,
			result.FeedsBuilt, result.Posts, result.Duration.Round(timeRounding))
		for _, diag := range result.Skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", diag.Path, diag.Err)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildDrafts, "drafts", false, "include draft posts")
	buildCmd.Flags().BoolVar(&buildFuture, "future", false, "include future-dated posts")
	buildCmd.Flags().BoolVar(&buildIncremental, "incremental", false, "only rebuild changed pages")
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "remove the output directory first")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "render without writing files")
	buildCmd.Flags().StringSliceVar(&buildSlugs, "slug", nil, "limit post rendering to the given slugs")
	rootCmd.AddCommand(buildCmd)
}
