package cmd

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/cobra"

	press "github.com/goliatone/go-press"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the generated output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		module, err := press.New(appConfig)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration").
				WithTextCode("CONFIG_INVALID")
		}
		if err := module.Generator().Clean(cmd.Context()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryCommand, "clean failed").
				WithTextCode("CLEAN_FAILED")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", appConfig.Generator.OutputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
