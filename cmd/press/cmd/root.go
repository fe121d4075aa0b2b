package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	press "github.com/goliatone/go-press"
)

var (
	cfgFile   string
	outputDir string
	baseURL   string
	appConfig press.Config
)

var rootCmd = &cobra.Command{
	Use:   "press",
	Short: "A static blog generator for Markdown posts",
	Long: `press turns a directory of Markdown posts into a static blog.

Posts follow the YYYY-MM-DD-slug.md filename convention with a YAML front
matter block. The build produces permalink pages, a chronological index,
tag archives, RSS and Atom feeds, a sitemap, and robots.txt.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig()
	},
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./press.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "output directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "site base URL (overrides config)")
}

func initializeConfig() error {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("press")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PRESS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case cfgFile != "":
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		case errors.As(err, &notFound):
			// No config file is fine; defaults and environment apply.
		default:
			return fmt.Errorf("read config: %w", err)
		}
	}

	appConfig = press.DefaultConfig()
	if err := v.Unmarshal(&appConfig); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if outputDir != "" {
		appConfig.Generator.OutputDir = outputDir
	}
	if baseURL != "" {
		appConfig.Site.BaseURL = baseURL
	}
	return nil
}
