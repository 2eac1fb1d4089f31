package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kris-hansen/versecraft/utils/config"
	"github.com/spf13/cobra"
)

// version is a placeholder for the version string, which will be set at build time.
var version string

var verbose bool
var debug bool
var configPath string

// cfg holds the loaded configuration, available to all commands
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "versecraft",
	Short: "A head agent that turns one requirement into a reviewed poem, translation and image prompt",
	Long: `Versecraft sends one natural-language requirement through a team of LLM agents.

A head agent on a reasoning model splits the requirement into instructions.
Worker agents then search, write a Chinese poem, describe an image for it and
translate the poem into English. The head agent reviews the combined result.

Getting Started:
  1. export DEEPSEEK_API_KEY=...     (or put it in .env)
  2. versecraft run "我想生成一首关于春天的诗"

Configuration is read from ./versecraft.yaml or ~/.versecraft/config.yaml`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitLogger(verbose, debug); err != nil {
			return fmt.Errorf("error initializing logger: %w", err)
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		config.Logger().Debugw("Configuration loaded",
			"head", cfg.Head.Model,
			"routing", cfg.PlanRouting,
			"parallel", cfg.Parallel)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./versecraft.yaml or ~/.versecraft/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

// getVersion returns the version string.
// Priority: build-time ldflags > VERSION file (for development)
func getVersion() string {
	if version != "" {
		return version
	}

	// For local development: try to read VERSION file from project root
	_, filename, _, ok := runtime.Caller(0)
	if ok {
		projectRoot := filepath.Dir(filepath.Dir(filename))
		content, err := os.ReadFile(filepath.Join(projectRoot, "VERSION"))
		if err == nil {
			return "v" + strings.TrimSpace(string(content)) + "-dev"
		}
	}

	return "unknown (build with: go build -ldflags \"-X 'github.com/kris-hansen/versecraft/cmd.version=vX.Y.Z'\")"
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the current Versecraft version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Versecraft version: %s\n", getVersion())
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	defer config.SyncLogger()

	// Ctrl-C cancels in-flight model calls
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		config.SyncLogger()
		os.Exit(1)
	}
}
