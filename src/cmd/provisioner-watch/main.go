// Package main provides the provisioner-watch CLI: it creates Coder template
// versions and follows their provisioner jobs until the build finishes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"provisioner-watch/src/coder"
	"provisioner-watch/src/config"
	"provisioner-watch/src/deployment"
	"provisioner-watch/src/logger"
	"provisioner-watch/src/provider"
	"provisioner-watch/src/query"
	"provisioner-watch/src/templates"
)

var (
	// Application configuration
	appConfig *config.Config
	// Coder API shared by all commands
	apiClient provider.API
	// Result cache shared by queries of one invocation
	cache             *query.Cache
	queries           *templates.Queries
	deploymentQueries *deployment.Queries
	verbose           bool

	// newAPI is replaced in tests.
	newAPI = func(cfg *config.Config) (provider.API, error) {
		return coder.NewClient(cfg.CoderURL, cfg.SessionToken)
	}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "provisioner-watch",
	Short: "Create Coder template versions and wait for their builds",
	Long: `provisioner-watch creates Coder template versions and templates and
follows the provisioner job of each version until its build finishes.

Polling backs off from 250ms while a job is queued to 1s once it runs.
Every observation is published and recorded:
- Local mode: in-process broker and store (default)
- Distributed mode: Redpanda and Postgres, when REDPANDA_BROKERS and POSTGRES_DSN are set

Configuration comes from CODER_URL and CODER_SESSION_TOKEN, optionally from
a YAML file named by PROVISIONER_WATCH_CONFIG.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appConfig, err = config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		apiClient, err = newAPI(appConfig)
		if err != nil {
			return err
		}

		cache, err = query.NewCache(appConfig.CacheSize)
		if err != nil {
			return err
		}
		queries = templates.New(apiClient)
		deploymentQueries = deployment.New(apiClient)
		return nil
	},
}

// newLogger returns a console logger, or a silent one while the TUI owns the terminal.
func newLogger(tuiMode bool) logger.Logger {
	if tuiMode {
		return logger.NewSilentLogger()
	}
	return logger.NewConsoleLogger(verbose)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every poll")

	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(intelCmd)
	rootCmd.AddCommand(entitlementsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, provider.WrapError(err))
		os.Exit(1)
	}
}
