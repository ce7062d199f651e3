package main

import (
	"github.com/spf13/cobra"

	"provisioner-watch/src/logger"
	"provisioner-watch/src/mcp"
	"provisioner-watch/src/pipeline"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve template version tools over MCP stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout with the tools
get_template_version, wait_template_version, template_version_logs and
create_template.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol
		log := logger.NewStderrLogger()

		watcher, err := pipeline.New(cmd.Context(), appConfig, apiClient, log)
		if err != nil {
			return err
		}
		defer watcher.Close()

		return mcp.NewServer(apiClient, watcher, cache).Run()
	},
}
