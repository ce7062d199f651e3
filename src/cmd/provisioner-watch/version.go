package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"provisioner-watch/src/provider"
	"provisioner-watch/src/query"
	"provisioner-watch/src/sanitize"
	"provisioner-watch/src/templates"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Create template versions and read their build logs",
}

var versionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a template version",
	Long: `Create a template version from an uploaded file or a local directory.

--file uploads the directory (or tar archive) first. With --wait the command
follows the build until it finishes.

Example:
  provisioner-watch version create --org <org-id> --file ./docker --wait`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := cmd.Flags().GetString("org")
		templateID, _ := cmd.Flags().GetString("template")
		name, _ := cmd.Flags().GetString("name")
		message, _ := cmd.Flags().GetString("message")
		wait, _ := cmd.Flags().GetBool("wait")
		useTUI, _ := cmd.Flags().GetBool("tui")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fileID, err := resolveFileID(ctx, cmd)
		if err != nil {
			return err
		}

		version, err := queries.CreateTemplateVersion(org).Run(ctx, provider.CreateTemplateVersionRequest{
			TemplateID: templateID,
			Name:       name,
			Message:    message,
			FileID:     fileID,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created template version %s (%s)\n", displayName(version), version.ID)
		for _, warning := range version.Warnings {
			fmt.Fprintf(out, "⚠️  %s\n", warning)
		}

		if !wait && !useTUI {
			return nil
		}
		return watchVersion(ctx, out, version, useTUI)
	},
}

var versionLogsCmd = &cobra.Command{
	Use:   "logs [version-id]",
	Short: "Print the provisioner logs of a template version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logs, err := query.Fetch(cmd.Context(), cache, queries.TemplateVersionLogs(args[0]))
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No logs yet.")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), sanitize.FormatLogs(logs))
		return nil
	},
}

// resolveFileID returns --file-id, or uploads --file and returns the new file's ID.
func resolveFileID(ctx context.Context, cmd *cobra.Command) (string, error) {
	fileID, _ := cmd.Flags().GetString("file-id")
	path, _ := cmd.Flags().GetString("file")

	switch {
	case fileID != "" && path != "":
		return "", fmt.Errorf("--file-id and --file are mutually exclusive")
	case fileID != "":
		return fileID, nil
	case path == "":
		return "", fmt.Errorf("one of --file-id or --file is required")
	}

	tarball, err := readTemplateSource(path)
	if err != nil {
		return "", err
	}
	upload, err := queries.UploadFile().Run(ctx, tarball)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%d bytes) as file %s\n", path, len(tarball), upload.ID)
	return upload.ID, nil
}

// readTemplateSource archives a directory, or reads a tar file as is.
func readTemplateSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return templates.CreateTarball(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Rejects anything that is not a readable tar before uploading it
	if _, err := templates.ExtractFiles(data); err != nil {
		return nil, err
	}
	return data, nil
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("file-id", "", "ID of an already uploaded template source archive")
	cmd.Flags().StringP("file", "f", "", "Template directory or tar archive to upload")
}

func init() {
	versionCmd.AddCommand(versionCreateCmd)
	versionCmd.AddCommand(versionLogsCmd)

	versionCreateCmd.Flags().String("org", "", "Organization ID")
	versionCreateCmd.Flags().String("template", "", "Template ID the version belongs to")
	versionCreateCmd.Flags().String("name", "", "Version name (generated when empty)")
	versionCreateCmd.Flags().String("message", "", "Version message")
	versionCreateCmd.Flags().BoolP("wait", "w", false, "Wait for the build to finish")
	versionCreateCmd.Flags().Bool("tui", false, "Wait in an interactive terminal view")
	versionCreateCmd.MarkFlagRequired("org")
	addSourceFlags(versionCreateCmd)
}
