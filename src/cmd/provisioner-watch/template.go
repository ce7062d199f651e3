package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"provisioner-watch/src/pipeline"
	"provisioner-watch/src/provider"
	"provisioner-watch/src/query"
	"provisioner-watch/src/templates"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Create templates",
}

var templateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a template from a new version",
	Long: `Create a template version, wait for its build to succeed, then create the
template with that version active. Nothing is created when the build fails.

Example:
  provisioner-watch template create --org <org-id> --name docker --file ./docker`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := cmd.Flags().GetString("org")
		name, _ := cmd.Flags().GetString("name")
		displayName, _ := cmd.Flags().GetString("display-name")
		description, _ := cmd.Flags().GetString("description")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fileID, err := resolveFileID(ctx, cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		progress := newProgressPrinter(out, time.Now)
		watcher, err := pipeline.New(ctx, appConfig, apiClient, newLogger(false))
		if err != nil {
			return err
		}
		defer watcher.Close()

		var watch pipeline.Result
		recorder := watcher.Recorder(func(r pipeline.Result) { watch = r })

		template, err := queries.CreateTemplate(recorder).Run(ctx, templates.CreateTemplateOptions{
			OrganizationID: org,
			Version:        provider.CreateTemplateVersionRequest{FileID: fileID},
			Template: provider.CreateTemplateRequest{
				Name:        name,
				DisplayName: displayName,
				Description: description,
			},
			OnCreateVersion: func(v provider.TemplateVersion) {
				fmt.Fprintf(out, "Created template version %s, waiting for its build\n", v.ID)
			},
			OnTemplateVersionChanges: progress.observe,
		})
		if watch.WatchID != "" {
			fmt.Fprintf(out, "Watch ID: %s\n", watch.WatchID)
		}
		if err != nil {
			return err
		}

		cache.Invalidate(query.Key{org, "templates"})
		fmt.Fprintf(out, "✅ Created template %s (%s)\n", template.Name, template.ID)
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:     "activate [template-name] [version-id]",
	Short:   "Make a template version the template's active version",
	Example: `  provisioner-watch activate --org <org-id> docker 4a2b7c1e-...`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := cmd.Flags().GetString("org")
		ctx := cmd.Context()

		template, err := query.Fetch(ctx, cache, queries.TemplateByName(org, args[0]))
		if err != nil {
			return err
		}
		if template.ActiveVersionID == args[1] {
			fmt.Fprintf(cmd.OutOrStdout(), "Template %s already uses version %s\n", template.Name, args[1])
			return nil
		}

		if _, err := queries.UpdateActiveTemplateVersion(template, cache).Run(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template %s now uses version %s\n", template.Name, args[1])
		return nil
	},
}

func init() {
	templateCmd.AddCommand(templateCreateCmd)

	templateCreateCmd.Flags().String("org", "", "Organization ID")
	templateCreateCmd.Flags().String("name", "", "Template name")
	templateCreateCmd.Flags().String("display-name", "", "Human readable template name")
	templateCreateCmd.Flags().String("description", "", "Template description")
	templateCreateCmd.MarkFlagRequired("org")
	templateCreateCmd.MarkFlagRequired("name")
	addSourceFlags(templateCreateCmd)

	activateCmd.Flags().String("org", "", "Organization ID")
	activateCmd.MarkFlagRequired("org")
}
