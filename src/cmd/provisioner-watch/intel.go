package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"provisioner-watch/src/provider"
	"provisioner-watch/src/query"
)

var intelCmd = &cobra.Command{
	Use:   "intel",
	Short: "Inspect cohorts, machines and invocation reports of an organization",
}

var intelCohortsCmd = &cobra.Command{
	Use:   "cohorts",
	Short: "List the cohorts of an organization",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := cmd.Flags().GetString("org")
		cohorts, err := query.Fetch(cmd.Context(), cache, deploymentQueries.IntelCohorts(org))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(cohorts) == 0 {
			fmt.Fprintln(out, "No cohorts")
			return nil
		}
		for _, c := range cohorts {
			fmt.Fprintf(out, "%s  %s  tracks %s", c.ID, c.Name, strings.Join(c.TrackedExecutables, ", "))
			if len(c.MachineMetadata) > 0 {
				fmt.Fprintf(out, "  where %s", formatMatch(c.MachineMetadata))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var intelCohortCreateCmd = &cobra.Command{
	Use:   "create-cohort",
	Short: "Create a cohort of machines",
	Example: `  provisioner-watch intel create-cohort --org <org-id> --name go \
    --track go --track gopls --match os=^linux$`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := cmd.Flags().GetString("org")
		name, _ := cmd.Flags().GetString("name")
		icon, _ := cmd.Flags().GetString("icon")
		description, _ := cmd.Flags().GetString("description")
		tracked, _ := cmd.Flags().GetStringArray("track")
		match, err := matchFlag(cmd)
		if err != nil {
			return err
		}

		cohort, err := deploymentQueries.CreateIntelCohort(org, cache).Run(cmd.Context(), provider.CreateIntelCohortRequest{
			Name:               name,
			Icon:               icon,
			Description:        description,
			TrackedExecutables: tracked,
			MetadataMatch:      match,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Created cohort %s (%s)\n", cohort.Name, cohort.ID)
		return nil
	},
}

var intelMachinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "List machines whose metadata matches every --match pattern",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := cmd.Flags().GetString("org")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		match, err := matchFlag(cmd)
		if err != nil {
			return err
		}

		req := provider.IntelMachinesRequest{MetadataMatch: match, Limit: limit, Offset: offset}
		if err := req.MetadataMatch.Validate(); err != nil {
			return err
		}
		resp, err := query.Fetch(cmd.Context(), cache, deploymentQueries.IntelMachines(org, req))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, m := range resp.IntelMachines {
			fmt.Fprintf(out, "%s  %s  %s\n", m.ID, m.InstanceID, formatMatch(m.Metadata))
		}
		fmt.Fprintf(out, "%d of %d machines\n", len(resp.IntelMachines), resp.Count)
		return nil
	},
}

var intelReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize invocations of tracked executables",
	Long: `Print the invocation report of an organization. --refresh asks the server to
recompute the report before reading it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := cmd.Flags().GetString("org")
		since, _ := cmd.Flags().GetString("since")
		refresh, _ := cmd.Flags().GetBool("refresh")
		ctx := cmd.Context()

		var req provider.IntelReportRequest
		if since != "" {
			startsAt, err := time.Parse(time.DateOnly, since)
			if err != nil {
				return fmt.Errorf("invalid --since %q: want YYYY-MM-DD", since)
			}
			req.StartsAt = startsAt
		}

		if refresh {
			if _, err := deploymentQueries.RefreshIntelReport(org, cache).Run(ctx, struct{}{}); err != nil {
				return err
			}
		}
		report, err := query.Fetch(ctx, cache, deploymentQueries.IntelReport(org, req))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d invocations\n", report.Invocations)
		for _, interval := range report.Intervals {
			fmt.Fprintf(out, "  %s  %-16s %6d runs on %d machines, median %s\n",
				interval.StartsAt.Format(time.DateOnly), interval.BinaryName,
				interval.TotalInvocations, interval.UniqueMachines,
				time.Duration(interval.MedianDurationMS*float64(time.Millisecond)).Round(time.Millisecond))
		}
		return nil
	},
}

var entitlementsCmd = &cobra.Command{
	Use:   "entitlements",
	Short: "Show the license state of the deployment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")
		ctx := cmd.Context()

		if refresh {
			if _, err := deploymentQueries.RefreshEntitlements(cache).Run(ctx, struct{}{}); err != nil {
				return err
			}
		}
		entitlements, err := query.Fetch(ctx, cache, deploymentQueries.Entitlements())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		license := "no license"
		if entitlements.HasLicense {
			license = "licensed"
		}
		if entitlements.Trial {
			license += " (trial)"
		}
		fmt.Fprintf(out, "Deployment is %s\n", license)

		names := make([]string, 0, len(entitlements.Features))
		for name := range entitlements.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			f := entitlements.Features[name]
			line := fmt.Sprintf("  %-32s %s", name, f.Entitlement)
			if !f.Enabled {
				line += ", disabled"
			}
			if f.Limit != nil && f.Actual != nil {
				line += fmt.Sprintf(", %d of %d", *f.Actual, *f.Limit)
			}
			fmt.Fprintln(out, line)
		}
		for _, w := range entitlements.Warnings {
			fmt.Fprintf(out, "⚠️  %s\n", w)
		}
		for _, e := range entitlements.Errors {
			fmt.Fprintf(out, "❌ %s\n", e)
		}
		return nil
	},
}

// matchFlag parses --match key=regexp values. No --match matches every machine.
func matchFlag(cmd *cobra.Command) (provider.MetadataMatch, error) {
	values, _ := cmd.Flags().GetStringArray("match")
	if len(values) == 0 {
		return nil, nil
	}
	match := make(provider.MetadataMatch, len(values))
	for _, v := range values {
		key, pattern, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --match %q: want key=regexp", v)
		}
		match[key] = pattern
	}
	return match, nil
}

func formatMatch(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + metadata[k]
	}
	return strings.Join(parts, " ")
}

func init() {
	intelCmd.AddCommand(intelCohortsCmd)
	intelCmd.AddCommand(intelCohortCreateCmd)
	intelCmd.AddCommand(intelMachinesCmd)
	intelCmd.AddCommand(intelReportCmd)
	intelCmd.PersistentFlags().String("org", "", "Organization ID (default organization when empty)")

	intelCohortCreateCmd.Flags().String("name", "", "Cohort name")
	intelCohortCreateCmd.Flags().String("icon", "", "Cohort icon URL")
	intelCohortCreateCmd.Flags().String("description", "", "Cohort description")
	intelCohortCreateCmd.Flags().StringArray("track", nil, "Executable to track, repeatable")
	intelCohortCreateCmd.Flags().StringArray("match", nil, "Machine metadata key=regexp, repeatable")
	intelCohortCreateCmd.MarkFlagRequired("name")

	intelMachinesCmd.Flags().StringArray("match", nil, "Machine metadata key=regexp, repeatable")
	intelMachinesCmd.Flags().Int("limit", 50, "Maximum machines to list")
	intelMachinesCmd.Flags().Int("offset", 0, "Machines to skip")

	intelReportCmd.Flags().String("since", "", "Only count invocations since this date (YYYY-MM-DD)")
	intelReportCmd.Flags().Bool("refresh", false, "Recompute the report first")

	entitlementsCmd.Flags().Bool("refresh", false, "Re-read licenses first")
}
