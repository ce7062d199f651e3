package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"provisioner-watch/src/broker"
	"provisioner-watch/src/contracts"
	"provisioner-watch/src/logger"
	"provisioner-watch/src/pipeline"
	"provisioner-watch/src/provider"
	"provisioner-watch/src/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Inspect recorded watches and follow status events",
}

var watchStatusCmd = &cobra.Command{
	Use:   "status [watch-id]",
	Short: "Show a watch and its observations from Postgres",
	Long: `Read a watch recorded in distributed mode and list every observation made
while it ran. Requires POSTGRES_DSN.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.PostgresDSN == "" {
			return fmt.Errorf("watch status requires POSTGRES_DSN: local mode keeps no history between runs")
		}

		st, err := store.NewPostgresStore(appConfig.PostgresDSN)
		if err != nil {
			return err
		}
		defer st.Close()

		return printWatch(cmd, st, args[0])
	},
}

var watchFollowCmd = &cobra.Command{
	Use:   "follow [version-id]",
	Short: "Print status events of a template version published by other watchers",
	Long: `Consume provisioner.templateversion.status from Redpanda and print every
event of the version until its build finishes. Another provisioner-watch
process must be watching the version in distributed mode. Requires
REDPANDA_BROKERS.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(appConfig.RedpandaBrokers) == 0 {
			return fmt.Errorf("watch follow requires REDPANDA_BROKERS: local watchers publish in process only")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		log := newLogger(false)
		b, err := broker.NewRedpandaBroker(appConfig.RedpandaBrokers, log)
		if err != nil {
			return err
		}
		defer b.Close()

		return followEvents(ctx, cmd.OutOrStdout(), b, "follow-"+uuid.NewString(), args[0], log)
	},
}

// followEvents prints the status events of versionID until a terminal one,
// failing unless the build succeeded.
func followEvents(ctx context.Context, out io.Writer, b broker.Broker, groupID, versionID string, log logger.Logger) error {
	events, err := pipeline.Follow(ctx, b, groupID, versionID, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Following %s, waiting for events\n", versionID)

	var last contracts.VersionEvent
	for event := range events {
		last = event
		line := fmt.Sprintf("%s  %s", event.ObservedAt.Format("15:04:05.000"), event.Status)
		if event.Status == string(provider.ProvisionerJobPending) && event.QueuePosition > 0 {
			line += fmt.Sprintf(" (queue position %d)", event.QueuePosition)
		}
		if event.Error != "" {
			line += ": " + event.Error
		}
		fmt.Fprintf(out, "%s  [watch %s]\n", line, event.WatchID)
	}

	switch {
	case last.Status == "" || !last.Terminal():
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("event stream for %s ended before the build finished", versionID)
	case last.Status != string(provider.ProvisionerJobSucceeded):
		v := pipeline.EventVersion(last)
		return &provider.JobError{Job: v.Job, Version: v}
	}
	return nil
}

func printWatch(cmd *cobra.Command, st store.Store, watchID string) error {
	ctx := cmd.Context()
	watch, err := st.GetWatch(ctx, watchID)
	if err != nil {
		return err
	}
	observations, err := st.ListObservations(ctx, watchID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watch:    %s\n", watch.WatchID)
	fmt.Fprintf(out, "Version:  %s\n", watch.VersionID)
	fmt.Fprintf(out, "Status:   %s\n", watch.Status)
	fmt.Fprintf(out, "Started:  %s\n", watch.CreatedAt.Format(time.RFC3339))
	if watch.CompletedAt != nil {
		fmt.Fprintf(out, "Finished: %s (%s)\n", watch.CompletedAt.Format(time.RFC3339), watch.CompletedAt.Sub(watch.CreatedAt).Round(time.Second))
	}

	fmt.Fprintf(out, "\n%d observations\n", len(observations))
	for _, obs := range observations {
		line := fmt.Sprintf("  %s  %s", obs.ObservedAt.Format("15:04:05.000"), obs.Status)
		if obs.Error != "" {
			line += ": " + obs.Error
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func init() {
	watchCmd.AddCommand(watchStatusCmd)
	watchCmd.AddCommand(watchFollowCmd)
}
