package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"provisioner-watch/src/contracts"
	"provisioner-watch/src/pipeline"
	"provisioner-watch/src/provider"
	"provisioner-watch/src/query"
	"provisioner-watch/src/templates"
	"provisioner-watch/src/tui"
)

// waitCmd waits for an existing template version
var waitCmd = &cobra.Command{
	Use:   "wait [version-id]",
	Short: "Wait for a template version build to finish",
	Long: `Poll a template version until its provisioner job finishes.

Exits 0 when the build succeeded and 1 when it failed or was canceled.

Example:
  provisioner-watch wait 4a2b7c1e-... --tui`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		useTUI, _ := cmd.Flags().GetBool("tui")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		version, err := query.Fetch(ctx, cache, queries.TemplateVersion(args[0]))
		if err != nil {
			return err
		}

		return watchVersion(ctx, cmd.OutOrStdout(), version, useTUI)
	},
}

// followGrace bounds how long the build view waits for the final status event.
const followGrace = 2 * time.Second

// watchVersion waits for version with a watcher for the configured mode, showing
// progress in the TUI or as one line per status change.
func watchVersion(ctx context.Context, out io.Writer, version provider.TemplateVersion, useTUI bool) error {
	log := newLogger(useTUI)

	watcher, err := pipeline.New(ctx, appConfig, apiClient, log)
	if err != nil {
		return err
	}
	defer watcher.Close()
	log.Debug("watching %s in %s mode", version.ID, watcher.Mode())

	var result pipeline.Result
	if useTUI {
		// Run returns as soon as the user quits, with the watch still running
		results := make(chan pipeline.Result, 1)
		err = tui.Run(ctx, tui.NewBuildModel(version), func(ctx context.Context, send func(tea.Msg)) error {
			followCtx, stopFollow := context.WithCancel(ctx)
			defer stopFollow()
			events, err := pipeline.Follow(followCtx, watcher.Broker(), "tui-"+uuid.NewString(), version.ID, log)
			if err != nil {
				results <- pipeline.Result{}
				return err
			}
			fed := make(chan struct{})
			go func() {
				defer close(fed)
				feedBuildModel(followCtx, events, send)
			}()

			res, werr := watcher.Watch(ctx, version, nil)
			// watchVersion receives this before closing the watcher
			defer func() { results <- res }()

			// Let the last status reach the view before the summary. A watch that
			// stopped early publishes no terminal event.
			select {
			case <-fed:
			case <-time.After(followGrace):
			}
			stopFollow()
			<-fed
			return werr
		})
		result = <-results
	} else {
		progress := newProgressPrinter(out, time.Now)
		result, err = watcher.Watch(ctx, version, progress.observe)
	}

	// Any cached copy of the version predates the build
	cache.Invalidate(templates.TemplateVersionKey(version.ID))

	if err != nil {
		if result.WatchID != "" {
			fmt.Fprintf(out, "Watch ID: %s\n", result.WatchID)
		}
		return err
	}

	if !useTUI {
		fmt.Fprintf(out, "✅ Template version %s built successfully\n", displayName(result.Final))
	}
	fmt.Fprintf(out, "Watch ID: %s\n", result.WatchID)
	return nil
}

// feedBuildModel forwards followed status events to the build view with the job
// logs observed so far. Logs of a job still in the queue are empty.
func feedBuildModel(ctx context.Context, events <-chan contracts.VersionEvent, send func(tea.Msg)) {
	for event := range events {
		send(tui.VersionMsg{Version: pipeline.EventVersion(event)})
		if event.Status == string(provider.ProvisionerJobPending) {
			continue
		}
		if logs, err := apiClient.GetTemplateVersionLogs(ctx, event.VersionID); err == nil {
			send(tui.LogMsg{Logs: logs})
		}
	}
}

// progressPrinter prints a line whenever the job status or queue position changes.
type progressPrinter struct {
	out      io.Writer
	now      func() time.Time
	started  time.Time
	status   provider.ProvisionerJobStatus
	position int
}

func newProgressPrinter(out io.Writer, now func() time.Time) *progressPrinter {
	return &progressPrinter{out: out, now: now, started: now()}
}

func (p *progressPrinter) observe(v provider.TemplateVersion) {
	job := v.Job
	if job.Status == p.status && job.QueuePosition == p.position {
		return
	}
	p.status = job.Status
	p.position = job.QueuePosition

	elapsed := p.now().Sub(p.started).Round(time.Second)
	line := fmt.Sprintf("[%6s] %s", elapsed, job.Status)
	if job.Status == provider.ProvisionerJobPending && job.QueuePosition > 0 {
		line += fmt.Sprintf(" (queue position %d)", job.QueuePosition)
	}
	if job.Error != "" {
		line += ": " + job.Error
	}
	fmt.Fprintln(p.out, line)
}

func displayName(v provider.TemplateVersion) string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}

func init() {
	waitCmd.Flags().Bool("tui", false, "Show progress in an interactive terminal view")
}
