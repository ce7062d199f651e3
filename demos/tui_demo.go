// Demo program that drives the build view through a simulated template version build.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"provisioner-watch/src/provider"
	"provisioner-watch/src/tui"
)

var demoLogs = []provider.ProvisionerJobLog{
	{Stage: "Setting up", Level: "info", Output: "Initializing the backend..."},
	{Stage: "Setting up", Level: "info", Output: "\x1b[32mTerraform has been successfully initialized!\x1b[0m"},
	{Stage: "Parsing template parameters", Level: "info", Output: "Reading 3 variables"},
	{Stage: "Detecting persistent resources", Level: "info", Output: "docker_volume.home_volume: Refreshing state..."},
	{Stage: "Detecting ephemeral resources", Level: "info", Output: "coder_agent.main: Plan to create"},
	{Stage: "Detecting ephemeral resources", Level: "info", Output: "docker_container.workspace[0]: Plan to create"},
	{Stage: "Cleaning Up", Level: "info", Output: "\x1b[1mPlan:\x1b[0m 2 to add, 0 to change, 0 to destroy."},
}

func main() {
	version := provider.TemplateVersion{ID: "c6f1b1a4-demo", Name: "vigilant-hopper"}
	version.Job.Status = provider.ProvisionerJobPending
	version.Job.QueuePosition = 3

	err := tui.Run(context.Background(), tui.NewBuildModel(version), func(ctx context.Context, send func(tea.Msg)) error {
		return simulate(ctx, version, send)
	}, tea.WithAltScreen())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build finished with error: %v\n", err)
		os.Exit(1)
	}
}

// simulate walks the job through the queue, then streams logs until it succeeds.
func simulate(ctx context.Context, version provider.TemplateVersion, send func(tea.Msg)) error {
	tick := func(d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}

	for version.Job.QueuePosition > 0 {
		send(tui.VersionMsg{Version: version})
		if err := tick(700 * time.Millisecond); err != nil {
			return err
		}
		version.Job.QueuePosition--
	}

	version.Job.Status = provider.ProvisionerJobRunning
	for i := range demoLogs {
		demoLogs[i].ID = int64(i + 1)
		send(tui.VersionMsg{Version: version})
		send(tui.LogMsg{Logs: demoLogs[:i+1]})
		if err := tick(500 * time.Millisecond); err != nil {
			return err
		}
	}

	version.Job.Status = provider.ProvisionerJobSucceeded
	send(tui.VersionMsg{Version: version})
	return nil
}
