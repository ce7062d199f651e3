// Package waiter polls a template version until its provisioner job finishes.
package waiter

import (
	"context"
	"fmt"
	"time"

	"provisioner-watch/src/logger"
	"provisioner-watch/src/provider"
)

const (
	// DefaultPendingInterval is the delay after observing a pending job.
	DefaultPendingInterval = 250 * time.Millisecond
	// DefaultRunningInterval is the delay in every other case.
	DefaultRunningInterval = time.Second
)

// VersionGetter fetches a template version by ID.
type VersionGetter interface {
	GetTemplateVersion(ctx context.Context, versionID string) (provider.TemplateVersion, error)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Waiter waits for template version builds to finish.
type Waiter struct {
	api             VersionGetter
	log             logger.Logger
	pendingInterval time.Duration
	runningInterval time.Duration
	sleep           SleepFunc
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithIntervals overrides the poll intervals. Non-positive values keep the defaults.
func WithIntervals(pending, running time.Duration) Option {
	return func(w *Waiter) {
		if pending > 0 {
			w.pendingInterval = pending
		}
		if running > 0 {
			w.runningInterval = running
		}
	}
}

// WithSleep replaces the delay between polls.
func WithSleep(sleep SleepFunc) Option {
	return func(w *Waiter) {
		w.sleep = sleep
	}
}

// WithLogger sets the logger used for per-poll debug output.
func WithLogger(log logger.Logger) Option {
	return func(w *Waiter) {
		w.log = log
	}
}

// New creates a Waiter that polls api.
func New(api VersionGetter, opts ...Option) *Waiter {
	w := &Waiter{
		api:             api,
		log:             logger.NewSilentLogger(),
		pendingInterval: DefaultPendingInterval,
		runningInterval: DefaultRunningInterval,
		sleep:           sleepContext,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WaitBuildToBeFinished polls version until its job reaches a terminal state.
//
// Each iteration delays, fetches the version and hands it to onRequest (if not nil).
// The delay is the pending interval when the previous observation was pending and
// the running interval otherwise, including before the first fetch. A succeeded job
// returns version.ID. Any terminal status other than succeeded returns a
// *provider.JobError. Fetch errors are returned as is and end the wait.
func (w *Waiter) WaitBuildToBeFinished(ctx context.Context, version provider.TemplateVersion, onRequest func(provider.TemplateVersion)) (string, error) {
	var (
		data   provider.TemplateVersion
		status provider.ProvisionerJobStatus
		polls  int
	)

	for {
		if err := w.sleep(ctx, w.interval(status)); err != nil {
			return "", err
		}

		var err error
		data, err = w.api.GetTemplateVersion(ctx, version.ID)
		if err != nil {
			return "", err
		}
		polls++

		if onRequest != nil {
			onRequest(data)
		}
		status = data.Job.Status
		w.log.Debug("template version %s poll %d: job %s", version.ID, polls, status)

		if status == provider.ProvisionerJobSucceeded {
			return version.ID, nil
		}
		if !status.IsActive() {
			break
		}
	}

	return "", &provider.JobError{Job: data.Job, Version: version}
}

func (w *Waiter) interval(last provider.ProvisionerJobStatus) time.Duration {
	if last == provider.ProvisionerJobPending {
		return w.pendingInterval
	}
	return w.runningInterval
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for template version: %w", ctx.Err())
	}
}
