package waiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"provisioner-watch/src/provider"
)

// scriptedAPI returns one scripted response per call.
type scriptedAPI struct {
	statuses []provider.ProvisionerJobStatus
	failAt   int // call number (1-based) that returns err; 0 disables
	err      error
	calls    int
}

func (s *scriptedAPI) GetTemplateVersion(ctx context.Context, versionID string) (provider.TemplateVersion, error) {
	s.calls++
	if s.failAt == s.calls {
		return provider.TemplateVersion{}, s.err
	}
	status := s.statuses[len(s.statuses)-1]
	if s.calls <= len(s.statuses) {
		status = s.statuses[s.calls-1]
	}
	return provider.TemplateVersion{
		ID: versionID,
		Job: provider.ProvisionerJob{
			ID:     "job-" + versionID,
			Status: status,
			Error:  "error for " + string(status),
		},
	}, nil
}

// recordSleep captures the requested delays without sleeping.
func recordSleep(delays *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestWaitBuildToBeFinished_Succeeds(t *testing.T) {
	api := &scriptedAPI{statuses: []provider.ProvisionerJobStatus{
		provider.ProvisionerJobPending,
		provider.ProvisionerJobPending,
		provider.ProvisionerJobRunning,
		provider.ProvisionerJobSucceeded,
	}}
	var delays []time.Duration
	w := New(api, WithSleep(recordSleep(&delays)))

	var observed []provider.ProvisionerJobStatus
	id, err := w.WaitBuildToBeFinished(context.Background(), provider.TemplateVersion{ID: "v-1"}, func(v provider.TemplateVersion) {
		observed = append(observed, v.Job.Status)
	})
	if err != nil {
		t.Fatalf("WaitBuildToBeFinished() error = %v", err)
	}

	if id != "v-1" {
		t.Errorf("id = %v, want v-1", id)
	}

	if len(observed) != 4 {
		t.Fatalf("callback called %d times, want 4", len(observed))
	}
	for i, want := range api.statuses {
		if observed[i] != want {
			t.Errorf("observation %d = %v, want %v", i, observed[i], want)
		}
	}

	wantDelays := []time.Duration{
		DefaultRunningInterval, // nothing observed yet
		DefaultPendingInterval, // after pending
		DefaultPendingInterval, // after pending
		DefaultRunningInterval, // after running
	}
	if len(delays) != len(wantDelays) {
		t.Fatalf("delays = %v, want %v", delays, wantDelays)
	}
	for i := range wantDelays {
		if delays[i] != wantDelays[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], wantDelays[i])
		}
	}
}

func TestWaitBuildToBeFinished_TerminalFailure(t *testing.T) {
	tests := []struct {
		name   string
		status provider.ProvisionerJobStatus
	}{
		{name: "failed", status: provider.ProvisionerJobFailed},
		{name: "canceled", status: provider.ProvisionerJobCanceled},
		{name: "canceling", status: provider.ProvisionerJobCanceling},
		{name: "unknown", status: provider.ProvisionerJobUnknown},
		{name: "unrecognised", status: provider.ProvisionerJobStatus("exploded")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &scriptedAPI{statuses: []provider.ProvisionerJobStatus{
				provider.ProvisionerJobPending,
				provider.ProvisionerJobRunning,
				tt.status,
			}}
			var delays []time.Duration
			w := New(api, WithSleep(recordSleep(&delays)))

			original := provider.TemplateVersion{ID: "v-2", Name: "original"}
			id, err := w.WaitBuildToBeFinished(context.Background(), original, nil)
			if id != "" {
				t.Errorf("id = %q, want empty", id)
			}

			var jobErr *provider.JobError
			if !errors.As(err, &jobErr) {
				t.Fatalf("error = %v, want *provider.JobError", err)
			}
			if jobErr.Job.Status != tt.status {
				t.Errorf("Job.Status = %v, want %v", jobErr.Job.Status, tt.status)
			}
			if jobErr.Job.Error != "error for "+string(tt.status) {
				t.Errorf("Job.Error = %q, want the terminal record's error", jobErr.Job.Error)
			}
			if jobErr.Version.Name != "original" {
				t.Errorf("Version = %+v, want the originating version", jobErr.Version)
			}
			if api.calls != 3 {
				t.Errorf("calls = %d, want 3", api.calls)
			}
		})
	}
}

func TestWaitBuildToBeFinished_FetchErrorStopsPolling(t *testing.T) {
	fetchErr := errors.New("connection refused")
	api := &scriptedAPI{
		statuses: []provider.ProvisionerJobStatus{provider.ProvisionerJobPending},
		failAt:   2,
		err:      fetchErr,
	}
	var delays []time.Duration
	w := New(api, WithSleep(recordSleep(&delays)))

	callbacks := 0
	_, err := w.WaitBuildToBeFinished(context.Background(), provider.TemplateVersion{ID: "v-3"}, func(provider.TemplateVersion) {
		callbacks++
	})

	if !errors.Is(err, fetchErr) {
		t.Fatalf("error = %v, want %v", err, fetchErr)
	}
	if api.calls != 2 {
		t.Errorf("calls = %d, want 2", api.calls)
	}
	if callbacks != 1 {
		t.Errorf("callbacks = %d, want 1", callbacks)
	}
	if len(delays) != 2 {
		t.Errorf("delays = %v, want 2 entries", delays)
	}
}

func TestWaitBuildToBeFinished_CustomIntervals(t *testing.T) {
	api := &scriptedAPI{statuses: []provider.ProvisionerJobStatus{
		provider.ProvisionerJobPending,
		provider.ProvisionerJobSucceeded,
	}}
	var delays []time.Duration
	w := New(api,
		WithIntervals(10*time.Millisecond, 40*time.Millisecond),
		WithSleep(recordSleep(&delays)),
	)

	if _, err := w.WaitBuildToBeFinished(context.Background(), provider.TemplateVersion{ID: "v-4"}, nil); err != nil {
		t.Fatalf("WaitBuildToBeFinished() error = %v", err)
	}

	want := []time.Duration{40 * time.Millisecond, 10 * time.Millisecond}
	if len(delays) != 2 || delays[0] != want[0] || delays[1] != want[1] {
		t.Errorf("delays = %v, want %v", delays, want)
	}
}

func TestWaitBuildToBeFinished_ContextCanceled(t *testing.T) {
	api := &scriptedAPI{statuses: []provider.ProvisionerJobStatus{provider.ProvisionerJobRunning}}
	w := New(api, WithIntervals(time.Hour, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.WaitBuildToBeFinished(ctx, provider.TemplateVersion{ID: "v-5"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestWaitBuildToBeFinished_RealSleep(t *testing.T) {
	api := &scriptedAPI{statuses: []provider.ProvisionerJobStatus{
		provider.ProvisionerJobPending,
		provider.ProvisionerJobSucceeded,
	}}
	w := New(api, WithIntervals(time.Millisecond, 2*time.Millisecond))

	start := time.Now()
	if _, err := w.WaitBuildToBeFinished(context.Background(), provider.TemplateVersion{ID: "v-6"}, nil); err != nil {
		t.Fatalf("WaitBuildToBeFinished() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 3*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 3ms", elapsed)
	}
}
