package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"provisioner-watch/src/broker"
	"provisioner-watch/src/contracts"
	"provisioner-watch/src/logger"
	"provisioner-watch/src/provider"
	"provisioner-watch/src/store"
	"provisioner-watch/src/waiter"
)

// Result describes a finished watch.
type Result struct {
	WatchID   string
	VersionID string
	// Final is the last observation of the version.
	Final        provider.TemplateVersion
	Observations int
}

// Watcher runs the waiter and fans every observation out to the broker and the store.
type Watcher struct {
	waiter *waiter.Waiter
	broker broker.Broker
	store  store.Store
	log    logger.Logger
	mode   Mode

	newID func() string
	now   func() time.Time
}

// NewWatcher creates a Watcher from its parts.
func NewWatcher(w *waiter.Waiter, b broker.Broker, s store.Store, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Watcher{
		waiter: w,
		broker: b,
		store:  s,
		log:    log,
		mode:   LocalMode,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Mode returns the mode the watcher was built for.
func (w *Watcher) Mode() Mode { return w.mode }

// Store returns the store observations are recorded in.
func (w *Watcher) Store() store.Store { return w.store }

// Broker returns the broker observations are published to.
func (w *Watcher) Broker() broker.Broker { return w.broker }

// Watch waits for version's build to finish.
//
// Every observation is recorded in the store, published as a VersionEvent and
// then passed to onChange (if not nil). Store and broker failures are logged and
// do not interrupt the wait. The returned error is the waiter's: nil on success,
// a *provider.JobError when the build ends in any other terminal state, or the
// fetch or context error that stopped it.
func (w *Watcher) Watch(ctx context.Context, version provider.TemplateVersion, onChange func(provider.TemplateVersion)) (Result, error) {
	result := Result{WatchID: w.newID(), VersionID: version.ID, Final: version}

	err := w.store.CreateWatch(ctx, store.Watch{
		WatchID:        result.WatchID,
		VersionID:      version.ID,
		OrganizationID: version.OrganizationID,
		CreatedAt:      w.now(),
	})
	if err != nil {
		w.log.Error("failed to record watch %s: %v", result.WatchID, err)
	}

	w.publish(ctx, contracts.TopicWatchRequests, result.WatchID, contracts.WatchRequest{
		WatchID:        result.WatchID,
		OrganizationID: version.OrganizationID,
		VersionID:      version.ID,
		Timestamp:      w.now().Format(time.RFC3339),
	})

	id, err := w.waiter.WaitBuildToBeFinished(ctx, version, func(observed provider.TemplateVersion) {
		result.Observations++
		result.Final = observed
		w.observe(ctx, result.WatchID, observed)
		if onChange != nil {
			onChange(observed)
		}
	})
	if err != nil {
		var jobErr *provider.JobError
		if !errors.As(err, &jobErr) {
			w.log.Debug("watch %s stopped: %v", result.WatchID, err)
		}
		return result, err
	}

	result.VersionID = id
	return result, nil
}

// Recorder returns a build waiter whose waits run through Watch. onResult,
// if not nil, receives each finished watch, failed or not.
func (w *Watcher) Recorder(onResult func(Result)) *Recorder {
	return &Recorder{watcher: w, onResult: onResult}
}

// Recorder adapts a Watcher to callers that expect a plain build waiter, such
// as the template create flow.
type Recorder struct {
	watcher  *Watcher
	onResult func(Result)
}

// WaitBuildToBeFinished watches version and returns its ID once the build succeeded.
func (r *Recorder) WaitBuildToBeFinished(ctx context.Context, version provider.TemplateVersion, onRequest func(provider.TemplateVersion)) (string, error) {
	result, err := r.watcher.Watch(ctx, version, onRequest)
	if r.onResult != nil {
		r.onResult(result)
	}
	if err != nil {
		return "", err
	}
	return result.VersionID, nil
}

func (w *Watcher) observe(ctx context.Context, watchID string, version provider.TemplateVersion) {
	observedAt := w.now()

	err := w.store.RecordObservation(ctx, store.Observation{
		WatchID:    watchID,
		VersionID:  version.ID,
		Status:     string(version.Job.Status),
		Error:      version.Job.Error,
		ObservedAt: observedAt,
	})
	if err != nil {
		w.log.Error("failed to record observation for watch %s: %v", watchID, err)
	}

	w.publish(ctx, contracts.TopicVersionStatus, version.ID, contracts.VersionEvent{
		EventID:        w.newID(),
		WatchID:        watchID,
		VersionID:      version.ID,
		OrganizationID: version.OrganizationID,
		Name:           version.Name,
		JobID:          version.Job.ID,
		Status:         string(version.Job.Status),
		Error:          version.Job.Error,
		QueuePosition:  version.Job.QueuePosition,
		ObservedAt:     observedAt,
	})
}

func (w *Watcher) publish(ctx context.Context, topic, key string, v any) {
	if err := broker.PublishJSON(ctx, w.broker, topic, key, v); err != nil {
		w.log.Error("failed to publish to %s: %v", topic, err)
	}
}

// Close closes the broker and the store.
func (w *Watcher) Close() error {
	var errs []error
	if err := w.broker.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close broker: %w", err))
	}
	if err := w.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}
