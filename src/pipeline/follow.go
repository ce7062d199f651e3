package pipeline

import (
	"context"

	"provisioner-watch/src/broker"
	"provisioner-watch/src/contracts"
	"provisioner-watch/src/logger"
	"provisioner-watch/src/provider"
)

// Follow subscribes to status events as groupID and delivers the events of
// versionID in order. The channel closes after the first terminal event, or
// when ctx is done or the broker closes. Undecodable messages are logged and skipped.
func Follow(ctx context.Context, b broker.Broker, groupID, versionID string, log logger.Logger) (<-chan contracts.VersionEvent, error) {
	if log == nil {
		log = logger.NewSilentLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	msgs, err := b.Subscribe(ctx, contracts.TopicVersionStatus, groupID)
	if err != nil {
		cancel()
		return nil, err
	}

	events := make(chan contracts.VersionEvent)
	go func() {
		defer close(events)
		defer cancel()

		for msg := range msgs {
			if msg.Key != versionID {
				continue
			}
			event, err := broker.Decode[contracts.VersionEvent](msg)
			if err != nil {
				log.Error("skipping status event: %v", err)
				continue
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
			if event.Terminal() {
				return
			}
		}
	}()
	return events, nil
}

// EventVersion rebuilds the observed template version from an event.
func EventVersion(e contracts.VersionEvent) provider.TemplateVersion {
	return provider.TemplateVersion{
		ID:             e.VersionID,
		OrganizationID: e.OrganizationID,
		Name:           e.Name,
		Job: provider.ProvisionerJob{
			ID:            e.JobID,
			Status:        provider.ProvisionerJobStatus(e.Status),
			Error:         e.Error,
			QueuePosition: e.QueuePosition,
		},
	}
}
