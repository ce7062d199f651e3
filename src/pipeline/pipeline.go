// Package pipeline wires the build-completion waiter to the broker and the store.
// It is used by both the CLI and the MCP server.
package pipeline

import (
	"context"
	"fmt"

	"provisioner-watch/src/broker"
	"provisioner-watch/src/config"
	"provisioner-watch/src/logger"
	"provisioner-watch/src/provider"
	"provisioner-watch/src/store"
	"provisioner-watch/src/waiter"
)

// Mode selects where observations go.
type Mode int

const (
	// LocalMode keeps observations in process: in-memory broker and store.
	LocalMode Mode = iota
	// DistributedMode publishes to Redpanda and persists to Postgres.
	DistributedMode
)

func (m Mode) String() string {
	switch m {
	case DistributedMode:
		return "distributed"
	default:
		return "local"
	}
}

// DetectMode returns DistributedMode when both Redpanda and Postgres are configured.
func DetectMode(cfg *config.Config) Mode {
	if cfg.Distributed() {
		return DistributedMode
	}
	return LocalMode
}

// New builds a Watcher for the mode cfg selects. The Postgres schema is
// migrated before the watcher is returned.
func New(ctx context.Context, cfg *config.Config, api provider.API, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.NewSilentLogger()
	}

	w := waiter.New(api,
		waiter.WithIntervals(cfg.PendingInterval, cfg.RunningInterval),
		waiter.WithLogger(log),
	)

	mode := DetectMode(cfg)
	if mode == LocalMode {
		log.Debug("pipeline: local mode")
		return NewWatcher(w, broker.NewInMemoryBroker(), store.NewInMemoryStore(), log), nil
	}

	log.Debug("pipeline: distributed mode, brokers %v", cfg.RedpandaBrokers)

	redpandaBroker, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
	}

	postgresStore, err := store.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		redpandaBroker.Close()
		return nil, fmt.Errorf("failed to create Postgres store: %w", err)
	}

	if err := postgresStore.Migrate(ctx); err != nil {
		postgresStore.Close()
		redpandaBroker.Close()
		return nil, err
	}

	watcher := NewWatcher(w, redpandaBroker, postgresStore, log)
	watcher.mode = DistributedMode
	return watcher, nil
}
