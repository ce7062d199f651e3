package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// runStoreTests exercises a Store implementation. Both the in-memory and the
// Postgres store must pass it.
func runStoreTests(t *testing.T, st Store) {
	ctx := context.Background()
	watchID := uuid.NewString()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	watch := Watch{WatchID: watchID, VersionID: "version-1", OrganizationID: "org-1", CreatedAt: base}
	if err := st.CreateWatch(ctx, watch); err != nil {
		t.Fatalf("CreateWatch() error = %v", err)
	}
	// Second create is ignored
	if err := st.CreateWatch(ctx, Watch{WatchID: watchID, VersionID: "other"}); err != nil {
		t.Fatalf("CreateWatch() duplicate error = %v", err)
	}

	got, err := st.GetWatch(ctx, watchID)
	if err != nil {
		t.Fatalf("GetWatch() error = %v", err)
	}
	if got.VersionID != "version-1" {
		t.Errorf("VersionID = %q, want version-1", got.VersionID)
	}
	if got.Status != "pending" {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil", got.CompletedAt)
	}

	statuses := []string{"pending", "running", "failed"}
	for i, status := range statuses {
		obs := Observation{
			WatchID:    watchID,
			VersionID:  "version-1",
			Status:     status,
			ObservedAt: base.Add(time.Duration(i+1) * time.Second),
		}
		if status == "failed" {
			obs.Error = "terraform init failed"
		}
		if err := st.RecordObservation(ctx, obs); err != nil {
			t.Fatalf("RecordObservation(%s) error = %v", status, err)
		}
	}

	got, err = st.GetWatch(ctx, watchID)
	if err != nil {
		t.Fatalf("GetWatch() error = %v", err)
	}
	if got.Status != "failed" {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(base.Add(3*time.Second)) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, base.Add(3*time.Second))
	}

	observations, err := st.ListObservations(ctx, watchID)
	if err != nil {
		t.Fatalf("ListObservations() error = %v", err)
	}
	if len(observations) != len(statuses) {
		t.Fatalf("ListObservations() returned %d, want %d", len(observations), len(statuses))
	}
	for i, obs := range observations {
		if obs.Status != statuses[i] {
			t.Errorf("observation %d status = %q, want %q", i, obs.Status, statuses[i])
		}
	}
	if observations[2].Error != "terraform init failed" {
		t.Errorf("observation error = %q", observations[2].Error)
	}

	var notFound ErrNotFound
	if _, err := st.GetWatch(ctx, "missing"); !errors.As(err, &notFound) {
		t.Errorf("GetWatch() for missing watch should return ErrNotFound, got %v", err)
	}
	if _, err := st.ListObservations(ctx, "missing"); !errors.As(err, &notFound) {
		t.Errorf("ListObservations() for missing watch should return ErrNotFound, got %v", err)
	}
	if err := st.RecordObservation(ctx, Observation{WatchID: "missing", Status: "running"}); !errors.As(err, &notFound) {
		t.Errorf("RecordObservation() for missing watch should return ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	st := NewInMemoryStore()
	defer st.Close()
	runStoreTests(t, st)
}

func TestInMemoryStoreCompletedAtSetOnce(t *testing.T) {
	st := NewInMemoryStore()
	ctx := context.Background()
	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := st.CreateWatch(ctx, Watch{WatchID: "w1", VersionID: "v1"}); err != nil {
		t.Fatal(err)
	}
	for i, status := range []string{"canceling", "canceled"} {
		obs := Observation{WatchID: "w1", Status: status, ObservedAt: first.Add(time.Duration(i) * time.Minute)}
		if err := st.RecordObservation(ctx, obs); err != nil {
			t.Fatal(err)
		}
	}

	w, _ := st.GetWatch(ctx, "w1")
	if w.Status != "canceled" {
		t.Errorf("Status = %q, want canceled", w.Status)
	}
	if w.CompletedAt == nil || !w.CompletedAt.Equal(first) {
		t.Errorf("CompletedAt = %v, want %v", w.CompletedAt, first)
	}
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	st := NewInMemoryStore()
	ctx := context.Background()
	st.CreateWatch(ctx, Watch{WatchID: "w1", VersionID: "v1"})

	w, _ := st.GetWatch(ctx, "w1")
	w.Status = "succeeded"

	again, _ := st.GetWatch(ctx, "w1")
	if again.Status != "pending" {
		t.Errorf("mutating returned watch changed the store: status = %q", again.Status)
	}
}

func TestErrNotFound(t *testing.T) {
	err := ErrNotFound{WatchID: "abc"}
	if err.Error() != "watch not found: abc" {
		t.Errorf("ErrNotFound.Error() = %q, want %q", err.Error(), "watch not found: abc")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}

	st, err := NewPostgresStore(dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	runStoreTests(t, st)
}
