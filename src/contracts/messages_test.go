package contracts

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestVersionEventTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"pending", false},
		{"running", false},
		{"succeeded", true},
		{"failed", true},
		{"canceling", true},
		{"canceled", true},
		{"unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := (VersionEvent{Status: tt.status}).Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVersionEventOmitsEmptyError(t *testing.T) {
	event := VersionEvent{
		VersionID:  "v1",
		Status:     "running",
		ObservedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("expected no error field, got %s", data)
	}
	if !strings.Contains(string(data), `"observed_at":"2024-01-02T03:04:05Z"`) {
		t.Errorf("expected RFC3339 observed_at, got %s", data)
	}
}
