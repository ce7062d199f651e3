package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestJobError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *JobError
		want string
	}{
		{
			name: "failed with job error",
			err: &JobError{
				Job:     ProvisionerJob{Status: ProvisionerJobFailed, Error: "terraform plan: exit status 1"},
				Version: TemplateVersion{ID: "v-1"},
			},
			want: "template version v-1 build failed: terraform plan: exit status 1",
		},
		{
			name: "canceled without error text",
			err: &JobError{
				Job:     ProvisionerJob{Status: ProvisionerJobCanceled},
				Version: TemplateVersion{ID: "v-2"},
			},
			want: "template version v-2 build canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapError_JobError(t *testing.T) {
	jobErr := &JobError{
		Job:     ProvisionerJob{Status: ProvisionerJobFailed, Error: "missing variable"},
		Version: TemplateVersion{ID: "v-9"},
	}
	wrapped := WrapError(fmt.Errorf("create template: %w", jobErr))

	userErr, ok := wrapped.(*UserError)
	if !ok {
		t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
	}

	if userErr.Message != "Template version build failed" {
		t.Errorf("Message = %q, want %q", userErr.Message, "Template version build failed")
	}

	if !strings.Contains(userErr.Hint, "missing variable") {
		t.Errorf("Hint should contain job error, got %q", userErr.Hint)
	}

	if !strings.Contains(userErr.Hint, "version logs v-9") {
		t.Errorf("Hint should name the logs command, got %q", userErr.Hint)
	}

	var got *JobError
	if !errors.As(wrapped, &got) || got != jobErr {
		t.Error("errors.As(wrapped, *JobError) should find the original job error")
	}
}

func TestWrapError_AuthFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "ErrAuthFailed sentinel",
			err:  ErrAuthFailed,
		},
		{
			name: "wrapped ErrAuthFailed",
			err:  fmt.Errorf("request failed: %w", ErrAuthFailed),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			userErr, ok := wrapped.(*UserError)
			if !ok {
				t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
			}

			if userErr.Message != "Authentication failed" {
				t.Errorf("Message = %q, want %q", userErr.Message, "Authentication failed")
			}

			if !strings.Contains(userErr.Hint, "CODER_SESSION_TOKEN") {
				t.Errorf("Hint should contain 'CODER_SESSION_TOKEN', got %q", userErr.Hint)
			}
		})
	}
}

func TestWrapError_NotFound(t *testing.T) {
	wrapped := WrapError(fmt.Errorf("get template version: %w", ErrNotFound))

	userErr, ok := wrapped.(*UserError)
	if !ok {
		t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
	}

	if userErr.Message != "Resource not found" {
		t.Errorf("Message = %q, want %q", userErr.Message, "Resource not found")
	}

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("errors.Is(wrapped, ErrNotFound) = false, want true")
	}
}

func TestWrapError_OtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "generic error",
			err:  errors.New("something went wrong"),
		},
		{
			name: "500 Internal Server Error",
			err:  errors.New("500 Internal Server Error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			if wrapped != tt.err {
				t.Errorf("WrapError() = %v, want original error %v", wrapped, tt.err)
			}
		})
	}
}

func TestWrapError_NilError(t *testing.T) {
	if wrapped := WrapError(nil); wrapped != nil {
		t.Errorf("WrapError(nil) = %v, want nil", wrapped)
	}
}

func TestUserError_Error(t *testing.T) {
	userErr := &UserError{
		Message: "Something went wrong",
		Hint:    "Try doing this instead",
		Err:     errors.New("original error"),
	}

	got := userErr.Error()

	msgIdx := strings.Index(got, "Something went wrong")
	hintIdx := strings.Index(got, "Hint: Try doing this instead")
	errIdx := strings.Index(got, "Details: original error")

	if msgIdx != 0 {
		t.Errorf("Message should be at start, found at index %d", msgIdx)
	}
	if hintIdx <= msgIdx {
		t.Errorf("Hint should come after Message, got hint at %d", hintIdx)
	}
	if errIdx <= hintIdx {
		t.Errorf("Details should come after Hint, got details at %d, hint at %d", errIdx, hintIdx)
	}
}

func TestProvisionerJobStatus_IsActive(t *testing.T) {
	tests := []struct {
		status ProvisionerJobStatus
		want   bool
	}{
		{ProvisionerJobPending, true},
		{ProvisionerJobRunning, true},
		{ProvisionerJobSucceeded, false},
		{ProvisionerJobCanceling, false},
		{ProvisionerJobCanceled, false},
		{ProvisionerJobFailed, false},
		{ProvisionerJobUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsActive(); got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}
