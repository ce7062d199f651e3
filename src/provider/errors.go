package provider

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed  = errors.New("authentication failed")
	ErrNotFound    = errors.New("resource not found")
	ErrRateLimited = errors.New("rate limited")
)

// JobError is returned when a template version's provisioner job ends in any
// terminal state other than succeeded.
type JobError struct {
	// Job is the last observed job record.
	Job ProvisionerJob
	// Version is the version the wait was started for.
	Version TemplateVersion
}

func (e *JobError) Error() string {
	msg := fmt.Sprintf("template version %s build %s", e.Version.ID, e.Job.Status)
	if e.Job.Error != "" {
		msg += ": " + e.Job.Error
	}
	return msg
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var jobErr *JobError
	if errors.As(err, &jobErr) {
		hint := "Inspect the build output with: provisioner-watch version logs " + jobErr.Version.ID
		if jobErr.Job.Error != "" {
			hint = jobErr.Job.Error + "\n\n" + hint
		}
		return &UserError{
			Message: "Template version build failed",
			Hint:    hint,
			Err:     err,
		}
	}

	if errors.Is(err, ErrAuthFailed) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that CODER_SESSION_TOKEN is valid and has access to the organization.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrNotFound) {
		return &UserError{
			Message: "Resource not found",
			Hint:    "Check that CODER_URL points at the right deployment and the ID is correct.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrRateLimited) {
		return &UserError{
			Message: "Rate limited by the Coder API",
			Hint:    "Wait a moment and retry.",
			Err:     err,
		}
	}

	return err
}
