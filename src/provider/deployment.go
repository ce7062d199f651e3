package provider

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultOrganization is sent in place of an empty organization ID.
const DefaultOrganization = "default"

// IntelCohortMetadata describes what a cohort tracks.
type IntelCohortMetadata struct {
	Name               string   `json:"name"`
	Icon               string   `json:"icon"`
	Description        string   `json:"description"`
	TrackedExecutables []string `json:"tracked_executables"`
}

// IntelCohort groups machines whose metadata matches a set of patterns.
type IntelCohort struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	// MachineMetadata maps metadata keys to regular expressions.
	MachineMetadata map[string]string `json:"machine_metadata"`

	IntelCohortMetadata
}

// MetadataMatch maps machine metadata keys to regular expressions. A nil match
// selects every machine.
type MetadataMatch map[string]string

// Validate compiles every pattern.
func (m MetadataMatch) Validate() error {
	for key, pattern := range m {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("metadata %q: %w", key, err)
		}
	}
	return nil
}

// CreateIntelCohortRequest creates a cohort.
type CreateIntelCohortRequest struct {
	Name               string        `json:"name"`
	Icon               string        `json:"icon"`
	Description        string        `json:"description"`
	TrackedExecutables []string      `json:"tracked_executables"`
	MetadataMatch      MetadataMatch `json:"metadata_match,omitempty"`
}

// IntelMachine is a machine running the intel daemon.
type IntelMachine struct {
	ID             string            `json:"id"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	UserID         string            `json:"user_id"`
	OrganizationID string            `json:"organization_id"`
	InstanceID     string            `json:"instance_id"`
	Metadata       map[string]string `json:"metadata"`
}

// IntelMachinesRequest filters and paginates machine listings.
type IntelMachinesRequest struct {
	MetadataMatch MetadataMatch `json:"metadata_match"`
	Offset        int           `json:"offset,omitempty"`
	Limit         int           `json:"limit,omitempty"`
}

type IntelMachinesResponse struct {
	IntelMachines []IntelMachine `json:"intel_machines"`
	Count         int            `json:"count"`
}

// IntelReportRequest limits a report to invocations since StartsAt. Only the
// date is sent; a zero StartsAt reports everything.
type IntelReportRequest struct {
	StartsAt time.Time `json:"starts_at"`
}

// IntelReport summarizes tracked executable invocations of an organization.
type IntelReport struct {
	Invocations int64 `json:"invocations"`
	// GitAuthProviders maps a Git remote URL to its auth provider ID.
	GitAuthProviders map[string]*string       `json:"git_auth_providers"`
	Intervals        []IntelInvocationSummary `json:"intervals"`
}

// IntelInvocationSummary aggregates invocations of one binary over an interval.
type IntelInvocationSummary struct {
	ID         string    `json:"id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	BinaryName string    `json:"binary_name"`
	BinaryArgs []string  `json:"binary_args"`
	// ExitCodes maps exit codes to their invocation count.
	ExitCodes          map[string]int64            `json:"exit_codes"`
	GitRemoteURLs      map[string]int64            `json:"git_remote_urls"`
	WorkingDirectories map[string]int64            `json:"working_directories"`
	BinaryPaths        map[string]int64            `json:"binary_paths"`
	MachineMetadata    map[string]map[string]int64 `json:"machine_metadata"`
	UniqueMachines     int64                       `json:"unique_machines"`
	TotalInvocations   int64                       `json:"total_invocations"`
	MedianDurationMS   float64                     `json:"median_duration_ms"`
}

// Feature is the entitlement state of one licensed feature.
type Feature struct {
	Entitlement string `json:"entitlement"`
	Enabled     bool   `json:"enabled"`
	Limit       *int64 `json:"limit,omitempty"`
	Actual      *int64 `json:"actual,omitempty"`
}

// Entitlements is the license state of the deployment.
type Entitlements struct {
	Features         map[string]Feature `json:"features"`
	Warnings         []string           `json:"warnings"`
	Errors           []string           `json:"errors"`
	HasLicense       bool               `json:"has_license"`
	Trial            bool               `json:"trial"`
	RequireTelemetry bool               `json:"require_telemetry"`
	RefreshedAt      time.Time          `json:"refreshed_at"`
}

// BannerConfig is a message shown across the dashboard.
type BannerConfig struct {
	Enabled         bool   `json:"enabled"`
	Message         string `json:"message,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
}

type LinkConfig struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Icon   string `json:"icon"`
}

// AppearanceConfig is the deployment branding.
type AppearanceConfig struct {
	ApplicationName     string         `json:"application_name"`
	LogoURL             string         `json:"logo_url"`
	ServiceBanner       BannerConfig   `json:"service_banner"`
	AnnouncementBanners []BannerConfig `json:"announcement_banners"`
	SupportLinks        []LinkConfig   `json:"support_links,omitempty"`
}

// UpdateAppearanceConfig replaces the deployment branding.
type UpdateAppearanceConfig struct {
	ApplicationName     string         `json:"application_name"`
	LogoURL             string         `json:"logo_url"`
	ServiceBanner       BannerConfig   `json:"service_banner"`
	AnnouncementBanners []BannerConfig `json:"announcement_banners"`
}

// UserQuietHoursScheduleResponse is a user's quiet hours, during which
// workspaces that require the active version are updated.
type UserQuietHoursScheduleResponse struct {
	RawSchedule string `json:"raw_schedule"`
	// UserSet is false while the deployment default applies.
	UserSet    bool      `json:"user_set"`
	UserCanSet bool      `json:"user_can_set"`
	Time       string    `json:"time"`
	Timezone   string    `json:"timezone"`
	Next       time.Time `json:"next"`
}

// UpdateUserQuietHoursScheduleRequest sets a cron schedule such as
// "CRON_TZ=Europe/Dublin 30 2 * * *". An empty schedule restores the default.
type UpdateUserQuietHoursScheduleRequest struct {
	Schedule string `json:"schedule"`
}
