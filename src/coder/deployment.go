package coder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"provisioner-watch/src/provider"
)

func intelPath(organizationID, resource string) string {
	if organizationID == "" {
		organizationID = provider.DefaultOrganization
	}
	return "/organizations/" + url.PathEscape(organizationID) + "/intel/" + resource
}

// GetIntelCohorts lists the cohorts of an organization.
func (c *Client) GetIntelCohorts(ctx context.Context, organizationID string) ([]provider.IntelCohort, error) {
	var cohorts []provider.IntelCohort
	err := c.requestJSON(ctx, http.MethodGet, intelPath(organizationID, "cohorts"), nil, nil, &cohorts)
	return cohorts, err
}

// CreateIntelCohort creates a cohort. Patterns are checked before the request is sent.
func (c *Client) CreateIntelCohort(ctx context.Context, organizationID string, req provider.CreateIntelCohortRequest) (provider.IntelCohort, error) {
	if err := req.MetadataMatch.Validate(); err != nil {
		return provider.IntelCohort{}, err
	}

	var cohort provider.IntelCohort
	err := c.requestJSON(ctx, http.MethodPost, intelPath(organizationID, "cohorts"), nil, req, &cohort)
	return cohort, err
}

// GetIntelMachines lists machines whose metadata matches req.MetadataMatch.
func (c *Client) GetIntelMachines(ctx context.Context, organizationID string, req provider.IntelMachinesRequest) (provider.IntelMachinesResponse, error) {
	query := url.Values{
		"offset": []string{strconv.Itoa(req.Offset)},
		"limit":  []string{strconv.Itoa(req.Limit)},
	}
	if req.MetadataMatch != nil {
		metadata, err := json.Marshal(req.MetadataMatch)
		if err != nil {
			return provider.IntelMachinesResponse{}, fmt.Errorf("failed to encode metadata: %w", err)
		}
		query.Set("metadata", string(metadata))
	}

	var machines provider.IntelMachinesResponse
	err := c.requestJSON(ctx, http.MethodGet, intelPath(organizationID, "machines"), query, nil, &machines)
	return machines, err
}

// GetIntelReport fetches the invocation report of an organization.
func (c *Client) GetIntelReport(ctx context.Context, organizationID string, req provider.IntelReportRequest) (provider.IntelReport, error) {
	var query url.Values
	if !req.StartsAt.IsZero() {
		query = url.Values{"starts_at": []string{req.StartsAt.Format(time.DateOnly)}}
	}

	var report provider.IntelReport
	err := c.requestJSON(ctx, http.MethodGet, intelPath(organizationID, "report"), query, nil, &report)
	return report, err
}

// RefreshIntelReport asks the server to recompute the report.
func (c *Client) RefreshIntelReport(ctx context.Context, organizationID string) error {
	return c.requestJSON(ctx, http.MethodPost, intelPath(organizationID, "report"), nil, nil, nil)
}

// GetEntitlements fetches the license state of the deployment.
func (c *Client) GetEntitlements(ctx context.Context) (provider.Entitlements, error) {
	var entitlements provider.Entitlements
	err := c.requestJSON(ctx, http.MethodGet, "/entitlements", nil, nil, &entitlements)
	return entitlements, err
}

// RefreshEntitlements re-reads the deployment's licenses.
func (c *Client) RefreshEntitlements(ctx context.Context) error {
	return c.requestJSON(ctx, http.MethodPost, "/licenses/refresh-entitlements", nil, nil, nil)
}

// GetAppearance fetches the deployment branding.
func (c *Client) GetAppearance(ctx context.Context) (provider.AppearanceConfig, error) {
	var appearance provider.AppearanceConfig
	err := c.requestJSON(ctx, http.MethodGet, "/appearance", nil, nil, &appearance)
	return appearance, err
}

// UpdateAppearance replaces the deployment branding and returns the stored config.
func (c *Client) UpdateAppearance(ctx context.Context, req provider.UpdateAppearanceConfig) (provider.AppearanceConfig, error) {
	var appearance provider.AppearanceConfig
	err := c.requestJSON(ctx, http.MethodPut, "/appearance", nil, req, &appearance)
	return appearance, err
}

// GetUserQuietHoursSchedule fetches a user's quiet hours.
func (c *Client) GetUserQuietHoursSchedule(ctx context.Context, userID string) (provider.UserQuietHoursScheduleResponse, error) {
	var schedule provider.UserQuietHoursScheduleResponse
	err := c.requestJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/quiet-hours", nil, nil, &schedule)
	return schedule, err
}

// UpdateUserQuietHoursSchedule sets a user's quiet hours.
func (c *Client) UpdateUserQuietHoursSchedule(ctx context.Context, userID string, req provider.UpdateUserQuietHoursScheduleRequest) (provider.UserQuietHoursScheduleResponse, error) {
	var schedule provider.UserQuietHoursScheduleResponse
	err := c.requestJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/quiet-hours", nil, req, &schedule)
	return schedule, err
}
