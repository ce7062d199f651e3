// Package deployment defines the cached reads and the mutations of deployment
// settings: entitlements, appearance, user quiet hours and organization intel.
//
// Keys follow the layout of the templates package so both share one cache.
package deployment

import (
	"context"
	"time"

	"provisioner-watch/src/provider"
	"provisioner-watch/src/query"
)

// Queries builds queries and mutations against one API.
type Queries struct {
	api provider.DeploymentAPI
}

// New returns the query set for api.
func New(api provider.DeploymentAPI) *Queries {
	return &Queries{api: api}
}

// IntelCohortsKey is the key of an organization's cohorts. Every organization's
// cohorts share the ["intel", "cohorts"] prefix.
func IntelCohortsKey(organizationID string) query.Key {
	return query.Key{"intel", "cohorts", organizationID}
}

func (q *Queries) IntelCohorts(organizationID string) query.Query[[]provider.IntelCohort] {
	return query.Query[[]provider.IntelCohort]{
		Key: IntelCohortsKey(organizationID),
		Fn: func(ctx context.Context) ([]provider.IntelCohort, error) {
			return q.api.GetIntelCohorts(ctx, organizationID)
		},
	}
}

// CreateIntelCohort creates a cohort and invalidates the organization's cohort list.
func (q *Queries) CreateIntelCohort(organizationID string, cache *query.Cache) query.Mutation[provider.CreateIntelCohortRequest, provider.IntelCohort] {
	return query.Mutation[provider.CreateIntelCohortRequest, provider.IntelCohort]{
		Fn: func(ctx context.Context, req provider.CreateIntelCohortRequest) (provider.IntelCohort, error) {
			return q.api.CreateIntelCohort(ctx, organizationID, req)
		},
		OnSuccess: func(ctx context.Context, _ provider.CreateIntelCohortRequest, _ provider.IntelCohort) error {
			cache.Invalidate(IntelCohortsKey(organizationID))
			return nil
		},
	}
}

func IntelMachinesKey(organizationID string, req provider.IntelMachinesRequest) query.Key {
	return query.Key{"intel", "machines", organizationID, req}
}

func (q *Queries) IntelMachines(organizationID string, req provider.IntelMachinesRequest) query.Query[provider.IntelMachinesResponse] {
	return query.Query[provider.IntelMachinesResponse]{
		Key: IntelMachinesKey(organizationID, req),
		Fn: func(ctx context.Context) (provider.IntelMachinesResponse, error) {
			return q.api.GetIntelMachines(ctx, organizationID, req)
		},
	}
}

// IntelReportKey is the prefix of every report of an organization, whatever its start date.
func IntelReportKey(organizationID string) query.Key {
	return query.Key{"intel", "report", organizationID}
}

func (q *Queries) IntelReport(organizationID string, req provider.IntelReportRequest) query.Query[provider.IntelReport] {
	var startsAt any
	if !req.StartsAt.IsZero() {
		startsAt = req.StartsAt.Format(time.DateOnly)
	}
	return query.Query[provider.IntelReport]{
		Key: IntelReportKey(organizationID).Append(startsAt),
		Fn: func(ctx context.Context) (provider.IntelReport, error) {
			return q.api.GetIntelReport(ctx, organizationID, req)
		},
	}
}

// RefreshIntelReport recomputes the report and invalidates every cached report
// of the organization.
func (q *Queries) RefreshIntelReport(organizationID string, cache *query.Cache) query.Mutation[struct{}, struct{}] {
	return query.Mutation[struct{}, struct{}]{
		Fn: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, q.api.RefreshIntelReport(ctx, organizationID)
		},
		OnSuccess: func(ctx context.Context, _ struct{}, _ struct{}) error {
			cache.Invalidate(IntelReportKey(organizationID))
			return nil
		},
	}
}

func EntitlementsKey() query.Key {
	return query.Key{"entitlements"}
}

func (q *Queries) Entitlements() query.Query[provider.Entitlements] {
	return query.Query[provider.Entitlements]{
		Key: EntitlementsKey(),
		Fn:  q.api.GetEntitlements,
	}
}

// RefreshEntitlements re-reads the licenses, then drops the cached entitlements.
func (q *Queries) RefreshEntitlements(cache *query.Cache) query.Mutation[struct{}, struct{}] {
	return query.Mutation[struct{}, struct{}]{
		Fn: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, q.api.RefreshEntitlements(ctx)
		},
		OnSuccess: func(ctx context.Context, _ struct{}, _ struct{}) error {
			cache.Invalidate(EntitlementsKey())
			return nil
		},
	}
}

func AppearanceKey() query.Key {
	return query.Key{"appearance"}
}

func (q *Queries) Appearance() query.Query[provider.AppearanceConfig] {
	return query.Query[provider.AppearanceConfig]{
		Key: AppearanceKey(),
		Fn:  q.api.GetAppearance,
	}
}

// UpdateAppearance stores the returned config under the appearance key, so the
// next read needs no request.
func (q *Queries) UpdateAppearance(cache *query.Cache) query.Mutation[provider.UpdateAppearanceConfig, provider.AppearanceConfig] {
	return query.Mutation[provider.UpdateAppearanceConfig, provider.AppearanceConfig]{
		Fn: q.api.UpdateAppearance,
		OnSuccess: func(ctx context.Context, _ provider.UpdateAppearanceConfig, config provider.AppearanceConfig) error {
			cache.Set(AppearanceKey(), config)
			return nil
		},
	}
}

func UserQuietHoursScheduleKey(userID string) query.Key {
	return query.Key{"settings", userID, "quietHours"}
}

func (q *Queries) UserQuietHoursSchedule(userID string) query.Query[provider.UserQuietHoursScheduleResponse] {
	return query.Query[provider.UserQuietHoursScheduleResponse]{
		Key: UserQuietHoursScheduleKey(userID),
		Fn: func(ctx context.Context) (provider.UserQuietHoursScheduleResponse, error) {
			return q.api.GetUserQuietHoursSchedule(ctx, userID)
		},
	}
}

func (q *Queries) UpdateUserQuietHoursSchedule(userID string, cache *query.Cache) query.Mutation[provider.UpdateUserQuietHoursScheduleRequest, provider.UserQuietHoursScheduleResponse] {
	return query.Mutation[provider.UpdateUserQuietHoursScheduleRequest, provider.UserQuietHoursScheduleResponse]{
		Fn: func(ctx context.Context, req provider.UpdateUserQuietHoursScheduleRequest) (provider.UserQuietHoursScheduleResponse, error) {
			return q.api.UpdateUserQuietHoursSchedule(ctx, userID, req)
		},
		OnSuccess: func(ctx context.Context, _ provider.UpdateUserQuietHoursScheduleRequest, _ provider.UserQuietHoursScheduleResponse) error {
			cache.Invalidate(UserQuietHoursScheduleKey(userID))
			return nil
		},
	}
}
