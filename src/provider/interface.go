package provider

import (
	"context"
)

// API defines the subset of the Coder HTTP API used for template version workflows.
// The coder package provides the HTTP implementation; tests substitute fakes.
type API interface {
	// GetTemplateVersion fetches a version, including its provisioner job, by ID
	GetTemplateVersion(ctx context.Context, versionID string) (TemplateVersion, error)

	GetTemplateVersionByName(ctx context.Context, organizationID, templateName, versionName string) (TemplateVersion, error)

	// GetPreviousTemplateVersionByName returns nil when the version is the first one
	GetPreviousTemplateVersionByName(ctx context.Context, organizationID, templateName, versionName string) (*TemplateVersion, error)

	GetTemplateVersions(ctx context.Context, templateID string) ([]TemplateVersion, error)
	GetTemplateVersionVariables(ctx context.Context, versionID string) ([]TemplateVersionVariable, error)
	GetTemplateVersionLogs(ctx context.Context, versionID string) ([]ProvisionerJobLog, error)
	GetTemplateVersionRichParameters(ctx context.Context, versionID string) ([]TemplateVersionParameter, error)
	GetTemplateVersionResources(ctx context.Context, versionID string) ([]WorkspaceResource, error)
	GetTemplateVersionExternalAuth(ctx context.Context, versionID string) ([]TemplateVersionExternalAuth, error)

	// CreateTemplateVersion enqueues the provisioner job that imports the version
	CreateTemplateVersion(ctx context.Context, organizationID string, req CreateTemplateVersionRequest) (TemplateVersion, error)

	CreateTemplate(ctx context.Context, organizationID string, req CreateTemplateRequest) (Template, error)
	GetTemplateByName(ctx context.Context, organizationID, name string) (Template, error)
	GetTemplates(ctx context.Context, organizationID string, req TemplatesRequest) ([]Template, error)
	UpdateActiveTemplateVersion(ctx context.Context, templateID string, req UpdateActiveTemplateVersion) error

	GetTemplateACL(ctx context.Context, templateID string) (TemplateACL, error)
	UpdateTemplateACL(ctx context.Context, templateID string, req UpdateTemplateACL) error
	GetTemplateACLAvailable(ctx context.Context, templateID string, req UsersRequest) (ACLAvailable, error)
	GetTemplateExamples(ctx context.Context, organizationID string) ([]TemplateExample, error)

	// UploadFile stores a tar archive and returns its content-addressed ID
	UploadFile(ctx context.Context, tarball []byte) (UploadResponse, error)
	GetFile(ctx context.Context, fileID string) ([]byte, error)

	GetBuildInfo(ctx context.Context) (BuildInfoResponse, error)

	DeploymentAPI
}

// DeploymentAPI covers deployment settings, licensing and the intel reports of an
// organization. An empty organization ID selects the default organization.
type DeploymentAPI interface {
	GetIntelCohorts(ctx context.Context, organizationID string) ([]IntelCohort, error)
	CreateIntelCohort(ctx context.Context, organizationID string, req CreateIntelCohortRequest) (IntelCohort, error)
	GetIntelMachines(ctx context.Context, organizationID string, req IntelMachinesRequest) (IntelMachinesResponse, error)
	GetIntelReport(ctx context.Context, organizationID string, req IntelReportRequest) (IntelReport, error)
	// RefreshIntelReport recomputes the report server side
	RefreshIntelReport(ctx context.Context, organizationID string) error

	GetEntitlements(ctx context.Context) (Entitlements, error)
	RefreshEntitlements(ctx context.Context) error

	GetAppearance(ctx context.Context) (AppearanceConfig, error)
	UpdateAppearance(ctx context.Context, req UpdateAppearanceConfig) (AppearanceConfig, error)

	GetUserQuietHoursSchedule(ctx context.Context, userID string) (UserQuietHoursScheduleResponse, error)
	UpdateUserQuietHoursSchedule(ctx context.Context, userID string, req UpdateUserQuietHoursScheduleRequest) (UserQuietHoursScheduleResponse, error)
}
