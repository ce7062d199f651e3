package provider

import "time"

// ProvisionerJobStatus is the state of the asynchronous job behind a template version.
type ProvisionerJobStatus string

const (
	ProvisionerJobPending   ProvisionerJobStatus = "pending"
	ProvisionerJobRunning   ProvisionerJobStatus = "running"
	ProvisionerJobSucceeded ProvisionerJobStatus = "succeeded"
	ProvisionerJobCanceling ProvisionerJobStatus = "canceling"
	ProvisionerJobCanceled  ProvisionerJobStatus = "canceled"
	ProvisionerJobFailed    ProvisionerJobStatus = "failed"
	ProvisionerJobUnknown   ProvisionerJobStatus = "unknown"
)

// IsActive reports whether the job has not reached a terminal state yet.
func (s ProvisionerJobStatus) IsActive() bool {
	return s == ProvisionerJobPending || s == ProvisionerJobRunning
}

// ProvisionerJob describes the job that imports a template version.
type ProvisionerJob struct {
	ID            string               `json:"id"`
	CreatedAt     time.Time            `json:"created_at"`
	StartedAt     *time.Time           `json:"started_at,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CanceledAt    *time.Time           `json:"canceled_at,omitempty"`
	Error         string               `json:"error,omitempty"`
	ErrorCode     string               `json:"error_code,omitempty"`
	Status        ProvisionerJobStatus `json:"status"`
	WorkerID      *string              `json:"worker_id,omitempty"`
	FileID        string               `json:"file_id"`
	Tags          map[string]string    `json:"tags"`
	QueuePosition int                  `json:"queue_position"`
	QueueSize     int                  `json:"queue_size"`
}

// MinimalUser is the trimmed user record embedded in other resources.
type MinimalUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// TemplateVersion is a single build of a template's source.
type TemplateVersion struct {
	ID             string         `json:"id"`
	TemplateID     *string        `json:"template_id,omitempty"`
	OrganizationID string         `json:"organization_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Name           string         `json:"name"`
	Message        string         `json:"message"`
	Job            ProvisionerJob `json:"job"`
	Readme         string         `json:"readme"`
	CreatedBy      MinimalUser    `json:"created_by"`
	Archived       bool           `json:"archived"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// Template is a named, versioned workspace definition.
type Template struct {
	ID                 string    `json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	OrganizationID     string    `json:"organization_id"`
	Name               string    `json:"name"`
	DisplayName        string    `json:"display_name"`
	Provisioner        string    `json:"provisioner"`
	ActiveVersionID    string    `json:"active_version_id"`
	ActiveUserCount    int       `json:"active_user_count"`
	Description        string    `json:"description"`
	Icon               string    `json:"icon"`
	Deprecated         bool      `json:"deprecated"`
	DeprecationMessage string    `json:"deprecation_message"`
	CreatedByID        string    `json:"created_by_id"`
	CreatedByName      string    `json:"created_by_name"`
}

// VariableValue sets a Terraform variable on a new template version.
type VariableValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CreateTemplateVersionRequest creates a template version from an uploaded file or an example.
type CreateTemplateVersionRequest struct {
	Name               string            `json:"name,omitempty"`
	Message            string            `json:"message,omitempty"`
	TemplateID         string            `json:"template_id,omitempty"`
	StorageMethod      string            `json:"storage_method"`
	FileID             string            `json:"file_id,omitempty"`
	ExampleID          string            `json:"example_id,omitempty"`
	Provisioner        string            `json:"provisioner"`
	ProvisionerTags    map[string]string `json:"tags,omitempty"`
	UserVariableValues []VariableValue   `json:"user_variable_values,omitempty"`
}

// CreateTemplateRequest creates a template whose first version is VersionID.
type CreateTemplateRequest struct {
	Name                         string `json:"name"`
	DisplayName                  string `json:"display_name,omitempty"`
	Description                  string `json:"description,omitempty"`
	Icon                         string `json:"icon,omitempty"`
	VersionID                    string `json:"template_version_id"`
	DefaultTTLMillis             *int64 `json:"default_ttl_ms,omitempty"`
	ActivityBumpMillis           *int64 `json:"activity_bump_ms,omitempty"`
	AllowUserCancelWorkspaceJobs *bool  `json:"allow_user_cancel_workspace_jobs,omitempty"`
	DisableEveryoneGroupAccess   bool   `json:"disable_everyone_group_access"`
	RequireActiveVersion         bool   `json:"require_active_version"`
}

// UpdateActiveTemplateVersion promotes a version to be the template's active one.
type UpdateActiveTemplateVersion struct {
	ID string `json:"id"`
}

// TemplateRole is a permission level on a template ACL. The empty role removes access.
type TemplateRole string

const (
	TemplateRoleAdmin   TemplateRole = "admin"
	TemplateRoleUse     TemplateRole = "use"
	TemplateRoleDeleted TemplateRole = ""
)

// UpdateTemplateACL patches user and group permissions on a template.
type UpdateTemplateACL struct {
	UserPerms  map[string]TemplateRole `json:"user_perms,omitempty"`
	GroupPerms map[string]TemplateRole `json:"group_perms,omitempty"`
}

// TemplateUser is a user with a role on a template.
type TemplateUser struct {
	MinimalUser
	Email string       `json:"email"`
	Role  TemplateRole `json:"role"`
}

// TemplateGroup is a group with a role on a template.
type TemplateGroup struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Role        TemplateRole `json:"role"`
}

// TemplateACL lists who has access to a template.
type TemplateACL struct {
	Users  []TemplateUser  `json:"users"`
	Groups []TemplateGroup `json:"group"`
}

// ACLAvailable lists users and groups that could be added to a template ACL.
type ACLAvailable struct {
	Users  []MinimalUser   `json:"users"`
	Groups []TemplateGroup `json:"groups"`
}

// UsersRequest filters and paginates user listings.
type UsersRequest struct {
	Search string `json:"q,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// TemplatesRequest filters template listings. A nil Deprecated returns all templates.
type TemplatesRequest struct {
	Deprecated *bool `json:"deprecated,omitempty"`
}

// ProvisionerJobLog is a single line of provisioner output.
type ProvisionerJobLog struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"log_source"`
	Level     string    `json:"log_level"`
	Stage     string    `json:"stage"`
	Output    string    `json:"output"`
}

// TemplateVersionParameter is a rich parameter declared by a template version.
type TemplateVersionParameter struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name,omitempty"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	Mutable      bool   `json:"mutable"`
	DefaultValue string `json:"default_value"`
	Icon         string `json:"icon"`
	Required     bool   `json:"required"`
	Ephemeral    bool   `json:"ephemeral"`
}

// WorkspaceResource is an infrastructure resource a template version provisions.
type WorkspaceResource struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	JobID     string    `json:"job_id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Hide      bool      `json:"hide"`
	Icon      string    `json:"icon"`
	DailyCost int       `json:"daily_cost"`
}

// TemplateVersionVariable is a Terraform variable declared by a template version.
type TemplateVersionVariable struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Type         string `json:"type"`
	Value        string `json:"value,omitempty"`
	DefaultValue string `json:"default_value,omitempty"`
	Required     bool   `json:"required"`
	Sensitive    bool   `json:"sensitive"`
}

// TemplateVersionExternalAuth is an external auth provider a template version requires.
type TemplateVersionExternalAuth struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	DisplayName     string `json:"display_name"`
	DisplayIcon     string `json:"display_icon"`
	AuthenticateURL string `json:"authenticate_url"`
	Authenticated   bool   `json:"authenticated"`
	Optional        bool   `json:"optional,omitempty"`
}

// TemplateExample is a starter template shipped with the deployment.
type TemplateExample struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Tags        []string `json:"tags"`
	Markdown    string   `json:"markdown"`
}

// UploadResponse is returned after uploading a template source archive.
type UploadResponse struct {
	ID string `json:"hash"`
}

// BuildInfoResponse describes the server build.
type BuildInfoResponse struct {
	ExternalURL     string `json:"external_url"`
	Version         string `json:"version"`
	DashboardURL    string `json:"dashboard_url"`
	Telemetry       bool   `json:"telemetry"`
	WorkspaceProxy  bool   `json:"workspace_proxy"`
	AgentAPIVersion string `json:"agent_api_version"`
	DeploymentID    string `json:"deployment_id"`
}
