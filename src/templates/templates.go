// Package templates defines the cached reads and the mutations of the template
// and template version workflows.
//
// Each read is a query.Query whose key layout is shared with every other client
// of the cache; mutations invalidate the keys they make stale.
package templates

import (
	"context"
	"fmt"

	"provisioner-watch/src/provider"
	"provisioner-watch/src/query"
)

// Queries builds queries and mutations against one API.
type Queries struct {
	api provider.API
}

// New returns the query set for api.
func New(api provider.API) *Queries {
	return &Queries{api: api}
}

func TemplateByNameKey(organizationID, name string) query.Key {
	return query.Key{organizationID, "template", name, "settings"}
}

func (q *Queries) TemplateByName(organizationID, name string) query.Query[provider.Template] {
	return query.Query[provider.Template]{
		Key: TemplateByNameKey(organizationID, name),
		Fn: func(ctx context.Context) (provider.Template, error) {
			return q.api.GetTemplateByName(ctx, organizationID, name)
		},
	}
}

// TemplatesKey is the key of an organization's template list. A nil deprecated
// lists every template.
func TemplatesKey(organizationID string, deprecated *bool) query.Key {
	var part any
	if deprecated != nil {
		part = *deprecated
	}
	return query.Key{organizationID, "templates", part}
}

func (q *Queries) Templates(organizationID string, deprecated *bool) query.Query[[]provider.Template] {
	return query.Query[[]provider.Template]{
		Key: TemplatesKey(organizationID, deprecated),
		Fn: func(ctx context.Context) ([]provider.Template, error) {
			return q.api.GetTemplates(ctx, organizationID, provider.TemplatesRequest{Deprecated: deprecated})
		},
	}
}

func TemplateACLKey(templateID string) query.Key {
	return query.Key{"templateAcl", templateID}
}

func (q *Queries) TemplateACL(templateID string) query.Query[provider.TemplateACL] {
	return query.Query[provider.TemplateACL]{
		Key: TemplateACLKey(templateID),
		Fn: func(ctx context.Context) (provider.TemplateACL, error) {
			return q.api.GetTemplateACL(ctx, templateID)
		},
	}
}

// UserRole grants (or with an empty role, removes) a user's access to a template.
type UserRole struct {
	TemplateID string
	UserID     string
	Role       provider.TemplateRole
}

// SetUserRole patches a user's role and invalidates the template's ACL.
func (q *Queries) SetUserRole(cache *query.Cache) query.Mutation[UserRole, struct{}] {
	return query.Mutation[UserRole, struct{}]{
		Fn: func(ctx context.Context, in UserRole) (struct{}, error) {
			return struct{}{}, q.api.UpdateTemplateACL(ctx, in.TemplateID, provider.UpdateTemplateACL{
				UserPerms: map[string]provider.TemplateRole{in.UserID: in.Role},
			})
		},
		OnSuccess: func(ctx context.Context, in UserRole, _ struct{}) error {
			cache.Invalidate(TemplateACLKey(in.TemplateID))
			return nil
		},
	}
}

// GroupRole grants (or with an empty role, removes) a group's access to a template.
type GroupRole struct {
	TemplateID string
	GroupID    string
	Role       provider.TemplateRole
}

// SetGroupRole patches a group's role and invalidates the template's ACL.
func (q *Queries) SetGroupRole(cache *query.Cache) query.Mutation[GroupRole, struct{}] {
	return query.Mutation[GroupRole, struct{}]{
		Fn: func(ctx context.Context, in GroupRole) (struct{}, error) {
			return struct{}{}, q.api.UpdateTemplateACL(ctx, in.TemplateID, provider.UpdateTemplateACL{
				GroupPerms: map[string]provider.TemplateRole{in.GroupID: in.Role},
			})
		},
		OnSuccess: func(ctx context.Context, in GroupRole, _ struct{}) error {
			cache.Invalidate(TemplateACLKey(in.TemplateID))
			return nil
		},
	}
}

// TemplateExamples nests under the unfiltered template list key.
func (q *Queries) TemplateExamples(organizationID string) query.Query[[]provider.TemplateExample] {
	return query.Query[[]provider.TemplateExample]{
		Key: TemplatesKey(organizationID, nil).Append("examples"),
		Fn: func(ctx context.Context) ([]provider.TemplateExample, error) {
			return q.api.GetTemplateExamples(ctx, organizationID)
		},
	}
}

func TemplateVersionKey(versionID string) query.Key {
	return query.Key{"templateVersion", versionID}
}

func (q *Queries) TemplateVersion(versionID string) query.Query[provider.TemplateVersion] {
	return query.Query[provider.TemplateVersion]{
		Key: TemplateVersionKey(versionID),
		Fn: func(ctx context.Context) (provider.TemplateVersion, error) {
			return q.api.GetTemplateVersion(ctx, versionID)
		},
	}
}

func (q *Queries) TemplateVersionByName(organizationID, templateName, versionName string) query.Query[provider.TemplateVersion] {
	return query.Query[provider.TemplateVersion]{
		Key: query.Key{"templateVersion", organizationID, templateName, versionName},
		Fn: func(ctx context.Context) (provider.TemplateVersion, error) {
			return q.api.GetTemplateVersionByName(ctx, organizationID, templateName, versionName)
		},
	}
}

func (q *Queries) TemplateVersions(templateID string) query.Query[[]provider.TemplateVersion] {
	return query.Query[[]provider.TemplateVersion]{
		Key: query.Key{"templateVersions", templateID},
		Fn: func(ctx context.Context) ([]provider.TemplateVersion, error) {
			return q.api.GetTemplateVersions(ctx, templateID)
		},
	}
}

func TemplateVersionVariablesKey(versionID string) query.Key {
	return query.Key{"templateVersion", versionID, "variables"}
}

func (q *Queries) TemplateVersionVariables(versionID string) query.Query[[]provider.TemplateVersionVariable] {
	return query.Query[[]provider.TemplateVersionVariable]{
		Key: TemplateVersionVariablesKey(versionID),
		Fn: func(ctx context.Context) ([]provider.TemplateVersionVariable, error) {
			return q.api.GetTemplateVersionVariables(ctx, versionID)
		},
	}
}

// CreateTemplateVersion creates a version without waiting for its build.
func (q *Queries) CreateTemplateVersion(organizationID string) query.Mutation[provider.CreateTemplateVersionRequest, provider.TemplateVersion] {
	return query.Mutation[provider.CreateTemplateVersionRequest, provider.TemplateVersion]{
		Fn: func(ctx context.Context, req provider.CreateTemplateVersionRequest) (provider.TemplateVersion, error) {
			return q.api.CreateTemplateVersion(ctx, organizationID, req)
		},
	}
}

// BuildWaiter blocks until a version's build finished and returns the version
// ID. A *waiter.Waiter polls only; a pipeline watcher also records the wait.
type BuildWaiter interface {
	WaitBuildToBeFinished(ctx context.Context, version provider.TemplateVersion, onRequest func(provider.TemplateVersion)) (string, error)
}

// CreateAndBuildTemplateVersion creates a version and returns it once its build succeeded.
func (q *Queries) CreateAndBuildTemplateVersion(organizationID string, w BuildWaiter) query.Mutation[provider.CreateTemplateVersionRequest, provider.TemplateVersion] {
	return query.Mutation[provider.CreateTemplateVersionRequest, provider.TemplateVersion]{
		Fn: func(ctx context.Context, req provider.CreateTemplateVersionRequest) (provider.TemplateVersion, error) {
			version, err := q.api.CreateTemplateVersion(ctx, organizationID, req)
			if err != nil {
				return provider.TemplateVersion{}, err
			}
			if _, err := w.WaitBuildToBeFinished(ctx, version, nil); err != nil {
				return provider.TemplateVersion{}, err
			}
			return version, nil
		},
	}
}

// UpdateActiveTemplateVersion promotes a version and invalidates the template,
// whose active_version_id changed.
func (q *Queries) UpdateActiveTemplateVersion(template provider.Template, cache *query.Cache) query.Mutation[string, struct{}] {
	return query.Mutation[string, struct{}]{
		Fn: func(ctx context.Context, versionID string) (struct{}, error) {
			return struct{}{}, q.api.UpdateActiveTemplateVersion(ctx, template.ID, provider.UpdateActiveTemplateVersion{ID: versionID})
		},
		OnSuccess: func(ctx context.Context, _ string, _ struct{}) error {
			cache.Invalidate(TemplateByNameKey(template.OrganizationID, template.Name))
			return nil
		},
	}
}

func (q *Queries) TemplateACLAvailable(templateID string, options provider.UsersRequest) query.Query[provider.ACLAvailable] {
	return query.Query[provider.ACLAvailable]{
		Key: query.Key{"template", templateID, "aclAvailable", options},
		Fn: func(ctx context.Context) (provider.ACLAvailable, error) {
			return q.api.GetTemplateACLAvailable(ctx, templateID, options)
		},
	}
}

func TemplateVersionExternalAuthKey(versionID string) query.Key {
	return query.Key{"templateVersion", versionID, "externalAuth"}
}

func (q *Queries) TemplateVersionExternalAuth(versionID string) query.Query[[]provider.TemplateVersionExternalAuth] {
	return query.Query[[]provider.TemplateVersionExternalAuth]{
		Key: TemplateVersionExternalAuthKey(versionID),
		Fn: func(ctx context.Context) ([]provider.TemplateVersionExternalAuth, error) {
			return q.api.GetTemplateVersionExternalAuth(ctx, versionID)
		},
	}
}

// CreateTemplateOptions describes a template created from a new version.
type CreateTemplateOptions struct {
	OrganizationID string
	Version        provider.CreateTemplateVersionRequest
	// Template is sent with VersionID replaced by the new version's ID.
	Template provider.CreateTemplateRequest
	// OnCreateVersion runs once the version exists, before waiting for its build.
	OnCreateVersion func(provider.TemplateVersion)
	// OnTemplateVersionChanges runs on every poll of the version.
	OnTemplateVersionChanges func(provider.TemplateVersion)
}

// CreateTemplate creates a version, waits for its build, then creates the template.
func (q *Queries) CreateTemplate(w BuildWaiter) query.Mutation[CreateTemplateOptions, provider.Template] {
	return query.Mutation[CreateTemplateOptions, provider.Template]{
		Fn: func(ctx context.Context, opts CreateTemplateOptions) (provider.Template, error) {
			return q.createTemplate(ctx, w, opts)
		},
	}
}

func (q *Queries) createTemplate(ctx context.Context, w BuildWaiter, opts CreateTemplateOptions) (provider.Template, error) {
	version, err := q.api.CreateTemplateVersion(ctx, opts.OrganizationID, opts.Version)
	if err != nil {
		return provider.Template{}, fmt.Errorf("create template version: %w", err)
	}
	if opts.OnCreateVersion != nil {
		opts.OnCreateVersion(version)
	}

	if _, err := w.WaitBuildToBeFinished(ctx, version, opts.OnTemplateVersionChanges); err != nil {
		return provider.Template{}, err
	}

	req := opts.Template
	req.VersionID = version.ID
	return q.api.CreateTemplate(ctx, opts.OrganizationID, req)
}

func (q *Queries) TemplateVersionLogs(versionID string) query.Query[[]provider.ProvisionerJobLog] {
	return query.Query[[]provider.ProvisionerJobLog]{
		Key: query.Key{"templateVersion", versionID, "logs"},
		Fn: func(ctx context.Context) ([]provider.ProvisionerJobLog, error) {
			return q.api.GetTemplateVersionLogs(ctx, versionID)
		},
	}
}

func (q *Queries) RichParameters(versionID string) query.Query[[]provider.TemplateVersionParameter] {
	return query.Query[[]provider.TemplateVersionParameter]{
		Key: query.Key{"templateVersion", versionID, "richParameters"},
		Fn: func(ctx context.Context) ([]provider.TemplateVersionParameter, error) {
			return q.api.GetTemplateVersionRichParameters(ctx, versionID)
		},
	}
}

func (q *Queries) Resources(versionID string) query.Query[[]provider.WorkspaceResource] {
	return query.Query[[]provider.WorkspaceResource]{
		Key: query.Key{"templateVersion", versionID, "resources"},
		Fn: func(ctx context.Context) ([]provider.WorkspaceResource, error) {
			return q.api.GetTemplateVersionResources(ctx, versionID)
		},
	}
}

// TemplateFiles downloads a version's source archive and extracts it.
func (q *Queries) TemplateFiles(fileID string) query.Query[TemplateVersionFiles] {
	return query.Query[TemplateVersionFiles]{
		Key: query.Key{"templateFiles", fileID},
		Fn: func(ctx context.Context) (TemplateVersionFiles, error) {
			tarball, err := q.api.GetFile(ctx, fileID)
			if err != nil {
				return nil, err
			}
			return ExtractFiles(tarball)
		},
	}
}

// PreviousTemplateVersion yields nil when versionName is the template's first version.
func (q *Queries) PreviousTemplateVersion(organizationID, templateName, versionName string) query.Query[*provider.TemplateVersion] {
	return query.Query[*provider.TemplateVersion]{
		Key: query.Key{"templateVersion", organizationID, templateName, versionName, "previous"},
		Fn: func(ctx context.Context) (*provider.TemplateVersion, error) {
			return q.api.GetPreviousTemplateVersionByName(ctx, organizationID, templateName, versionName)
		},
	}
}

// UploadFile uploads a template source archive.
func (q *Queries) UploadFile() query.Mutation[[]byte, provider.UploadResponse] {
	return query.Mutation[[]byte, provider.UploadResponse]{
		Fn: q.api.UploadFile,
	}
}

func (q *Queries) File(fileID string) query.Query[[]byte] {
	return query.Query[[]byte]{
		Key: query.Key{"files", fileID},
		Fn: func(ctx context.Context) ([]byte, error) {
			return q.api.GetFile(ctx, fileID)
		},
	}
}

func (q *Queries) BuildInfo() query.Query[provider.BuildInfoResponse] {
	return query.Query[provider.BuildInfoResponse]{
		Key: query.Key{"buildInfo"},
		Fn:  q.api.GetBuildInfo,
	}
}
