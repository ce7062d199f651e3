// Package providertest provides an in-memory provider.API for tests.
package providertest

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"provisioner-watch/src/provider"
)

// Fake is an in-memory provider.API. Created versions report the statuses in
// Statuses, one per GetTemplateVersion call, repeating the last one.
type Fake struct {
	mu sync.Mutex

	Statuses []provider.ProvisionerJobStatus
	JobError string
	Logs     []provider.ProvisionerJobLog
	Files    map[string][]byte

	// Err is returned by every call when set.
	Err error

	Versions  map[string]provider.TemplateVersion
	Templates map[string]provider.Template
	ACL       map[string]provider.UpdateTemplateACL

	Cohorts      []provider.IntelCohort
	Machines     []provider.IntelMachine
	Report       provider.IntelReport
	Entitlements provider.Entitlements
	Appearance   provider.AppearanceConfig
	QuietHours   map[string]provider.UserQuietHoursScheduleResponse

	CreatedVersions  []provider.CreateTemplateVersionRequest
	CreatedTemplates []provider.CreateTemplateRequest
	ActiveUpdates    []provider.UpdateActiveTemplateVersion
	Calls            map[string]int

	polls map[string]int
	seq   int
}

var _ provider.API = (*Fake)(nil)

// NewFake returns a Fake whose versions report statuses in order.
func NewFake(statuses ...provider.ProvisionerJobStatus) *Fake {
	return &Fake{
		Statuses:   statuses,
		Files:      make(map[string][]byte),
		Versions:   make(map[string]provider.TemplateVersion),
		Templates:  make(map[string]provider.Template),
		ACL:        make(map[string]provider.UpdateTemplateACL),
		QuietHours: make(map[string]provider.UserQuietHoursScheduleResponse),
		Calls:      make(map[string]int),
		polls:      make(map[string]int),
	}
}

// CallCount returns how many times method was called.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *Fake) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
	return f.Err
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *Fake) GetTemplateVersion(ctx context.Context, versionID string) (provider.TemplateVersion, error) {
	if err := f.record("GetTemplateVersion"); err != nil {
		return provider.TemplateVersion{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	version, ok := f.Versions[versionID]
	if !ok {
		return provider.TemplateVersion{}, fmt.Errorf("template version %s: %w", versionID, provider.ErrNotFound)
	}

	if len(f.Statuses) > 0 {
		i := f.polls[versionID]
		if i >= len(f.Statuses) {
			i = len(f.Statuses) - 1
		}
		f.polls[versionID]++
		version.Job.Status = f.Statuses[i]
		if version.Job.Status == provider.ProvisionerJobPending {
			version.Job.QueuePosition = len(f.Statuses) - i
		} else {
			version.Job.QueuePosition = 0
		}
		if !version.Job.Status.IsActive() && version.Job.Status != provider.ProvisionerJobSucceeded {
			version.Job.Error = f.JobError
		}
	}
	f.Versions[versionID] = version
	return version, nil
}

func (f *Fake) GetTemplateVersionByName(ctx context.Context, organizationID, templateName, versionName string) (provider.TemplateVersion, error) {
	if err := f.record("GetTemplateVersionByName"); err != nil {
		return provider.TemplateVersion{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.Versions {
		if v.OrganizationID == organizationID && v.Name == versionName {
			return v, nil
		}
	}
	return provider.TemplateVersion{}, provider.ErrNotFound
}

func (f *Fake) GetPreviousTemplateVersionByName(ctx context.Context, organizationID, templateName, versionName string) (*provider.TemplateVersion, error) {
	if err := f.record("GetPreviousTemplateVersionByName"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *Fake) GetTemplateVersions(ctx context.Context, templateID string) ([]provider.TemplateVersion, error) {
	if err := f.record("GetTemplateVersions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var versions []provider.TemplateVersion
	for _, v := range f.Versions {
		if v.TemplateID != nil && *v.TemplateID == templateID {
			versions = append(versions, v)
		}
	}
	return versions, nil
}

func (f *Fake) GetTemplateVersionVariables(ctx context.Context, versionID string) ([]provider.TemplateVersionVariable, error) {
	return nil, f.record("GetTemplateVersionVariables")
}

func (f *Fake) GetTemplateVersionLogs(ctx context.Context, versionID string) ([]provider.ProvisionerJobLog, error) {
	if err := f.record("GetTemplateVersionLogs"); err != nil {
		return nil, err
	}
	return f.Logs, nil
}

func (f *Fake) GetTemplateVersionRichParameters(ctx context.Context, versionID string) ([]provider.TemplateVersionParameter, error) {
	return nil, f.record("GetTemplateVersionRichParameters")
}

func (f *Fake) GetTemplateVersionResources(ctx context.Context, versionID string) ([]provider.WorkspaceResource, error) {
	return nil, f.record("GetTemplateVersionResources")
}

func (f *Fake) GetTemplateVersionExternalAuth(ctx context.Context, versionID string) ([]provider.TemplateVersionExternalAuth, error) {
	return nil, f.record("GetTemplateVersionExternalAuth")
}

func (f *Fake) CreateTemplateVersion(ctx context.Context, organizationID string, req provider.CreateTemplateVersionRequest) (provider.TemplateVersion, error) {
	if err := f.record("CreateTemplateVersion"); err != nil {
		return provider.TemplateVersion{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreatedVersions = append(f.CreatedVersions, req)
	id := f.nextID("version")
	name := req.Name
	if name == "" {
		name = id
	}
	version := provider.TemplateVersion{
		ID:             id,
		OrganizationID: organizationID,
		Name:           name,
		Message:        req.Message,
		Job: provider.ProvisionerJob{
			ID:     f.nextID("job"),
			Status: provider.ProvisionerJobPending,
			FileID: req.FileID,
		},
	}
	if req.TemplateID != "" {
		templateID := req.TemplateID
		version.TemplateID = &templateID
	}
	f.Versions[id] = version
	return version, nil
}

func (f *Fake) CreateTemplate(ctx context.Context, organizationID string, req provider.CreateTemplateRequest) (provider.Template, error) {
	if err := f.record("CreateTemplate"); err != nil {
		return provider.Template{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreatedTemplates = append(f.CreatedTemplates, req)
	template := provider.Template{
		ID:              f.nextID("template"),
		OrganizationID:  organizationID,
		Name:            req.Name,
		DisplayName:     req.DisplayName,
		Description:     req.Description,
		ActiveVersionID: req.VersionID,
	}
	f.Templates[template.ID] = template
	return template, nil
}

func (f *Fake) GetTemplateByName(ctx context.Context, organizationID, name string) (provider.Template, error) {
	if err := f.record("GetTemplateByName"); err != nil {
		return provider.Template{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.Templates {
		if t.OrganizationID == organizationID && t.Name == name {
			return t, nil
		}
	}
	return provider.Template{}, provider.ErrNotFound
}

func (f *Fake) GetTemplates(ctx context.Context, organizationID string, req provider.TemplatesRequest) ([]provider.Template, error) {
	if err := f.record("GetTemplates"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var templates []provider.Template
	for _, t := range f.Templates {
		if t.OrganizationID != organizationID {
			continue
		}
		if req.Deprecated != nil && t.Deprecated != *req.Deprecated {
			continue
		}
		templates = append(templates, t)
	}
	return templates, nil
}

func (f *Fake) UpdateActiveTemplateVersion(ctx context.Context, templateID string, req provider.UpdateActiveTemplateVersion) error {
	if err := f.record("UpdateActiveTemplateVersion"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ActiveUpdates = append(f.ActiveUpdates, req)
	template, ok := f.Templates[templateID]
	if !ok {
		return provider.ErrNotFound
	}
	template.ActiveVersionID = req.ID
	f.Templates[templateID] = template
	return nil
}

func (f *Fake) GetTemplateACL(ctx context.Context, templateID string) (provider.TemplateACL, error) {
	if err := f.record("GetTemplateACL"); err != nil {
		return provider.TemplateACL{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var acl provider.TemplateACL
	patch := f.ACL[templateID]
	for id, role := range patch.UserPerms {
		acl.Users = append(acl.Users, provider.TemplateUser{MinimalUser: provider.MinimalUser{ID: id}, Role: role})
	}
	for id, role := range patch.GroupPerms {
		acl.Groups = append(acl.Groups, provider.TemplateGroup{ID: id, Role: role})
	}
	return acl, nil
}

func (f *Fake) UpdateTemplateACL(ctx context.Context, templateID string, req provider.UpdateTemplateACL) error {
	if err := f.record("UpdateTemplateACL"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.ACL[templateID]
	if current.UserPerms == nil {
		current.UserPerms = make(map[string]provider.TemplateRole)
	}
	if current.GroupPerms == nil {
		current.GroupPerms = make(map[string]provider.TemplateRole)
	}
	for id, role := range req.UserPerms {
		if role == provider.TemplateRoleDeleted {
			delete(current.UserPerms, id)
			continue
		}
		current.UserPerms[id] = role
	}
	for id, role := range req.GroupPerms {
		if role == provider.TemplateRoleDeleted {
			delete(current.GroupPerms, id)
			continue
		}
		current.GroupPerms[id] = role
	}
	f.ACL[templateID] = current
	return nil
}

func (f *Fake) GetTemplateACLAvailable(ctx context.Context, templateID string, req provider.UsersRequest) (provider.ACLAvailable, error) {
	return provider.ACLAvailable{}, f.record("GetTemplateACLAvailable")
}

func (f *Fake) GetTemplateExamples(ctx context.Context, organizationID string) ([]provider.TemplateExample, error) {
	if err := f.record("GetTemplateExamples"); err != nil {
		return nil, err
	}
	return []provider.TemplateExample{{ID: "docker", Name: "Docker Containers"}}, nil
}

func (f *Fake) UploadFile(ctx context.Context, tarball []byte) (provider.UploadResponse, error) {
	if err := f.record("UploadFile"); err != nil {
		return provider.UploadResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("file")
	f.Files[id] = tarball
	return provider.UploadResponse{ID: id}, nil
}

func (f *Fake) GetFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := f.record("GetFile"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Files[fileID]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return data, nil
}

func (f *Fake) GetBuildInfo(ctx context.Context) (provider.BuildInfoResponse, error) {
	if err := f.record("GetBuildInfo"); err != nil {
		return provider.BuildInfoResponse{}, err
	}
	return provider.BuildInfoResponse{Version: "v2.0.0-test"}, nil
}

func organization(id string) string {
	if id == "" {
		return provider.DefaultOrganization
	}
	return id
}

func (f *Fake) GetIntelCohorts(ctx context.Context, organizationID string) ([]provider.IntelCohort, error) {
	if err := f.record("GetIntelCohorts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var cohorts []provider.IntelCohort
	for _, c := range f.Cohorts {
		if c.OrganizationID == organization(organizationID) {
			cohorts = append(cohorts, c)
		}
	}
	return cohorts, nil
}

func (f *Fake) CreateIntelCohort(ctx context.Context, organizationID string, req provider.CreateIntelCohortRequest) (provider.IntelCohort, error) {
	if err := f.record("CreateIntelCohort"); err != nil {
		return provider.IntelCohort{}, err
	}
	if err := req.MetadataMatch.Validate(); err != nil {
		return provider.IntelCohort{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	cohort := provider.IntelCohort{
		ID:              f.nextID("cohort"),
		OrganizationID:  organization(organizationID),
		MachineMetadata: req.MetadataMatch,
		IntelCohortMetadata: provider.IntelCohortMetadata{
			Name:               req.Name,
			Icon:               req.Icon,
			Description:        req.Description,
			TrackedExecutables: req.TrackedExecutables,
		},
	}
	f.Cohorts = append(f.Cohorts, cohort)
	return cohort, nil
}

// GetIntelMachines matches patterns against machine metadata the way the server does.
func (f *Fake) GetIntelMachines(ctx context.Context, organizationID string, req provider.IntelMachinesRequest) (provider.IntelMachinesResponse, error) {
	if err := f.record("GetIntelMachines"); err != nil {
		return provider.IntelMachinesResponse{}, err
	}
	patterns := make(map[string]*regexp.Regexp, len(req.MetadataMatch))
	for key, pattern := range req.MetadataMatch {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return provider.IntelMachinesResponse{}, err
		}
		patterns[key] = re
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []provider.IntelMachine
	for _, m := range f.Machines {
		if m.OrganizationID != organization(organizationID) || !matchesMetadata(m.Metadata, patterns) {
			continue
		}
		matched = append(matched, m)
	}

	resp := provider.IntelMachinesResponse{Count: len(matched)}
	if req.Offset < len(matched) {
		matched = matched[req.Offset:]
		if req.Limit > 0 && req.Limit < len(matched) {
			matched = matched[:req.Limit]
		}
		resp.IntelMachines = matched
	}
	return resp, nil
}

func matchesMetadata(metadata map[string]string, patterns map[string]*regexp.Regexp) bool {
	for key, re := range patterns {
		if !re.MatchString(metadata[key]) {
			return false
		}
	}
	return true
}

func (f *Fake) GetIntelReport(ctx context.Context, organizationID string, req provider.IntelReportRequest) (provider.IntelReport, error) {
	if err := f.record("GetIntelReport"); err != nil {
		return provider.IntelReport{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Report, nil
}

func (f *Fake) RefreshIntelReport(ctx context.Context, organizationID string) error {
	return f.record("RefreshIntelReport")
}

func (f *Fake) GetEntitlements(ctx context.Context) (provider.Entitlements, error) {
	if err := f.record("GetEntitlements"); err != nil {
		return provider.Entitlements{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Entitlements, nil
}

func (f *Fake) RefreshEntitlements(ctx context.Context) error {
	return f.record("RefreshEntitlements")
}

func (f *Fake) GetAppearance(ctx context.Context) (provider.AppearanceConfig, error) {
	if err := f.record("GetAppearance"); err != nil {
		return provider.AppearanceConfig{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Appearance, nil
}

func (f *Fake) UpdateAppearance(ctx context.Context, req provider.UpdateAppearanceConfig) (provider.AppearanceConfig, error) {
	if err := f.record("UpdateAppearance"); err != nil {
		return provider.AppearanceConfig{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Appearance.ApplicationName = req.ApplicationName
	f.Appearance.LogoURL = req.LogoURL
	f.Appearance.ServiceBanner = req.ServiceBanner
	f.Appearance.AnnouncementBanners = req.AnnouncementBanners
	return f.Appearance, nil
}

func (f *Fake) GetUserQuietHoursSchedule(ctx context.Context, userID string) (provider.UserQuietHoursScheduleResponse, error) {
	if err := f.record("GetUserQuietHoursSchedule"); err != nil {
		return provider.UserQuietHoursScheduleResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.QuietHours[userID], nil
}

func (f *Fake) UpdateUserQuietHoursSchedule(ctx context.Context, userID string, req provider.UpdateUserQuietHoursScheduleRequest) (provider.UserQuietHoursScheduleResponse, error) {
	if err := f.record("UpdateUserQuietHoursSchedule"); err != nil {
		return provider.UserQuietHoursScheduleResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	schedule := provider.UserQuietHoursScheduleResponse{
		RawSchedule: req.Schedule,
		UserSet:     req.Schedule != "",
		UserCanSet:  true,
	}
	f.QuietHours[userID] = schedule
	return schedule, nil
}
