package templates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"provisioner-watch/src/provider"
	"provisioner-watch/src/provider/providertest"
	"provisioner-watch/src/query"
	"provisioner-watch/src/waiter"
)

var _ BuildWaiter = (*waiter.Waiter)(nil)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newCache(t *testing.T) *query.Cache {
	t.Helper()
	cache, err := query.NewCache(64)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	return cache
}

func TestQueryKeys(t *testing.T) {
	q := New(providertest.NewFake())
	deprecated := true

	tests := []struct {
		name string
		key  query.Key
		want string
	}{
		{"templateByName", q.TemplateByName("org", "docker").Key, `["org","template","docker","settings"]`},
		{"templates all", q.Templates("org", nil).Key, `["org","templates",null]`},
		{"templates deprecated", q.Templates("org", &deprecated).Key, `["org","templates",true]`},
		{"templateAcl", q.TemplateACL("t-1").Key, `["templateAcl","t-1"]`},
		{"templateExamples", q.TemplateExamples("org").Key, `["org","templates",null,"examples"]`},
		{"templateVersion", q.TemplateVersion("v-1").Key, `["templateVersion","v-1"]`},
		{"templateVersionByName", q.TemplateVersionByName("org", "docker", "v1").Key, `["templateVersion","org","docker","v1"]`},
		{"templateVersions", q.TemplateVersions("t-1").Key, `["templateVersions","t-1"]`},
		{"variables", q.TemplateVersionVariables("v-1").Key, `["templateVersion","v-1","variables"]`},
		{"aclAvailable", q.TemplateACLAvailable("t-1", provider.UsersRequest{Search: "a"}).Key, `["template","t-1","aclAvailable",{"q":"a"}]`},
		{"externalAuth", q.TemplateVersionExternalAuth("v-1").Key, `["templateVersion","v-1","externalAuth"]`},
		{"logs", q.TemplateVersionLogs("v-1").Key, `["templateVersion","v-1","logs"]`},
		{"richParameters", q.RichParameters("v-1").Key, `["templateVersion","v-1","richParameters"]`},
		{"resources", q.Resources("v-1").Key, `["templateVersion","v-1","resources"]`},
		{"templateFiles", q.TemplateFiles("f-1").Key, `["templateFiles","f-1"]`},
		{"previous", q.PreviousTemplateVersion("org", "docker", "v2").Key, `["templateVersion","org","docker","v2","previous"]`},
		{"file", q.File("f-1").Key, `["files","f-1"]`},
		{"buildInfo", q.BuildInfo().Key, `["buildInfo"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("key = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestVersionSubKeysShareVersionPrefix(t *testing.T) {
	q := New(providertest.NewFake())
	prefix := TemplateVersionKey("v-1")

	for _, key := range []query.Key{
		q.TemplateVersionLogs("v-1").Key,
		q.RichParameters("v-1").Key,
		TemplateVersionVariablesKey("v-1"),
		TemplateVersionExternalAuthKey("v-1"),
	} {
		if !key.HasPrefix(prefix) {
			t.Errorf("%s should start with %s", key, prefix)
		}
	}
}

func TestCreateTemplate(t *testing.T) {
	api := providertest.NewFake(
		provider.ProvisionerJobPending,
		provider.ProvisionerJobRunning,
		provider.ProvisionerJobSucceeded,
	)
	q := New(api)
	w := waiter.New(api, waiter.WithSleep(noSleep))

	var created provider.TemplateVersion
	var changes []provider.ProvisionerJobStatus

	template, err := q.CreateTemplate(w).Run(context.Background(), CreateTemplateOptions{
		OrganizationID: "org-1",
		Version:        provider.CreateTemplateVersionRequest{FileID: "file-1"},
		Template:       provider.CreateTemplateRequest{Name: "docker", DisplayName: "Docker", VersionID: "ignored"},
		OnCreateVersion: func(v provider.TemplateVersion) {
			created = v
		},
		OnTemplateVersionChanges: func(v provider.TemplateVersion) {
			changes = append(changes, v.Job.Status)
		},
	})
	if err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}

	if created.ID == "" {
		t.Fatal("OnCreateVersion was not called")
	}
	if template.ActiveVersionID != created.ID {
		t.Errorf("ActiveVersionID = %v, want %v", template.ActiveVersionID, created.ID)
	}
	if len(api.CreatedTemplates) != 1 || api.CreatedTemplates[0].VersionID != created.ID {
		t.Errorf("CreatedTemplates = %+v, want template_version_id %s", api.CreatedTemplates, created.ID)
	}
	if api.CreatedTemplates[0].DisplayName != "Docker" {
		t.Errorf("DisplayName = %v, want Docker", api.CreatedTemplates[0].DisplayName)
	}

	want := []provider.ProvisionerJobStatus{provider.ProvisionerJobPending, provider.ProvisionerJobRunning, provider.ProvisionerJobSucceeded}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, changes[i], want[i])
		}
	}
}

func TestCreateTemplate_BuildFailureSkipsTemplate(t *testing.T) {
	api := providertest.NewFake(provider.ProvisionerJobRunning, provider.ProvisionerJobFailed)
	api.JobError = "terraform init failed"
	q := New(api)
	w := waiter.New(api, waiter.WithSleep(noSleep))

	_, err := q.CreateTemplate(w).Run(context.Background(), CreateTemplateOptions{
		OrganizationID: "org-1",
		Template:       provider.CreateTemplateRequest{Name: "docker"},
	})

	var jobErr *provider.JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("error = %v, want *provider.JobError", err)
	}
	if jobErr.Job.Error != "terraform init failed" {
		t.Errorf("Job.Error = %q", jobErr.Job.Error)
	}
	if api.CallCount("CreateTemplate") != 0 {
		t.Error("CreateTemplate should not be called after a failed build")
	}
}

func TestCreateAndBuildTemplateVersion(t *testing.T) {
	api := providertest.NewFake(provider.ProvisionerJobPending, provider.ProvisionerJobSucceeded)
	q := New(api)
	w := waiter.New(api, waiter.WithSleep(noSleep))

	version, err := q.CreateAndBuildTemplateVersion("org-1", w).Run(context.Background(), provider.CreateTemplateVersionRequest{Name: "v2"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if version.Name != "v2" {
		t.Errorf("Name = %v, want v2", version.Name)
	}
	if n := api.CallCount("GetTemplateVersion"); n != 2 {
		t.Errorf("GetTemplateVersion calls = %d, want 2", n)
	}
}

func TestCreateTemplateVersion_DoesNotWait(t *testing.T) {
	api := providertest.NewFake(provider.ProvisionerJobPending)
	q := New(api)

	if _, err := q.CreateTemplateVersion("org-1").Run(context.Background(), provider.CreateTemplateVersionRequest{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := api.CallCount("GetTemplateVersion"); n != 0 {
		t.Errorf("GetTemplateVersion calls = %d, want 0", n)
	}
}

func TestUpdateActiveTemplateVersion_InvalidatesTemplate(t *testing.T) {
	api := providertest.NewFake()
	api.Templates["t-1"] = provider.Template{ID: "t-1", OrganizationID: "org-1", Name: "docker", ActiveVersionID: "v-1"}
	q := New(api)
	cache := newCache(t)
	ctx := context.Background()

	before, err := query.Fetch(ctx, cache, q.TemplateByName("org-1", "docker"))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if before.ActiveVersionID != "v-1" {
		t.Fatalf("ActiveVersionID = %v, want v-1", before.ActiveVersionID)
	}

	if _, err := q.UpdateActiveTemplateVersion(before, cache).Run(ctx, "v-2"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	after, err := query.Fetch(ctx, cache, q.TemplateByName("org-1", "docker"))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if after.ActiveVersionID != "v-2" {
		t.Errorf("ActiveVersionID = %v, want v-2 after invalidation", after.ActiveVersionID)
	}
	if n := api.CallCount("GetTemplateByName"); n != 2 {
		t.Errorf("GetTemplateByName calls = %d, want 2", n)
	}
}

func TestSetUserAndGroupRole_InvalidateACL(t *testing.T) {
	api := providertest.NewFake()
	q := New(api)
	cache := newCache(t)
	ctx := context.Background()

	acl, _ := query.Fetch(ctx, cache, q.TemplateACL("t-1"))
	if len(acl.Users) != 0 {
		t.Fatalf("Users = %v, want empty", acl.Users)
	}

	if _, err := q.SetUserRole(cache).Run(ctx, UserRole{TemplateID: "t-1", UserID: "u-1", Role: provider.TemplateRoleAdmin}); err != nil {
		t.Fatalf("SetUserRole() error = %v", err)
	}
	acl, _ = query.Fetch(ctx, cache, q.TemplateACL("t-1"))
	if len(acl.Users) != 1 || acl.Users[0].Role != provider.TemplateRoleAdmin {
		t.Errorf("Users = %+v, want u-1 admin", acl.Users)
	}

	if _, err := q.SetGroupRole(cache).Run(ctx, GroupRole{TemplateID: "t-1", GroupID: "g-1", Role: provider.TemplateRoleUse}); err != nil {
		t.Fatalf("SetGroupRole() error = %v", err)
	}
	acl, _ = query.Fetch(ctx, cache, q.TemplateACL("t-1"))
	if len(acl.Groups) != 1 || acl.Groups[0].Role != provider.TemplateRoleUse {
		t.Errorf("Groups = %+v, want g-1 use", acl.Groups)
	}

	if n := api.CallCount("GetTemplateACL"); n != 3 {
		t.Errorf("GetTemplateACL calls = %d, want 3", n)
	}
}

func TestTemplateFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.tf"), []byte(`resource "null_resource" "a" {}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "modules", "net"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "modules", "net", "net.tf"), []byte("# net"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, ".terraform"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".terraform", "state"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	tarball, err := CreateTarball(dir)
	if err != nil {
		t.Fatalf("CreateTarball() error = %v", err)
	}

	api := providertest.NewFake()
	q := New(api)
	upload, err := q.UploadFile().Run(context.Background(), tarball)
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}

	files, err := q.TemplateFiles(upload.ID).Fn(context.Background())
	if err != nil {
		t.Fatalf("TemplateFiles() error = %v", err)
	}

	if files["main.tf"] != `resource "null_resource" "a" {}` {
		t.Errorf("main.tf = %q", files["main.tf"])
	}
	if files["modules/net/net.tf"] != "# net" {
		t.Errorf("modules/net/net.tf = %q", files["modules/net/net.tf"])
	}
	if _, ok := files[".terraform/state"]; ok {
		t.Error("hidden directories should be skipped")
	}
	if len(files) != 2 {
		t.Errorf("len(files) = %d, want 2", len(files))
	}
}

func TestExtractFiles_InvalidArchive(t *testing.T) {
	if _, err := ExtractFiles([]byte("not a tarball at all, definitely not 512 bytes")); err == nil {
		t.Error("ExtractFiles() error = nil, want error")
	}
}

func TestBuildInfoAndExamples(t *testing.T) {
	api := providertest.NewFake()
	q := New(api)
	cache := newCache(t)
	ctx := context.Background()

	info, err := query.Fetch(ctx, cache, q.BuildInfo())
	if err != nil || info.Version != "v2.0.0-test" {
		t.Errorf("BuildInfo = %+v, %v", info, err)
	}

	examples, err := query.Fetch(ctx, cache, q.TemplateExamples("org-1"))
	if err != nil || len(examples) != 1 {
		t.Errorf("TemplateExamples = %+v, %v", examples, err)
	}

	if removed := cache.Invalidate(query.Key{"org-1", "templates"}); removed != 1 {
		t.Errorf("Invalidate(templates) removed %d, want 1 (examples)", removed)
	}
}
