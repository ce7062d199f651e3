// +build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"provisioner-watch/src/coder"
	"provisioner-watch/src/provider"
	"provisioner-watch/src/waiter"
)

func newClient(t *testing.T) *coder.Client {
	t.Helper()
	url := os.Getenv("CODER_URL")
	token := os.Getenv("CODER_SESSION_TOKEN")
	if url == "" || token == "" {
		t.Skip("CODER_URL or CODER_SESSION_TOKEN not set, skipping integration test")
	}

	client, err := coder.NewClient(url, token)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestCoderBuildInfo(t *testing.T) {
	client := newClient(t)

	info, err := client.GetBuildInfo(context.Background())
	if err != nil {
		t.Fatalf("GetBuildInfo failed: %v", err)
	}
	if info.Version == "" {
		t.Error("Expected a server version")
	}

	t.Logf("Connected to Coder %s", info.Version)
}

func TestCoderWaitTemplateVersion(t *testing.T) {
	client := newClient(t)

	versionID := os.Getenv("TEST_TEMPLATE_VERSION_ID")
	if versionID == "" {
		t.Skip("TEST_TEMPLATE_VERSION_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	version, err := client.GetTemplateVersion(ctx, versionID)
	if err != nil {
		t.Fatalf("GetTemplateVersion failed: %v", err)
	}

	polls := 0
	id, err := waiter.New(client).WaitBuildToBeFinished(ctx, version, func(v provider.TemplateVersion) {
		polls++
	})
	if err != nil {
		t.Fatalf("WaitBuildToBeFinished failed after %d polls: %v", polls, err)
	}
	if id != versionID {
		t.Errorf("Expected %s, got %s", versionID, id)
	}

	t.Logf("Version %s finished after %d polls", id, polls)
}

func TestCoderEntitlements(t *testing.T) {
	client := newClient(t)

	entitlements, err := client.GetEntitlements(context.Background())
	if err != nil {
		t.Fatalf("GetEntitlements failed: %v", err)
	}

	t.Logf("License present: %v, %d features", entitlements.HasLicense, len(entitlements.Features))
}
