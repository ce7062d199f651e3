package coder

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"provisioner-watch/src/provider"
)

func TestClient_DeploymentRoutes(t *testing.T) {
	startsAt := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		call      func(ctx context.Context, c *Client) error
		method    string
		path      string
		wantQuery map[string]string
		status    int
		body      string
	}{
		{
			name: "intel cohorts",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetIntelCohorts(ctx, "org-1")
				return err
			},
			method: http.MethodGet,
			path:   "/api/v2/organizations/org-1/intel/cohorts",
			body:   "[]",
		},
		{
			name: "intel cohorts default organization",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetIntelCohorts(ctx, "")
				return err
			},
			method: http.MethodGet,
			path:   "/api/v2/organizations/default/intel/cohorts",
			body:   "[]",
		},
		{
			name: "create intel cohort",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.CreateIntelCohort(ctx, "org-1", provider.CreateIntelCohortRequest{Name: "go"})
				return err
			},
			method: http.MethodPost,
			path:   "/api/v2/organizations/org-1/intel/cohorts",
			status: http.StatusCreated,
		},
		{
			name: "intel machines",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetIntelMachines(ctx, "org-1", provider.IntelMachinesRequest{
					MetadataMatch: provider.MetadataMatch{"os": "^linux$"},
					Limit:         10,
				})
				return err
			},
			method:    http.MethodGet,
			path:      "/api/v2/organizations/org-1/intel/machines",
			wantQuery: map[string]string{"offset": "0", "limit": "10", "metadata": `{"os":"^linux$"}`},
		},
		{
			name: "intel machines without metadata",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetIntelMachines(ctx, "org-1", provider.IntelMachinesRequest{Offset: 5})
				return err
			},
			method:    http.MethodGet,
			path:      "/api/v2/organizations/org-1/intel/machines",
			wantQuery: map[string]string{"offset": "5", "limit": "0", "metadata": ""},
		},
		{
			name: "intel report since date",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetIntelReport(ctx, "org-1", provider.IntelReportRequest{StartsAt: startsAt})
				return err
			},
			method:    http.MethodGet,
			path:      "/api/v2/organizations/org-1/intel/report",
			wantQuery: map[string]string{"starts_at": "2024-03-09"},
		},
		{
			name: "intel report",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetIntelReport(ctx, "org-1", provider.IntelReportRequest{})
				return err
			},
			method:    http.MethodGet,
			path:      "/api/v2/organizations/org-1/intel/report",
			wantQuery: map[string]string{"starts_at": ""},
		},
		{
			name: "refresh intel report",
			call: func(ctx context.Context, c *Client) error {
				return c.RefreshIntelReport(ctx, "org-1")
			},
			method: http.MethodPost,
			path:   "/api/v2/organizations/org-1/intel/report",
			status: http.StatusNoContent,
		},
		{
			name: "entitlements",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetEntitlements(ctx)
				return err
			},
			method: http.MethodGet,
			path:   "/api/v2/entitlements",
		},
		{
			name: "refresh entitlements",
			call: func(ctx context.Context, c *Client) error {
				return c.RefreshEntitlements(ctx)
			},
			method: http.MethodPost,
			path:   "/api/v2/licenses/refresh-entitlements",
			status: http.StatusNoContent,
		},
		{
			name: "appearance",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetAppearance(ctx)
				return err
			},
			method: http.MethodGet,
			path:   "/api/v2/appearance",
		},
		{
			name: "update appearance",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.UpdateAppearance(ctx, provider.UpdateAppearanceConfig{ApplicationName: "Coder"})
				return err
			},
			method: http.MethodPut,
			path:   "/api/v2/appearance",
		},
		{
			name: "quiet hours",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetUserQuietHoursSchedule(ctx, "me")
				return err
			},
			method: http.MethodGet,
			path:   "/api/v2/users/me/quiet-hours",
		},
		{
			name: "update quiet hours",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.UpdateUserQuietHoursSchedule(ctx, "me", provider.UpdateUserQuietHoursScheduleRequest{Schedule: "CRON_TZ=UTC 0 2 * * *"})
				return err
			},
			method: http.MethodPut,
			path:   "/api/v2/users/me/quiet-hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				called = true
				if r.Method != tt.method {
					t.Errorf("Method = %v, want %v", r.Method, tt.method)
				}
				if r.URL.Path != tt.path {
					t.Errorf("Path = %v, want %v", r.URL.Path, tt.path)
				}
				for key, want := range tt.wantQuery {
					if got := r.URL.Query().Get(key); got != want {
						t.Errorf("query %s = %q, want %q", key, got, want)
					}
				}

				status := tt.status
				if status == 0 {
					status = http.StatusOK
				}
				if status == http.StatusNoContent {
					w.WriteHeader(status)
					return
				}
				body := tt.body
				if body == "" {
					body = "{}"
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				w.Write([]byte(body))
			})

			if err := tt.call(context.Background(), client); err != nil {
				t.Fatalf("call error = %v", err)
			}
			if !called {
				t.Error("server was not called")
			}
		})
	}
}

func TestClient_CreateIntelCohort_InvalidPattern(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request sent with an invalid pattern")
	})

	_, err := client.CreateIntelCohort(context.Background(), "org-1", provider.CreateIntelCohortRequest{
		Name:          "broken",
		MetadataMatch: provider.MetadataMatch{"os": "("},
	})
	if err == nil {
		t.Fatal("CreateIntelCohort() error = nil, want pattern error")
	}
}

func TestClient_GetIntelReport_Decodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(provider.IntelReport{
			Invocations: 42,
			Intervals: []provider.IntelInvocationSummary{{
				BinaryName:       "go",
				ExitCodes:        map[string]int64{"0": 40, "1": 2},
				TotalInvocations: 42,
			}},
		})
	})

	report, err := client.GetIntelReport(context.Background(), "org-1", provider.IntelReportRequest{})
	if err != nil {
		t.Fatalf("GetIntelReport() error = %v", err)
	}
	if report.Invocations != 42 || len(report.Intervals) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if got := report.Intervals[0].ExitCodes["1"]; got != 2 {
		t.Errorf("exit code 1 count = %d, want 2", got)
	}
}
