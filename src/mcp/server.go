// Package mcp exposes template version builds as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"provisioner-watch/src/pipeline"
	"provisioner-watch/src/provider"
	"provisioner-watch/src/query"
	"provisioner-watch/src/sanitize"
	"provisioner-watch/src/templates"
)

// defaultLogLimit is the number of log lines returned when no limit is given.
const defaultLogLimit = 200

// Server is the MCP server for provisioner-watch.
type Server struct {
	mcpServer *server.MCPServer
	queries   *templates.Queries
	cache     *query.Cache
	watcher   *pipeline.Watcher
}

// WaitResult is the response of wait_template_version.
type WaitResult struct {
	WatchID      string `json:"watch_id"`
	VersionID    string `json:"version_id"`
	Status       string `json:"status"`
	Observations int    `json:"observations"`
}

// CreateTemplateResult is the response of create_template.
type CreateTemplateResult struct {
	Template provider.Template `json:"template"`
	// WatchID identifies the recorded wait on the template's first version.
	WatchID string `json:"watch_id"`
}

// NewServer creates a new MCP server.
func NewServer(api provider.API, watcher *pipeline.Watcher, cache *query.Cache) *Server {
	s := server.NewMCPServer(
		"provisioner-watch",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		queries:   templates.New(api),
		cache:     cache,
		watcher:   watcher,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	getTool := mcp.NewTool("get_template_version",
		mcp.WithDescription("Get a Coder template version, including the status of its provisioner job."),
		mcp.WithString("version_id",
			mcp.Required(),
			mcp.Description("Template version ID"),
		),
	)

	waitTool := mcp.NewTool("wait_template_version",
		mcp.WithDescription("Wait until a template version build finishes. Returns the final status and how many times the version was polled. A failed or canceled build is returned as an error carrying the provisioner job error."),
		mcp.WithString("version_id",
			mcp.Required(),
			mcp.Description("Template version ID"),
		),
	)

	logsTool := mcp.NewTool("template_version_logs",
		mcp.WithDescription("Get the provisioner logs of a template version build, with terminal colours removed and repetitive progress lines collapsed."),
		mcp.WithString("version_id",
			mcp.Required(),
			mcp.Description("Template version ID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max log lines, counted from the end (default: 200)"),
		),
	)

	createTool := mcp.NewTool("create_template",
		mcp.WithDescription("Create a template from an uploaded source archive: creates a version, waits for its build to succeed, then creates the template with it as the active version."),
		mcp.WithString("organization_id",
			mcp.Required(),
			mcp.Description("Organization ID"),
		),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("ID of the uploaded template source tar"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Template name"),
		),
		mcp.WithString("display_name",
			mcp.Description("Human readable template name"),
		),
	)

	s.mcpServer.AddTool(getTool, s.handleGetTemplateVersion)
	s.mcpServer.AddTool(waitTool, s.handleWaitTemplateVersion)
	s.mcpServer.AddTool(logsTool, s.handleTemplateVersionLogs)
	s.mcpServer.AddTool(createTool, s.handleCreateTemplate)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// version returns the template version, serving it from the cache only once its
// job finished. Finished versions no longer change.
func (s *Server) version(ctx context.Context, versionID string) (provider.TemplateVersion, error) {
	q := s.queries.TemplateVersion(versionID)

	version, err := query.Fetch(ctx, s.cache, q)
	if err != nil {
		return provider.TemplateVersion{}, err
	}
	if !version.Job.Status.IsActive() {
		return version, nil
	}

	s.cache.Invalidate(templates.TemplateVersionKey(versionID))
	return query.Fetch(ctx, s.cache, q)
}

func (s *Server) handleGetTemplateVersion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	versionID := request.GetString("version_id", "")
	if versionID == "" {
		return mcp.NewToolResultError("version_id parameter is required"), nil
	}

	version, err := s.version(ctx, versionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get template version: %v", provider.WrapError(err))), nil
	}

	return jsonResult(version)
}

func (s *Server) handleWaitTemplateVersion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	versionID := request.GetString("version_id", "")
	if versionID == "" {
		return mcp.NewToolResultError("version_id parameter is required"), nil
	}

	version, err := s.version(ctx, versionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get template version: %v", provider.WrapError(err))), nil
	}

	result, err := s.watcher.Watch(ctx, version, nil)
	// The cached entries describe a build that has since moved on
	s.cache.Invalidate(templates.TemplateVersionKey(versionID))

	var jobErr *provider.JobError
	if errors.As(err, &jobErr) {
		return mcp.NewToolResultError(jobErr.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("wait failed: %v", provider.WrapError(err))), nil
	}

	return jsonResult(WaitResult{
		WatchID:      result.WatchID,
		VersionID:    result.VersionID,
		Status:       string(result.Final.Job.Status),
		Observations: result.Observations,
	})
}

func (s *Server) handleTemplateVersionLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	versionID := request.GetString("version_id", "")
	if versionID == "" {
		return mcp.NewToolResultError("version_id parameter is required"), nil
	}
	limit := request.GetInt("limit", defaultLogLimit)

	// Refreshes the version and drops cached logs of a build still in progress
	if _, err := s.version(ctx, versionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get template version: %v", provider.WrapError(err))), nil
	}

	logs, err := query.Fetch(ctx, s.cache, s.queries.TemplateVersionLogs(versionID))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get logs: %v", provider.WrapError(err))), nil
	}

	text := compressLogs(sanitize.FormatLogs(logs), limit)
	if text == "" {
		text = "no logs"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleCreateTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	organizationID := request.GetString("organization_id", "")
	fileID := request.GetString("file_id", "")
	name := request.GetString("name", "")
	if organizationID == "" || fileID == "" || name == "" {
		return mcp.NewToolResultError("organization_id, file_id and name parameters are required"), nil
	}

	var watch pipeline.Result
	recorder := s.watcher.Recorder(func(r pipeline.Result) { watch = r })

	template, err := s.queries.CreateTemplate(recorder).Run(ctx, templates.CreateTemplateOptions{
		OrganizationID: organizationID,
		Version: provider.CreateTemplateVersionRequest{
			FileID: fileID,
		},
		Template: provider.CreateTemplateRequest{
			Name:        name,
			DisplayName: request.GetString("display_name", ""),
		},
	})

	var jobErr *provider.JobError
	if errors.As(err, &jobErr) {
		return mcp.NewToolResultError(fmt.Sprintf("%s (watch %s)", jobErr.Error(), watch.WatchID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create template: %v", provider.WrapError(err))), nil
	}

	s.cache.Invalidate(query.Key{organizationID, "templates"})
	return jsonResult(CreateTemplateResult{Template: template, WatchID: watch.WatchID})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
