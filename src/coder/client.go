// Package coder provides a client for the Coder HTTP API.
package coder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"provisioner-watch/src/provider"
)

// SessionTokenHeader carries the API token on every request.
const SessionTokenHeader = "Coder-Session-Token"

// Client is a Coder API client. It implements provider.API.
type Client struct {
	baseURL      *url.URL
	sessionToken string
	httpClient   *http.Client
}

var _ provider.API = (*Client)(nil)

// Error is a non-2xx API response.
type Error struct {
	StatusCode  int    `json:"-"`
	Message     string `json:"message"`
	Detail      string `json:"detail"`
	Validations []struct {
		Field  string `json:"field"`
		Detail string `json:"detail"`
	} `json:"validations,omitempty"`
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "API request failed with status %d", e.StatusCode)
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	for _, v := range e.Validations {
		fmt.Fprintf(&b, "\n\t%s: %s", v.Field, v.Detail)
	}
	return b.String()
}

// Unwrap maps status codes onto the provider sentinels.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return provider.ErrAuthFailed
	case http.StatusNotFound:
		return provider.ErrNotFound
	case http.StatusTooManyRequests:
		return provider.ErrRateLimited
	}
	return nil
}

// NewClient creates a new Coder API client for the deployment at rawURL.
func NewClient(rawURL, sessionToken string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid Coder URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid Coder URL %q: scheme must be http or https", rawURL)
	}

	return &Client{
		baseURL:      u,
		sessionToken: sessionToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// BaseURL returns the deployment URL the client talks to.
func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	// path arrives with its segments escaped; keep them that way on the wire
	rawPath := c.baseURL.EscapedPath() + "/api/v2" + path
	unescaped, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", rawPath, err)
	}
	u := *c.baseURL
	u.Path, u.RawPath = unescaped, rawPath
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(SessionTokenHeader, c.sessionToken)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readError(resp)
	}

	return resp, nil
}

func readError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(resp.Body)
	if len(body) > 0 {
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

// requestJSON sends in (if non-nil) as JSON and decodes the response into out (if non-nil).
func (c *Client) requestJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetTemplateVersion fetches a template version and its provisioner job.
func (c *Client) GetTemplateVersion(ctx context.Context, versionID string) (provider.TemplateVersion, error) {
	var version provider.TemplateVersion
	err := c.requestJSON(ctx, http.MethodGet, "/templateversions/"+url.PathEscape(versionID), nil, nil, &version)
	return version, err
}

// GetTemplateVersionByName fetches a version of a template by its name.
func (c *Client) GetTemplateVersionByName(ctx context.Context, organizationID, templateName, versionName string) (provider.TemplateVersion, error) {
	var version provider.TemplateVersion
	path := fmt.Sprintf("/organizations/%s/templates/%s/versions/%s",
		url.PathEscape(organizationID), url.PathEscape(templateName), url.PathEscape(versionName))
	err := c.requestJSON(ctx, http.MethodGet, path, nil, nil, &version)
	return version, err
}

// GetPreviousTemplateVersionByName returns the version created before versionName.
// A 404 means there is no previous version and is reported as nil, nil.
func (c *Client) GetPreviousTemplateVersionByName(ctx context.Context, organizationID, templateName, versionName string) (*provider.TemplateVersion, error) {
	var version provider.TemplateVersion
	path := fmt.Sprintf("/organizations/%s/templates/%s/versions/%s/previous",
		url.PathEscape(organizationID), url.PathEscape(templateName), url.PathEscape(versionName))
	err := c.requestJSON(ctx, http.MethodGet, path, nil, nil, &version)
	if errors.Is(err, provider.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetTemplateVersions lists every version of a template.
func (c *Client) GetTemplateVersions(ctx context.Context, templateID string) ([]provider.TemplateVersion, error) {
	var versions []provider.TemplateVersion
	err := c.requestJSON(ctx, http.MethodGet, "/templates/"+url.PathEscape(templateID)+"/versions", nil, nil, &versions)
	return versions, err
}

// GetTemplateVersionVariables lists the Terraform variables of a version.
func (c *Client) GetTemplateVersionVariables(ctx context.Context, versionID string) ([]provider.TemplateVersionVariable, error) {
	var variables []provider.TemplateVersionVariable
	err := c.requestJSON(ctx, http.MethodGet, "/templateversions/"+url.PathEscape(versionID)+"/variables", nil, nil, &variables)
	return variables, err
}

// GetTemplateVersionLogs fetches the provisioner output of a version's job.
func (c *Client) GetTemplateVersionLogs(ctx context.Context, versionID string) ([]provider.ProvisionerJobLog, error) {
	var logs []provider.ProvisionerJobLog
	err := c.requestJSON(ctx, http.MethodGet, "/templateversions/"+url.PathEscape(versionID)+"/logs", nil, nil, &logs)
	return logs, err
}

// GetTemplateVersionRichParameters lists the rich parameters of a version.
func (c *Client) GetTemplateVersionRichParameters(ctx context.Context, versionID string) ([]provider.TemplateVersionParameter, error) {
	var params []provider.TemplateVersionParameter
	err := c.requestJSON(ctx, http.MethodGet, "/templateversions/"+url.PathEscape(versionID)+"/rich-parameters", nil, nil, &params)
	return params, err
}

// GetTemplateVersionResources lists the resources a version provisions.
func (c *Client) GetTemplateVersionResources(ctx context.Context, versionID string) ([]provider.WorkspaceResource, error) {
	var resources []provider.WorkspaceResource
	err := c.requestJSON(ctx, http.MethodGet, "/templateversions/"+url.PathEscape(versionID)+"/resources", nil, nil, &resources)
	return resources, err
}

// GetTemplateVersionExternalAuth lists the external auth providers a version needs.
func (c *Client) GetTemplateVersionExternalAuth(ctx context.Context, versionID string) ([]provider.TemplateVersionExternalAuth, error) {
	var auths []provider.TemplateVersionExternalAuth
	err := c.requestJSON(ctx, http.MethodGet, "/templateversions/"+url.PathEscape(versionID)+"/external-auth", nil, nil, &auths)
	return auths, err
}

// CreateTemplateVersion creates a version and enqueues its import job.
func (c *Client) CreateTemplateVersion(ctx context.Context, organizationID string, req provider.CreateTemplateVersionRequest) (provider.TemplateVersion, error) {
	if req.StorageMethod == "" {
		req.StorageMethod = "file"
	}
	if req.Provisioner == "" {
		req.Provisioner = "terraform"
	}

	var version provider.TemplateVersion
	err := c.requestJSON(ctx, http.MethodPost, "/organizations/"+url.PathEscape(organizationID)+"/templateversions", nil, req, &version)
	return version, err
}

// CreateTemplate creates a template from an already built version.
func (c *Client) CreateTemplate(ctx context.Context, organizationID string, req provider.CreateTemplateRequest) (provider.Template, error) {
	var template provider.Template
	err := c.requestJSON(ctx, http.MethodPost, "/organizations/"+url.PathEscape(organizationID)+"/templates", nil, req, &template)
	return template, err
}

// GetTemplateByName fetches a template by organization and name.
func (c *Client) GetTemplateByName(ctx context.Context, organizationID, name string) (provider.Template, error) {
	var template provider.Template
	path := fmt.Sprintf("/organizations/%s/templates/%s", url.PathEscape(organizationID), url.PathEscape(name))
	err := c.requestJSON(ctx, http.MethodGet, path, nil, nil, &template)
	return template, err
}

// GetTemplates lists the templates of an organization.
func (c *Client) GetTemplates(ctx context.Context, organizationID string, req provider.TemplatesRequest) ([]provider.Template, error) {
	var query url.Values
	if req.Deprecated != nil {
		query = url.Values{"deprecated": []string{strconv.FormatBool(*req.Deprecated)}}
	}

	var templates []provider.Template
	err := c.requestJSON(ctx, http.MethodGet, "/organizations/"+url.PathEscape(organizationID)+"/templates", query, nil, &templates)
	return templates, err
}

// UpdateActiveTemplateVersion promotes a version on a template.
func (c *Client) UpdateActiveTemplateVersion(ctx context.Context, templateID string, req provider.UpdateActiveTemplateVersion) error {
	return c.requestJSON(ctx, http.MethodPatch, "/templates/"+url.PathEscape(templateID)+"/versions", nil, req, nil)
}

// GetTemplateACL fetches who has access to a template.
func (c *Client) GetTemplateACL(ctx context.Context, templateID string) (provider.TemplateACL, error) {
	var acl provider.TemplateACL
	err := c.requestJSON(ctx, http.MethodGet, "/templates/"+url.PathEscape(templateID)+"/acl", nil, nil, &acl)
	return acl, err
}

// UpdateTemplateACL patches a template's ACL.
func (c *Client) UpdateTemplateACL(ctx context.Context, templateID string, req provider.UpdateTemplateACL) error {
	return c.requestJSON(ctx, http.MethodPatch, "/templates/"+url.PathEscape(templateID)+"/acl", nil, req, nil)
}

// GetTemplateACLAvailable lists users and groups that can be added to a template ACL.
func (c *Client) GetTemplateACLAvailable(ctx context.Context, templateID string, req provider.UsersRequest) (provider.ACLAvailable, error) {
	query := url.Values{}
	if req.Search != "" {
		query.Set("q", req.Search)
	}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		query.Set("offset", strconv.Itoa(req.Offset))
	}

	var available provider.ACLAvailable
	err := c.requestJSON(ctx, http.MethodGet, "/templates/"+url.PathEscape(templateID)+"/acl/available", query, nil, &available)
	return available, err
}

// GetTemplateExamples lists starter templates.
func (c *Client) GetTemplateExamples(ctx context.Context, organizationID string) ([]provider.TemplateExample, error) {
	var examples []provider.TemplateExample
	err := c.requestJSON(ctx, http.MethodGet, "/organizations/"+url.PathEscape(organizationID)+"/templates/examples", nil, nil, &examples)
	return examples, err
}

// UploadFile uploads a tar archive of template source.
func (c *Client) UploadFile(ctx context.Context, tarball []byte) (provider.UploadResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/files", nil, bytes.NewReader(tarball), "application/x-tar")
	if err != nil {
		return provider.UploadResponse{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return provider.UploadResponse{}, err
	}
	defer resp.Body.Close()

	var upload provider.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return provider.UploadResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return upload, nil
}

// GetFile downloads an uploaded archive.
func (c *Client) GetFile(ctx context.Context, fileID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID), nil, nil, "")
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	return data, nil
}

// GetBuildInfo fetches the server's build information.
func (c *Client) GetBuildInfo(ctx context.Context) (provider.BuildInfoResponse, error) {
	var info provider.BuildInfoResponse
	err := c.requestJSON(ctx, http.MethodGet, "/buildinfo", nil, nil, &info)
	return info, err
}
