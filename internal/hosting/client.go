package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiVersion = "7.1"

// Client talks to the Azure DevOps REST API.
type Client struct {
	baseURL    string
	auth       Authorizer
	httpClient *http.Client
}

func NewClient(baseURL string, auth Authorizer, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var reader *bytes.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	} else {
		reader = bytes.NewReader(nil)
	}

	u := c.baseURL + path + "?api-version=" + apiVersion
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.auth.Authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hosting API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(method, path, resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func orgPath(org string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(url.PathEscape(org))
	for _, p := range parts {
		b.WriteString("/")
		b.WriteString(p)
	}
	return b.String()
}

// GetProject fetches a project by name or ID.
func (c *Client) GetProject(ctx context.Context, org, project string) (*Project, error) {
	var p Project
	if err := c.doJSON(ctx, http.MethodGet, orgPath(org, "_apis/projects", url.PathEscape(project)), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateRepository creates an empty Git repository. A name collision returns
// an error matching ErrAlreadyExists.
func (c *Client) CreateRepository(ctx context.Context, params CreateRepositoryParams) (*Repository, error) {
	project, err := c.GetProject(ctx, params.Organization, params.Project)
	if err != nil {
		return nil, fmt.Errorf("get project %s/%s: %w", params.Organization, params.Project, err)
	}
	if params.Visibility != "" && !strings.EqualFold(project.Visibility, string(params.Visibility)) {
		return nil, fmt.Errorf("project %s is %s, requested %s: %w",
			project.Name, project.Visibility, params.Visibility, ErrVisibilityMismatch)
	}

	body := createRepositoryBody{Name: params.Name, Project: projectReference{ID: project.ID}}
	var repo Repository
	path := orgPath(params.Organization, url.PathEscape(params.Project), "_apis/git/repositories")
	if err := c.doJSON(ctx, http.MethodPost, path, body, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// SubmitImport queues a server-side import of sourceURL into an existing,
// empty repository. The hosting service clones sourceURL as a Git remote; it
// does not unpack archives. A zip of a bare repository that is not served as
// a cloneable Git source fails the import, which callers report together with
// a download link so the capture can be pushed by hand.
func (c *Client) SubmitImport(ctx context.Context, org, project, repositoryID, sourceURL string) (*ImportRequest, error) {
	body := importRequestBody{Parameters: importParameters{GitSource: gitSource{URL: sourceURL}}}
	var ir ImportRequest
	path := orgPath(org, url.PathEscape(project), "_apis/git/repositories", url.PathEscape(repositoryID), "importRequests")
	if err := c.doJSON(ctx, http.MethodPost, path, body, &ir); err != nil {
		return nil, err
	}
	return &ir, nil
}

func (c *Client) GetImport(ctx context.Context, org, project, repositoryID string, importID int) (*ImportRequest, error) {
	var ir ImportRequest
	path := orgPath(org, url.PathEscape(project), "_apis/git/repositories", url.PathEscape(repositoryID),
		"importRequests", fmt.Sprint(importID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &ir); err != nil {
		return nil, err
	}
	return &ir, nil
}

// CheckCredentials verifies that a credential can be attached to a request,
// which for token credentials means a token can be acquired.
func (c *Client) CheckCredentials(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.auth.Authorize(ctx, req)
}
