package hosting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/opsportal/internal/model"
)

const projectJSON = `{"id":"9f1c-proj","name":"Payments","state":"wellFormed","visibility":"private"}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, PATAuthorizer{Token: "test-pat"}, 5*time.Second)
}

// ---------- CreateRepository ----------

func TestClient_CreateRepository_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "expected basic auth")
		assert.Equal(t, "", user)
		assert.Equal(t, "test-pat", pass)
		assert.Equal(t, "7.1", r.URL.Query().Get("api-version"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/acme/_apis/projects/Payments":
			w.Write([]byte(projectJSON))
		case r.Method == http.MethodPost && r.URL.Path == "/acme/Payments/_apis/git/repositories":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ledger-svc-restore", body["name"])
			assert.Equal(t, map[string]any{"id": "9f1c-proj"}, body["project"])
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"repo-1","name":"ledger-svc-restore","webUrl":"https://dev.azure.com/acme/Payments/_git/ledger-svc-restore"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	repo, err := client.CreateRepository(context.Background(), CreateRepositoryParams{
		Organization: "acme",
		Project:      "Payments",
		Name:         "ledger-svc-restore",
		Visibility:   model.VisibilityPrivate,
	})
	require.NoError(t, err)
	assert.Equal(t, "repo-1", repo.ID)
	assert.Equal(t, "https://dev.azure.com/acme/Payments/_git/ledger-svc-restore", repo.WebURL)
}

func TestClient_CreateRepository_AlreadyExists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(projectJSON))
			return
		}
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"TF400948: A Git repository with the name ledger-svc already exists.","typeKey":"GitRepositoryNameAlreadyExistsException"}`))
	})

	_, err := client.CreateRepository(context.Background(), CreateRepositoryParams{
		Organization: "acme", Project: "Payments", Name: "ledger-svc",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.False(t, IsTransient(err))
	assert.Contains(t, err.Error(), "TF400948")
}

func TestClient_CreateRepository_VisibilityMismatch(t *testing.T) {
	posted := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posted = true
		}
		w.Write([]byte(projectJSON))
	})

	_, err := client.CreateRepository(context.Background(), CreateRepositoryParams{
		Organization: "acme", Project: "Payments", Name: "ledger-svc-restore", Visibility: model.VisibilityPublic,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVisibilityMismatch)
	assert.False(t, posted, "repository must not be created")
}

func TestClient_CreateRepository_ServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream busy"))
	})

	_, err := client.CreateRepository(context.Background(), CreateRepositoryParams{
		Organization: "acme", Project: "Payments", Name: "x",
	})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "upstream busy")
}

// ---------- Imports ----------

func TestClient_SubmitImport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/acme/Payments/_apis/git/repositories/repo-1/importRequests", r.URL.Path)

		var body importRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://store.example/blob.zip?sig=x", body.Parameters.GitSource.URL)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"importRequestId":7,"status":"queued"}`))
	})

	ir, err := client.SubmitImport(context.Background(), "acme", "Payments", "repo-1", "https://store.example/blob.zip?sig=x")
	require.NoError(t, err)
	assert.Equal(t, 7, ir.ID)
	assert.Equal(t, ImportQueued, ir.Status)
	assert.False(t, ir.Status.Done())
}

func TestClient_SubmitImport_NonGitSourceRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"TF401019: the source is not a Git repository"}`))
	})

	ir, err := client.SubmitImport(context.Background(), "acme", "Payments", "repo-1", "https://store.example/blob.zip?sig=x")
	require.Error(t, err)
	assert.Nil(t, ir)
	assert.False(t, IsTransient(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestClient_GetImport_Failed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acme/Payments/_apis/git/repositories/repo-1/importRequests/7", r.URL.Path)
		w.Write([]byte(`{"importRequestId":7,"status":"failed","detailedStatus":{"currentStep":2,"errorMessage":"source is not a git repository"}}`))
	})

	ir, err := client.GetImport(context.Background(), "acme", "Payments", "repo-1", 7)
	require.NoError(t, err)
	assert.Equal(t, ImportFailed, ir.Status)
	assert.True(t, ir.Status.Done())
	assert.Equal(t, "source is not a git repository", ir.ErrorMessage())
}

func TestClient_EscapesProjectNames(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acme/_apis/projects/Core Platform", r.URL.Path)
		w.Write([]byte(`{"id":"p2","name":"Core Platform","visibility":"private"}`))
	})

	p, err := client.GetProject(context.Background(), "acme", "Core Platform")
	require.NoError(t, err)
	assert.Equal(t, "p2", p.ID)
}

// ---------- Auth ----------

type fakeCredential struct {
	token string
	err   error
	seen  []string
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.seen = append(f.seen, opts.Scopes...)
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: f.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestTokenAuthorizer_SetsBearerToken(t *testing.T) {
	cred := &fakeCredential{token: "aad-token"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer aad-token", r.Header.Get("Authorization"))
		w.Write([]byte(projectJSON))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, NewTokenAuthorizer(cred), time.Second)
	_, err := client.GetProject(context.Background(), "acme", "Payments")
	require.NoError(t, err)
	assert.Equal(t, []string{DevOpsScope}, cred.seen)
}

func TestClient_CheckCredentials(t *testing.T) {
	client := NewClient("https://dev.azure.com", NewTokenAuthorizer(&fakeCredential{err: errors.New("no identity")}), time.Second)

	err := client.CheckCredentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no identity")
}

// ---------- IsTransient ----------

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&APIError{StatusCode: http.StatusTooManyRequests}, true},
		{&APIError{StatusCode: http.StatusBadGateway}, true},
		{&APIError{StatusCode: http.StatusForbidden}, false},
		{&APIError{StatusCode: http.StatusBadRequest}, false},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{context.Canceled, false},
		{ErrVisibilityMismatch, false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTransient(tt.err), "%v", tt.err)
	}
}
