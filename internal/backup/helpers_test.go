package backup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/opsportal/internal/hosting"
	"github.com/edvin/opsportal/internal/objectstore"
)

const testPrefix = "git-backups"

// mockHosting implements HostingClient for orchestrator tests.
type mockHosting struct {
	mock.Mock
}

func (m *mockHosting) CreateRepository(ctx context.Context, params hosting.CreateRepositoryParams) (*hosting.Repository, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hosting.Repository), args.Error(1)
}

func (m *mockHosting) SubmitImport(ctx context.Context, org, project, repositoryID, sourceURL string) (*hosting.ImportRequest, error) {
	args := m.Called(ctx, org, project, repositoryID, sourceURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hosting.ImportRequest), args.Error(1)
}

func (m *mockHosting) GetImport(ctx context.Context, org, project, repositoryID string, importID int) (*hosting.ImportRequest, error) {
	args := m.Called(ctx, org, project, repositoryID, importID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hosting.ImportRequest), args.Error(1)
}

func (m *mockHosting) CheckCredentials(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func fastRetry() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func testOptions() Options {
	return Options{
		Prefix:        testPrefix,
		Retry:         fastRetry(),
		LinkTTL:       15 * time.Minute,
		PollInterval:  time.Millisecond,
		ImportTimeout: 250 * time.Millisecond,
	}
}

func newTestCatalog(store objectstore.Store) *Catalog {
	return NewCatalog(store, NewParser(testPrefix), 0, fastRetry(), zerolog.Nop())
}

func stamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// ledgerStore holds the two ledger-svc captures used across tests.
func ledgerStore() *objectstore.Memory {
	m := objectstore.NewMemory(testPrefix)
	m.Put("git-backups/acme/Payments/ledger-svc/2025-01-10-0930.zip", 10<<20, stamp("2025-01-10T09:31:00Z"))
	m.Put("git-backups/acme/Payments/ledger-svc/2025-02-01-1200.zip", 12<<20, stamp("2025-02-01T12:01:00Z"))
	return m
}
