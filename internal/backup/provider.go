package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/opsportal/internal/model"
	"github.com/edvin/opsportal/internal/objectstore"
)

// Provider is the catalog and restore capability used by the API. The live
// Service and the synthetic MockProvider both implement it.
type Provider interface {
	ListRepositories(ctx context.Context) ([]model.RepositorySummary, error)
	ListVersions(ctx context.Context, id model.RepositoryIdentity) ([]model.BackupCapture, error)
	PreviewRestore(ctx context.Context, ref model.CaptureRef) (*model.RestorePreview, error)
	IssueDownloadLink(ctx context.Context, ref model.CaptureRef) (*model.DownloadLink, error)
	Restore(ctx context.Context, req model.RestoreRequest) model.RestoreOutcome
	Ping(ctx context.Context) error
}

type Options struct {
	Prefix         string
	Retention      time.Duration
	LinkTTL        time.Duration
	Retry          RetryPolicy
	PollInterval   time.Duration
	ImportTimeout  time.Duration
	RestoreTimeout time.Duration
}

// Service is the live Provider backed by an object store and a hosting API.
type Service struct {
	store        objectstore.Store
	hosting      HostingClient
	catalog      *Catalog
	links        *LinkIssuer
	orchestrator *Orchestrator
}

var _ Provider = (*Service)(nil)

func NewService(store objectstore.Store, hc HostingClient, opts Options, logger zerolog.Logger) *Service {
	catalog := NewCatalog(store, NewParser(opts.Prefix), opts.Retention, opts.Retry, logger)
	links := NewLinkIssuer(catalog, store, opts.LinkTTL, opts.Retry, logger)
	return &Service{
		store:        store,
		hosting:      hc,
		catalog:      catalog,
		links:        links,
		orchestrator: NewOrchestrator(catalog, links, hc, opts.Retry, opts.PollInterval, opts.ImportTimeout, opts.RestoreTimeout, logger),
	}
}

func (s *Service) ListRepositories(ctx context.Context) ([]model.RepositorySummary, error) {
	return s.catalog.ListRepositories(ctx)
}

func (s *Service) ListVersions(ctx context.Context, id model.RepositoryIdentity) ([]model.BackupCapture, error) {
	return s.catalog.ListVersions(ctx, id)
}

func (s *Service) PreviewRestore(ctx context.Context, ref model.CaptureRef) (*model.RestorePreview, error) {
	return s.orchestrator.Preview(ctx, ref)
}

func (s *Service) IssueDownloadLink(ctx context.Context, ref model.CaptureRef) (*model.DownloadLink, error) {
	return s.links.Issue(ctx, ref)
}

func (s *Service) Restore(ctx context.Context, req model.RestoreRequest) model.RestoreOutcome {
	return s.orchestrator.Restore(ctx, req)
}

// Ping checks the object store and the hosting credential concurrently.
func (s *Service) Ping(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.store.Ping(ctx); err != nil {
			return fmt.Errorf("object store %s: %w", s.store.Name(), err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.hosting.CheckCredentials(ctx); err != nil {
			return fmt.Errorf("hosting API: %w", err)
		}
		return nil
	})
	return g.Wait()
}
