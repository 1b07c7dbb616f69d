package backup

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/edvin/opsportal/internal/model"
)

type mockRepository struct {
	id       model.RepositoryIdentity
	captures int
}

var mockRepositories = []mockRepository{
	{model.RepositoryIdentity{Organization: "myorg", Project: "ProjectAlpha", Repository: "infra-terraform"}, 45},
	{model.RepositoryIdentity{Organization: "myorg", Project: "ProjectAlpha", Repository: "core-app"}, 42},
	{model.RepositoryIdentity{Organization: "myorg", Project: "ProjectBeta", Repository: "api-service"}, 38},
}

// MockProvider serves synthetic catalog data for local development. Its
// catalog depends only on the anchor time it was created with; download links
// expire relative to the time they are issued. Restores never reach an
// external system; they succeed unless the target is invalid or names one of
// the synthetic repositories.
type MockProvider struct {
	anchor    time.Time
	retention time.Duration
	linkTTL   time.Duration
	versions  map[model.RepositoryIdentity][]model.BackupCapture
	now       func() time.Time
}

var _ Provider = (*MockProvider)(nil)

func NewMockProvider(anchor time.Time) *MockProvider {
	m := &MockProvider{
		anchor:    anchor.UTC().Truncate(time.Minute),
		retention: model.DefaultRetention,
		linkTTL:   DefaultLinkTTL,
		versions:  make(map[model.RepositoryIdentity][]model.BackupCapture),
		now:       time.Now,
	}
	parser := NewParser("")
	for r, repo := range mockRepositories {
		captures := make([]model.BackupCapture, 0, repo.captures)
		// Stagger repositories so their most recent captures differ.
		latest := m.anchor.Add(-time.Duration(r) * 150 * time.Minute)
		for i := 0; i < repo.captures; i++ {
			at := latest.AddDate(0, 0, -i)
			stamp := at.Format(model.CaptureStampLayout)
			key, err := parser.ObjectKey(model.CaptureRef{RepositoryIdentity: repo.id, BackupID: stamp})
			if err != nil {
				panic(fmt.Sprintf("mock repository %s: %v", repo.id, err))
			}
			size := int64(15728640 + i*1024)
			captures = append(captures, model.BackupCapture{
				RepositoryIdentity: repo.id,
				ID:                 stamp,
				CapturedAt:         at,
				SizeBytes:          size,
				SizeMB:             model.BytesToMB(size),
				ObjectKey:          key,
				RetentionExpiresAt: at.Add(m.retention),
			})
		}
		m.versions[repo.id] = captures
	}
	return m
}

func (m *MockProvider) ListRepositories(_ context.Context) ([]model.RepositorySummary, error) {
	summaries := make([]model.RepositorySummary, 0, len(m.versions))
	for id, captures := range m.versions {
		summaries = append(summaries, model.RepositorySummary{
			RepositoryIdentity:  id,
			ID:                  id.String(),
			CaptureCount:        len(captures),
			MostRecentCaptureAt: captures[0].CapturedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RepositoryIdentity.Less(summaries[j].RepositoryIdentity)
	})
	return summaries, nil
}

func (m *MockProvider) ListVersions(_ context.Context, id model.RepositoryIdentity) ([]model.BackupCapture, error) {
	captures := m.versions[id]
	out := make([]model.BackupCapture, len(captures))
	copy(out, captures)
	return out, nil
}

func (m *MockProvider) resolve(ref model.CaptureRef) (model.BackupCapture, error) {
	for _, c := range m.versions[ref.RepositoryIdentity] {
		if c.ID == ref.BackupID {
			return c, nil
		}
	}
	return model.BackupCapture{}, fmt.Errorf("%w: %s@%s", ErrObjectNotFound, ref.RepositoryIdentity, ref.BackupID)
}

func (m *MockProvider) PreviewRestore(_ context.Context, ref model.CaptureRef) (*model.RestorePreview, error) {
	c, err := m.resolve(ref)
	if err != nil {
		return nil, err
	}
	return &model.RestorePreview{
		SourceOrganization:            c.Organization,
		SourceProject:                 c.Project,
		SourceRepository:              c.Repository,
		BackupID:                      c.ID,
		CapturedAt:                    c.CapturedAt,
		SizeBytes:                     c.SizeBytes,
		SizeMB:                        c.SizeMB,
		SuggestedTargetRepositoryName: SuggestTargetName(c),
	}, nil
}

func (m *MockProvider) IssueDownloadLink(_ context.Context, ref model.CaptureRef) (*model.DownloadLink, error) {
	c, err := m.resolve(ref)
	if err != nil {
		return nil, err
	}
	return &model.DownloadLink{
		URL:       "https://mock-storage.example.com/download/" + c.ObjectKey + "?mock=true",
		ExpiresAt: m.now().UTC().Add(m.linkTTL).Truncate(time.Second),
	}, nil
}

func (m *MockProvider) Restore(_ context.Context, req model.RestoreRequest) model.RestoreOutcome {
	fail := func(stage model.RestoreStage, err error) model.RestoreOutcome {
		return model.RestoreOutcome{
			RestoreID: uuid.NewString(),
			Status:    model.RestoreFailed,
			Message:   fmt.Sprintf("Mock restore failed while %s: %v", stageVerb(stage), err),
			Failure:   &model.FailureDetail{Stage: stage, Kind: KindOf(err), Retryable: IsRetryable(err)},
		}
	}

	if err := validateTarget(&req); err != nil {
		return fail(model.StageValidating, err)
	}
	c, err := m.resolve(req.Source)
	if err != nil {
		return fail(model.StageValidating, err)
	}
	target := model.RepositoryIdentity{
		Organization: req.TargetOrganization,
		Project:      req.TargetProject,
		Repository:   req.TargetRepositoryName,
	}
	if _, exists := m.versions[target]; exists {
		return fail(model.StageCreatingTarget, fmt.Errorf("%w: %s", ErrTargetAlreadyExists, target))
	}

	return model.RestoreOutcome{
		RestoreID: uuid.NewString(),
		Status:    model.RestoreSucceeded,
		Message:   fmt.Sprintf("Mock restore: %s -> %s", c.ID, target),
		CreatedRepositoryURL: fmt.Sprintf("https://dev.azure.com/%s/%s/_git/%s",
			url.PathEscape(target.Organization), url.PathEscape(target.Project), url.PathEscape(target.Repository)),
	}
}

func (m *MockProvider) Ping(_ context.Context) error {
	return nil
}
