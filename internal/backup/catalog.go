package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/opsportal/internal/metrics"
	"github.com/edvin/opsportal/internal/model"
	"github.com/edvin/opsportal/internal/objectstore"
)

// Catalog builds repository summaries and version lists from a full scan of
// the object store. Nothing is cached between calls.
type Catalog struct {
	store     objectstore.Store
	parser    Parser
	retention time.Duration
	retry     RetryPolicy
	logger    zerolog.Logger
}

func NewCatalog(store objectstore.Store, parser Parser, retention time.Duration, retry RetryPolicy, logger zerolog.Logger) *Catalog {
	if retention <= 0 {
		retention = model.DefaultRetention
	}
	return &Catalog{
		store:     store,
		parser:    parser,
		retention: retention,
		retry:     retry,
		logger:    logger.With().Str("component", "backup-catalog").Str("store", store.Name()).Logger(),
	}
}

func (c *Catalog) capture(obj objectstore.Object) (model.BackupCapture, error) {
	capture, err := c.parser.Parse(obj.Key)
	if err != nil {
		return model.BackupCapture{}, err
	}
	capture.SizeBytes = obj.Size
	capture.SizeMB = model.BytesToMB(obj.Size)
	capture.RetentionExpiresAt = capture.CapturedAt.Add(c.retention)
	return capture, nil
}

// scan lists every object under prefix and parses it. Malformed keys are
// logged and skipped; the listing either completes or fails as a whole.
func (c *Catalog) scan(ctx context.Context, prefix string) ([]model.BackupCapture, error) {
	objects, err := withRetry(ctx, c.retry, c.logger, "list", c.store.IsPermanentError,
		func(ctx context.Context) ([]objectstore.Object, error) {
			return c.store.List(ctx, prefix)
		})
	if err != nil {
		return nil, fmt.Errorf("%w: list %q: %w", ErrStorageUnavailable, prefix, err)
	}

	captures := make([]model.BackupCapture, 0, len(objects))
	for _, obj := range objects {
		capture, err := c.capture(obj)
		if err != nil {
			metrics.MalformedBackupKeys.Inc()
			c.logger.Warn().Err(err).Str("key", obj.Key).Msg("skipping object that is not a backup capture")
			continue
		}
		captures = append(captures, capture)
	}
	return captures, nil
}

// ListRepositories returns one summary per repository, ordered by identity.
func (c *Catalog) ListRepositories(ctx context.Context) ([]model.RepositorySummary, error) {
	captures, err := c.scan(ctx, c.parser.Root())
	if err != nil {
		return nil, err
	}

	byIdentity := make(map[model.RepositoryIdentity]*model.RepositorySummary)
	for _, capture := range captures {
		s, ok := byIdentity[capture.RepositoryIdentity]
		if !ok {
			s = &model.RepositorySummary{
				RepositoryIdentity: capture.RepositoryIdentity,
				ID:                 capture.RepositoryIdentity.String(),
			}
			byIdentity[capture.RepositoryIdentity] = s
		}
		s.CaptureCount++
		if capture.CapturedAt.After(s.MostRecentCaptureAt) {
			s.MostRecentCaptureAt = capture.CapturedAt
		}
	}

	summaries := make([]model.RepositorySummary, 0, len(byIdentity))
	for _, s := range byIdentity {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RepositoryIdentity.Less(summaries[j].RepositoryIdentity)
	})
	return summaries, nil
}

// ListVersions returns the captures of one repository, newest first. An
// identity that cannot name a repository has no captures.
func (c *Catalog) ListVersions(ctx context.Context, id model.RepositoryIdentity) ([]model.BackupCapture, error) {
	prefix, err := c.parser.RepositoryPrefix(id)
	if err != nil {
		return []model.BackupCapture{}, nil
	}
	captures, err := c.scan(ctx, prefix)
	if err != nil {
		return nil, err
	}

	versions := captures[:0]
	for _, capture := range captures {
		if capture.RepositoryIdentity == id {
			versions = append(versions, capture)
		}
	}
	sort.SliceStable(versions, func(i, j int) bool {
		if !versions[i].CapturedAt.Equal(versions[j].CapturedAt) {
			return versions[i].CapturedAt.After(versions[j].CapturedAt)
		}
		return versions[i].ObjectKey < versions[j].ObjectKey
	})
	return versions, nil
}

// Resolve looks up the capture ref names directly in the store.
func (c *Catalog) Resolve(ctx context.Context, ref model.CaptureRef) (model.BackupCapture, error) {
	key, err := c.parser.ObjectKey(ref)
	if err != nil {
		return model.BackupCapture{}, fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}

	obj, err := withRetry(ctx, c.retry, c.logger, "stat", c.store.IsPermanentError,
		func(ctx context.Context) (objectstore.Object, error) {
			return c.store.Stat(ctx, key)
		})
	if err != nil {
		if errors.Is(err, objectstore.ErrNotExist) {
			return model.BackupCapture{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return model.BackupCapture{}, fmt.Errorf("%w: stat %s: %w", ErrStorageUnavailable, key, err)
	}
	obj.Key = key
	return c.capture(obj)
}
