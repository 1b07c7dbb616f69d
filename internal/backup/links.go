package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/opsportal/internal/metrics"
	"github.com/edvin/opsportal/internal/model"
	"github.com/edvin/opsportal/internal/objectstore"
)

const (
	DefaultLinkTTL = 15 * time.Minute
	MaxLinkTTL     = 60 * time.Minute
)

// LinkIssuer mints short-lived, read-only URLs for single capture archives.
type LinkIssuer struct {
	catalog *Catalog
	store   objectstore.Store
	ttl     time.Duration
	retry   RetryPolicy
	logger  zerolog.Logger
	now     func() time.Time
}

func NewLinkIssuer(catalog *Catalog, store objectstore.Store, ttl time.Duration, retry RetryPolicy, logger zerolog.Logger) *LinkIssuer {
	switch {
	case ttl <= 0:
		ttl = DefaultLinkTTL
	case ttl > MaxLinkTTL:
		ttl = MaxLinkTTL
	}
	return &LinkIssuer{
		catalog: catalog,
		store:   store,
		ttl:     ttl,
		retry:   retry,
		logger:  logger.With().Str("component", "backup-links").Logger(),
		now:     time.Now,
	}
}

// Issue verifies the capture exists and signs a link for it. A missing
// capture yields ErrObjectNotFound and no URL.
func (l *LinkIssuer) Issue(ctx context.Context, ref model.CaptureRef) (*model.DownloadLink, error) {
	capture, err := l.catalog.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return l.sign(ctx, capture)
}

// expiry rounds now+ttl up to a whole second so the link is never already
// expired, capped at MaxLinkTTL from now.
func (l *LinkIssuer) expiry() time.Time {
	now := l.now().UTC()
	expires := now.Add(l.ttl + time.Second - 1).Truncate(time.Second)
	if limit := now.Add(MaxLinkTTL); expires.After(limit) {
		expires = limit.Truncate(time.Second)
	}
	return expires
}

func (l *LinkIssuer) sign(ctx context.Context, capture model.BackupCapture) (*model.DownloadLink, error) {
	expires := l.expiry()

	u, err := withRetry(ctx, l.retry, l.logger, "sign", l.store.IsPermanentError,
		func(ctx context.Context) (string, error) {
			return l.store.SignedURL(ctx, capture.ObjectKey, expires)
		})
	if err != nil {
		if errors.Is(err, objectstore.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, capture.ObjectKey)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrSigningUnavailable, capture.ObjectKey, err)
	}

	metrics.LinksIssued.Inc()
	l.logger.Debug().Str("key", capture.ObjectKey).Time("expires_at", expires).Msg("issued download link")
	return &model.DownloadLink{URL: u, ExpiresAt: expires}, nil
}
