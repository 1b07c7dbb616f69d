package backup

import (
	"errors"

	"github.com/edvin/opsportal/internal/model"
)

var (
	ErrMalformedKey        = errors.New("malformed backup key")
	ErrStorageUnavailable  = errors.New("backup storage unavailable")
	ErrObjectNotFound      = errors.New("backup not found")
	ErrSigningUnavailable  = errors.New("download link signing unavailable")
	ErrInvalidTarget       = errors.New("invalid restore target")
	ErrTargetAlreadyExists = errors.New("target repository already exists")
	ErrHostingAPIRejected  = errors.New("hosting API rejected the request")
	ErrHostingUnavailable  = errors.New("hosting API unavailable")
	ErrImportTimedOut      = errors.New("import did not finish in time")
	ErrImportFailed        = errors.New("import failed")
)

var errorKinds = []struct {
	err       error
	kind      model.ErrorKind
	retryable bool
}{
	{ErrMalformedKey, model.KindMalformedKey, false},
	{ErrStorageUnavailable, model.KindStorageUnavailable, true},
	{ErrObjectNotFound, model.KindObjectNotFound, false},
	{ErrSigningUnavailable, model.KindSigningUnavailable, true},
	{ErrInvalidTarget, model.KindInvalidTarget, false},
	{ErrTargetAlreadyExists, model.KindTargetAlreadyExists, false},
	{ErrHostingAPIRejected, model.KindHostingAPIRejected, false},
	{ErrHostingUnavailable, model.KindHostingUnavailable, true},
	{ErrImportTimedOut, model.KindImportTimedOut, true},
	{ErrImportFailed, model.KindImportFailed, false},
}

// KindOf maps err to the error kind reported to callers.
func KindOf(err error) model.ErrorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return model.KindInternal
}

// IsRetryable reports whether err is a transient failure that exhausted its
// retry budget, as opposed to a terminal one. A retryable error may succeed
// if the caller tries again later.
func IsRetryable(err error) bool {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.retryable
		}
	}
	return false
}
