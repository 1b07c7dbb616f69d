package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
)

const defaultListMaxItems = 5000

// delegationSkew backdates user delegation keys and SAS start times to
// tolerate clock drift between us and the storage service.
const delegationSkew = 5 * time.Minute

// AzureConfig selects the account and credential. A connection string with an
// account key takes precedence; otherwise AccountName is used with
// DefaultAzureCredential (managed identity in Azure, CLI login locally).
type AzureConfig struct {
	AccountName      string
	ConnectionString string
	Container        string
	EndpointSuffix   string
	Timeout          time.Duration
}

// Azure reads backups from an Azure Blob Storage container.
type Azure struct {
	cfg          AzureConfig
	service      *service.Client
	container    *container.Client
	sharedKey    bool
	listMaxItems int32
}

var _ Store = (*Azure)(nil)

func NewAzure(cfg AzureConfig) (*Azure, error) {
	if cfg.Container == "" {
		return nil, errors.New("azure: container name is required")
	}
	if cfg.EndpointSuffix == "" {
		cfg.EndpointSuffix = "core.windows.net"
	}

	// Retries are owned by the caller's backoff policy.
	opts := &service.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1, TryTimeout: cfg.Timeout},
		},
	}

	var (
		svc       *service.Client
		sharedKey bool
		err       error
	)
	switch {
	case cfg.ConnectionString != "":
		svc, err = service.NewClientFromConnectionString(cfg.ConnectionString, opts)
		if err != nil {
			return nil, fmt.Errorf("azure: client from connection string: %w", err)
		}
		sharedKey = true
	case cfg.AccountName != "":
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azure: default credential: %w", err)
		}
		url := fmt.Sprintf("https://%s.blob.%s/", cfg.AccountName, cfg.EndpointSuffix)
		svc, err = service.NewClient(url, cred, opts)
		if err != nil {
			return nil, fmt.Errorf("azure: client for %s: %w", url, err)
		}
	default:
		return nil, errors.New("azure: account name or connection string is required")
	}

	return &Azure{
		cfg:          cfg,
		service:      svc,
		container:    svc.NewContainerClient(cfg.Container),
		sharedKey:    sharedKey,
		listMaxItems: defaultListMaxItems,
	}, nil
}

func (a *Azure) Name() string {
	return "azure:" + a.cfg.Container
}

func (a *Azure) List(ctx context.Context, prefix string) ([]Object, error) {
	opts := &container.ListBlobsFlatOptions{
		MaxResults: &a.listMaxItems,
	}
	if prefix != "" {
		opts.Prefix = &prefix
	}
	pager := a.container.NewListBlobsFlatPager(opts)

	var objects []Object
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs with prefix %q: %w", prefix, err)
		}
		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			obj := Object{Key: *item.Name}
			if item.Properties != nil {
				obj.Size = deref(item.Properties.ContentLength)
				obj.LastModified = deref(item.Properties.LastModified)
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func (a *Azure) Stat(ctx context.Context, key string) (Object, error) {
	props, err := a.container.NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if a.isNotExist(err) {
			return Object{}, fmt.Errorf("stat %s: %w", key, ErrNotExist)
		}
		return Object{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return Object{
		Key:          key,
		Size:         deref(props.ContentLength),
		LastModified: deref(props.LastModified),
	}, nil
}

// SignedURL issues a read-only blob SAS. With an account key the SAS is signed
// locally; with a token credential a user delegation key is requested first.
func (a *Azure) SignedURL(ctx context.Context, key string, expires time.Time) (string, error) {
	blobClient := a.container.NewBlobClient(key)
	perms := sas.BlobPermissions{Read: true}

	if a.sharedKey {
		u, err := blobClient.GetSASURL(perms, expires.UTC(), nil)
		if err != nil {
			return "", fmt.Errorf("sign %s with shared key: %w", key, err)
		}
		return u, nil
	}

	start := time.Now().UTC().Add(-delegationSkew)
	info := service.KeyInfo{
		Start:  to.Ptr(start.Format(sas.TimeFormat)),
		Expiry: to.Ptr(expires.UTC().Format(sas.TimeFormat)),
	}
	udc, err := a.service.GetUserDelegationCredential(ctx, info, nil)
	if err != nil {
		return "", fmt.Errorf("get user delegation key: %w", err)
	}

	qp, err := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     start,
		ExpiryTime:    expires.UTC(),
		Permissions:   perms.String(),
		ContainerName: a.cfg.Container,
		BlobName:      key,
	}.SignWithUserDelegation(udc)
	if err != nil {
		return "", fmt.Errorf("sign %s with user delegation key: %w", key, err)
	}
	return blobClient.URL() + "?" + qp.Encode(), nil
}

func (a *Azure) Ping(ctx context.Context) error {
	if _, err := a.container.GetProperties(ctx, nil); err != nil {
		return fmt.Errorf("container %s: %w", a.cfg.Container, err)
	}
	return nil
}

func (a *Azure) isNotExist(err error) bool {
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return true
	}
	var rerr *azcore.ResponseError
	return errors.As(err, &rerr) && rerr.StatusCode == http.StatusNotFound
}

func (a *Azure) IsPermanentError(err error) bool {
	if errors.Is(err, ErrNotExist) || a.isNotExist(err) {
		return true
	}
	if bloberror.HasCode(err, bloberror.ContainerNotFound, bloberror.AuthorizationPermissionMismatch) {
		return true
	}

	var rerr *azcore.ResponseError
	if errors.As(err, &rerr) {
		switch rerr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestedRangeNotSatisfiable:
			return true
		}
	}

	// Credential acquisition failures rarely heal within a retry budget.
	var authErr *azidentity.AuthenticationFailedError
	return errors.As(err, &authErr)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
