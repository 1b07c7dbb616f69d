package hosting

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// DevOpsScope is the Entra ID resource scope of Azure DevOps.
const DevOpsScope = "499b84ac-1321-427f-aa17-267ca6975798/.default"

// Authorizer attaches credentials to an outgoing hosting API request.
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// PATAuthorizer authenticates with a personal access token.
type PATAuthorizer struct {
	Token string
}

func (a PATAuthorizer) Authorize(_ context.Context, req *http.Request) error {
	req.SetBasicAuth("", a.Token)
	return nil
}

// TokenAuthorizer authenticates with bearer tokens from an Azure credential.
// Tokens are cached and refreshed by the credential.
type TokenAuthorizer struct {
	cred azcore.TokenCredential
}

func NewTokenAuthorizer(cred azcore.TokenCredential) *TokenAuthorizer {
	return &TokenAuthorizer{cred: cred}
}

// NewManagedIdentityAuthorizer uses DefaultAzureCredential: managed identity
// when running in Azure, developer CLI credentials locally.
func NewManagedIdentityAuthorizer() (*TokenAuthorizer, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default azure credential: %w", err)
	}
	return NewTokenAuthorizer(cred), nil
}

func (a *TokenAuthorizer) Authorize(ctx context.Context, req *http.Request) error {
	tok, err := a.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{DevOpsScope}})
	if err != nil {
		return fmt.Errorf("acquire hosting API token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	return nil
}
