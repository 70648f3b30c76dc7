package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// relayScope is the Entra ID scope accepted by Azure Relay
const relayScope = "https://relay.azure.net/.default"

// refreshMargin is how long before expiry a cached token is replaced
const refreshMargin = 5 * time.Minute

// EntraTokenSource provides Entra ID tokens for Azure Relay.
// Tokens are cached and refreshed before they expire.
type EntraTokenSource struct {
	credential azcore.TokenCredential
	scope      string

	mu    sync.Mutex
	token *azcore.AccessToken
}

// NewEntraTokenSource uses credential, or DefaultAzureCredential when it is nil
// (managed identity, Azure CLI, environment variables...)
func NewEntraTokenSource(credential azcore.TokenCredential) (*EntraTokenSource, error) {
	if credential == nil {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create default credential: %w", err)
		}
		credential = cred
	}

	return &EntraTokenSource{
		credential: credential,
		scope:      relayScope,
	}, nil
}

// Token returns a bearer token for the ServiceBusAuthorization header
func (p *EntraTokenSource) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != nil && time.Until(p.token.ExpiresOn) > refreshMargin {
		return "Bearer " + p.token.Token, nil
	}

	tok, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{p.scope},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	p.token = &tok
	return "Bearer " + tok.Token, nil
}
