package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/relay/armrelay"
)

// Manager provisions the Hybrid Connection the relay listens on
type Manager struct {
	client            *armrelay.HybridConnectionsClient
	resourceGroupName string
	namespaceName     string
}

// ManagerOptions contains configuration for the Manager
type ManagerOptions struct {
	// SubscriptionID is the Azure subscription ID
	SubscriptionID string

	// ResourceGroupName is the resource group containing the Relay namespace
	ResourceGroupName string

	// NamespaceName is the Relay namespace name
	NamespaceName string

	// Credential is optional and defaults to DefaultAzureCredential
	Credential azcore.TokenCredential

	// Transport overrides the HTTP pipeline transport (tests)
	Transport policy.Transporter
}

// NewManager creates a Manager
func NewManager(opts *ManagerOptions) (*Manager, error) {
	if opts == nil {
		return nil, errors.New("options cannot be nil")
	}
	if opts.SubscriptionID == "" {
		return nil, errors.New("subscription ID is required")
	}
	if opts.ResourceGroupName == "" {
		return nil, errors.New("resource group name is required")
	}
	if opts.NamespaceName == "" {
		return nil, errors.New("namespace name is required")
	}

	credential := opts.Credential
	if credential == nil {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create default credential: %w", err)
		}
		credential = cred
	}

	clientOpts := &arm.ClientOptions{}
	if opts.Transport != nil {
		clientOpts.Transport = opts.Transport
	}

	client, err := armrelay.NewHybridConnectionsClient(opts.SubscriptionID, credential, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create hybrid connections client: %w", err)
	}

	return &Manager{
		client:            client,
		resourceGroupName: opts.ResourceGroupName,
		namespaceName:     opts.NamespaceName,
	}, nil
}

// EnsureHybridConnection creates the Hybrid Connection or updates it in place.
// Senders are not required to authorize, so chat peers can connect with just the address.
func (m *Manager) EnsureHybridConnection(ctx context.Context, name string) error {
	props := armrelay.HybridConnection{
		Properties: &armrelay.HybridConnectionProperties{
			RequiresClientAuthorization: ptr(false),
			UserMetadata:                ptr("pairrelay"),
		},
	}

	if _, err := m.client.CreateOrUpdate(ctx, m.resourceGroupName, m.namespaceName, name, props, nil); err != nil {
		return fmt.Errorf("failed to create hybrid connection %s: %w", name, err)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
