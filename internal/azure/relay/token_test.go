package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

type fakeCredential struct {
	calls   int
	expires time.Duration
	err     error
	scopes  []string
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.calls++
	f.scopes = opts.Scopes
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{
		Token:     "token-" + string(rune('0'+f.calls)),
		ExpiresOn: time.Now().Add(f.expires),
	}, nil
}

func TestEntraTokenSource_Token(t *testing.T) {
	cred := &fakeCredential{expires: time.Hour}
	source, err := NewEntraTokenSource(cred)
	if err != nil {
		t.Fatalf("NewEntraTokenSource() error = %v", err)
	}

	token, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "Bearer token-1" {
		t.Errorf("Token() = %q, want %q", token, "Bearer token-1")
	}
	if len(cred.scopes) != 1 || cred.scopes[0] != relayScope {
		t.Errorf("Requested scopes = %v", cred.scopes)
	}

	// Second call should use the cache
	token, err = source.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "Bearer token-1" || cred.calls != 1 {
		t.Errorf("Expected cached token, got %q after %d calls", token, cred.calls)
	}
}

func TestEntraTokenSource_RefreshesNearExpiry(t *testing.T) {
	cred := &fakeCredential{expires: time.Minute}
	source, err := NewEntraTokenSource(cred)
	if err != nil {
		t.Fatalf("NewEntraTokenSource() error = %v", err)
	}

	if _, err := source.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	token, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "Bearer token-2" {
		t.Errorf("Token() = %q, want a refreshed token", token)
	}
}

func TestEntraTokenSource_Error(t *testing.T) {
	cred := &fakeCredential{err: errors.New("no identity")}
	source, err := NewEntraTokenSource(cred)
	if err != nil {
		t.Fatalf("NewEntraTokenSource() error = %v", err)
	}

	if _, err := source.Token(context.Background()); err == nil {
		t.Error("Expected error from credential")
	}
}
