package relay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

const serviceBusSuffix = ".servicebus.windows.net"

// NamespaceHost turns a namespace name into its host name.
// Fully qualified hosts are returned unchanged.
func NamespaceHost(namespace string) string {
	if strings.Contains(namespace, ".") {
		return namespace
	}
	return namespace + serviceBusSuffix
}

// ResourceURI is the URI a SAS token for a Hybrid Connection is scoped to
func ResourceURI(namespace, hybridConnection string) string {
	return fmt.Sprintf("https://%s/%s", NamespaceHost(namespace), hybridConnection)
}

// GenerateSASToken signs resourceURI with a shared access key.
// Format: SharedAccessSignature sr=<uri>&sig=<signature>&se=<expiry>&skn=<keyname>
func GenerateSASToken(resourceURI, keyName, key string, expiresAt time.Time) string {
	encodedURI := url.QueryEscape(strings.TrimSuffix(resourceURI, "/"))
	expiry := expiresAt.Unix()

	// The key is used as-is; Azure portal keys are base64 text but sign as bytes
	h := hmac.New(sha256.New, []byte(strings.TrimSpace(key)))
	fmt.Fprintf(h, "%s\n%d", encodedURI, expiry)
	signature := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%d&skn=%s",
		encodedURI,
		url.QueryEscape(signature),
		expiry,
		url.QueryEscape(keyName),
	)
}

// SASTokenSource hands out SAS tokens for one Hybrid Connection and signs a
// new one when the cached token is close to expiry
type SASTokenSource struct {
	resourceURI string
	keyName     string
	key         string
	ttl         time.Duration
	now         func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewSASTokenSource creates a token source; ttl defaults to one hour
func NewSASTokenSource(namespace, hybridConnection, keyName, key string, ttl time.Duration) *SASTokenSource {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SASTokenSource{
		resourceURI: ResourceURI(namespace, hybridConnection),
		keyName:     keyName,
		key:         key,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Token returns a token valid for at least a fifth of the ttl
func (s *SASTokenSource) Token(_ context.Context) (string, error) {
	if s.keyName == "" || strings.TrimSpace(s.key) == "" {
		return "", fmt.Errorf("shared access key name and key are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && s.expires.Sub(now) > s.ttl/5 {
		return s.token, nil
	}

	s.expires = now.Add(s.ttl)
	s.token = GenerateSASToken(s.resourceURI, s.keyName, s.key, s.expires)
	return s.token, nil
}
