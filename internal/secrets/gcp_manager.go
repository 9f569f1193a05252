package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// cacheEntry represents a cached secret with expiration
type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// GCPSecretManager resolves secret references in connector source configs to
// their plaintext values, so read-only database passwords never have to be
// stored inside the connector's JSON config.
type GCPSecretManager struct {
	client    *secretmanager.Client
	projectID string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}, nil
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// Resolve fetches the latest version of the named secret. Accepts either a
// bare secret ID (expanded against the configured project) or a full
// projects/... resource name.
func (sm *GCPSecretManager) Resolve(ctx context.Context, name string) (string, error) {
	secretName := sm.qualify(name)

	sm.cacheMu.RLock()
	if entry, ok := sm.cache[secretName]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.value, nil
	}
	sm.cacheMu.RUnlock()

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName + "/versions/latest",
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret: %w", err)
	}

	value := string(result.Payload.Data)

	sm.cacheMu.Lock()
	sm.cache[secretName] = &cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(sm.cacheTTL),
	}
	sm.cacheMu.Unlock()

	return value, nil
}

// InvalidateCache removes a secret from the cache
func (sm *GCPSecretManager) InvalidateCache(name string) {
	sm.cacheMu.Lock()
	delete(sm.cache, sm.qualify(name))
	sm.cacheMu.Unlock()
}

func (sm *GCPSecretManager) qualify(name string) string {
	if len(name) >= 9 && name[:9] == "projects/" {
		return name
	}
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, name)
}
