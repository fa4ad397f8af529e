package encryption

import (
	"strings"
	"sync"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
)

// Registry is a name-keyed collection of Providers with one designated
// primary and an ordered legacy list (spec §4.1). Lookups are
// case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	primary   string
	legacy    []string
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func normalizeID(id string) string { return strings.ToLower(id) }

// Register adds a provider under id. Fails if id is already registered.
func (r *Registry) Register(id string, provider Provider) error {
	if id == "" {
		return cerrors.NullArgument("id")
	}
	if provider == nil {
		return cerrors.NullArgument("provider")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeID(id)
	if _, exists := r.providers[key]; exists {
		return cerrors.DuplicateProviderID(id)
	}
	r.providers[key] = provider
	return nil
}

// GetProvider returns the provider registered under id, or ok=false.
func (r *Registry) GetProvider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[normalizeID(id)]
	return p, ok
}

// SetPrimary designates id as primary, removing it from the legacy list
// if present. Fails if id is unregistered.
func (r *Registry) SetPrimary(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeID(id)
	if _, ok := r.providers[key]; !ok {
		return cerrors.UnknownPrimary(id)
	}
	r.primary = key
	r.removeLegacyLocked(key)
	return nil
}

// GetPrimary returns the primary provider. Fails if unset.
func (r *Registry) GetPrimary() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.primary == "" {
		return nil, cerrors.UnknownPrimary("")
	}
	return r.providers[r.primary], nil
}

// AddLegacyProvider appends id to the legacy list. Fails if unregistered;
// idempotent for an id already present in the list.
func (r *Registry) AddLegacyProvider(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeID(id)
	if _, ok := r.providers[key]; !ok {
		return cerrors.UnknownLegacy(id)
	}
	for _, existing := range r.legacy {
		if existing == key {
			return nil
		}
	}
	r.legacy = append(r.legacy, key)
	return nil
}

func (r *Registry) removeLegacyLocked(key string) {
	out := r.legacy[:0]
	for _, existing := range r.legacy {
		if existing != key {
			out = append(out, existing)
		}
	}
	r.legacy = out
}

// GetLegacyProviders returns the ordered legacy list.
func (r *Registry) GetLegacyProviders() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.legacy))
	for _, key := range r.legacy {
		out = append(out, r.providers[key])
	}
	return out
}

// FindDecryptionProvider scans primary then legacy providers in order,
// returning the first whose CanDecrypt(encrypted) is true.
func (r *Registry) FindDecryptionProvider(encrypted EncryptedData) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.primary != "" {
		if p := r.providers[r.primary]; p.CanDecrypt(encrypted) {
			return p, true
		}
	}
	for _, key := range r.legacy {
		if p := r.providers[key]; p.CanDecrypt(encrypted) {
			return p, true
		}
	}
	return nil, false
}

// GetAll returns every registered provider, primary first, in no other
// guaranteed order.
func (r *Registry) GetAll() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	if r.primary != "" {
		out = append(out, r.providers[r.primary])
	}
	for key, p := range r.providers {
		if key == r.primary {
			continue
		}
		out = append(out, p)
	}
	return out
}
