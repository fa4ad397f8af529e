package keymanagement

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
)

// InMemoryProvider is a reference Provider implementation: all key
// material and metadata live in process memory. It exists for tests and
// small deployments; production deployments back Provider with a real
// KMS (spec §1 Non-goals: "not a full KMS, it consumes one").
type InMemoryProvider struct {
	mu sync.Mutex

	// versions holds every version ever issued for a key_id, oldest first.
	versions map[string][]Metadata

	// activeByPurpose tracks which key_id is currently active for a given
	// purpose string ("" is the default purpose).
	activeByPurpose map[string]string
}

func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{
		versions:        make(map[string][]Metadata),
		activeByPurpose: make(map[string]string),
	}
}

func (p *InMemoryProvider) GetKey(ctx context.Context, keyID string) (Metadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	versions, ok := p.versions[keyID]
	if !ok || len(versions) == 0 {
		return Metadata{}, cerrors.KeyNotFound(keyID)
	}
	latest := versions[len(versions)-1]
	if latest.Status == StatusDestroyed {
		return Metadata{}, cerrors.KeyNotFound(keyID)
	}
	return latest, nil
}

func (p *InMemoryProvider) GetActiveKey(ctx context.Context, purpose string) (Metadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	keyID, ok := p.activeByPurpose[purpose]
	if !ok {
		return Metadata{}, cerrors.KeyNotFound("<no active key for purpose " + purpose + ">")
	}
	versions := p.versions[keyID]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Status == StatusActive {
			return versions[i], nil
		}
	}
	return Metadata{}, cerrors.KeyNotFound(keyID)
}

// RotateKey issues a new version for keyID: prior Active versions of the
// same key become DecryptOnly (still usable to decrypt, never again to
// encrypt), and the new version becomes the purpose's active key.
func (p *InMemoryProvider) RotateKey(ctx context.Context, keyID string, algorithm Algorithm, purpose string, expiresAt *time.Time) (Metadata, error) {
	if keyID == "" {
		return Metadata{}, cerrors.NullArgument("key_id")
	}

	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return Metadata{}, cerrors.Wrap(cerrors.KindConfiguration, cerrors.CodeNullArgument, "failed to generate key material", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	existing := p.versions[keyID]
	now := time.Now()
	for i := range existing {
		if existing[i].Status == StatusActive {
			existing[i].Status = StatusDecryptOnly
		}
	}

	next := Metadata{
		KeyID:           keyID,
		Version:         len(existing) + 1,
		Algorithm:       algorithm,
		Status:          StatusActive,
		CreatedAt:       now,
		ExpiresAt:       expiresAt,
		LastRotatedAt:   &now,
		Purpose:         purpose,
		IsFIPSCompliant: algorithm == AlgorithmAESGCM,
		KeyMaterial:     material,
	}
	p.versions[keyID] = append(existing, next)
	p.activeByPurpose[purpose] = keyID

	return next, nil
}

func (p *InMemoryProvider) ListKeys(ctx context.Context, status *Status, purpose string) ([]Metadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Metadata
	for _, versions := range p.versions {
		for _, m := range versions {
			if status != nil && m.Status != *status {
				continue
			}
			if purpose != "" && m.Purpose != purpose {
				continue
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// DeleteKey renders every version of keyID permanently unreadable: status
// becomes Destroyed and key material is zeroed and discarded. Key
// deletion, not ciphertext deletion, is what makes cryptographic erasure
// irreversible (spec §4.4).
func (p *InMemoryProvider) DeleteKey(ctx context.Context, keyID string, gracePeriodDays int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	versions, ok := p.versions[keyID]
	if !ok {
		return cerrors.KeyNotFound(keyID)
	}
	for i := range versions {
		for b := range versions[i].KeyMaterial {
			versions[i].KeyMaterial[b] = 0
		}
		versions[i].KeyMaterial = nil
		versions[i].Status = StatusDestroyed
	}
	p.versions[keyID] = versions
	return nil
}

func (p *InMemoryProvider) SuspendKey(ctx context.Context, keyID string, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	versions, ok := p.versions[keyID]
	if !ok || len(versions) == 0 {
		return cerrors.KeyNotFound(keyID)
	}
	versions[len(versions)-1].Status = StatusSuspended
	return nil
}
