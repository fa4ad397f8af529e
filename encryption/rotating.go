package encryption

import (
	"context"
	"time"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
)

// RotatingOptions configures a RotatingEncryptionProvider.
type RotatingOptions struct {
	// AutoRotateBeforeEncryption, when true, checks the active key's age
	// before every encrypt and rotates it if stale (default false).
	AutoRotateBeforeEncryption bool
	// MaxKeyAge is the staleness threshold triggering auto-rotation
	// (default 90 days).
	MaxKeyAge time.Duration
	// DisableReEncryptOnRead, when true, makes ReEncrypt pass stale
	// envelopes through unchanged instead of decrypting and re-encrypting
	// them under the active key. ReEncryptOnRead defaults to true (spec
	// §4.2), so the zero value of this field keeps that default; set it
	// to disable the behavior explicitly.
	DisableReEncryptOnRead bool
}

func (o RotatingOptions) withDefaults() RotatingOptions {
	if o.MaxKeyAge <= 0 {
		o.MaxKeyAge = 90 * 24 * time.Hour
	}
	return o
}

// RotatingEncryptionProvider wraps any Provider and adds opportunistic
// key rotation and re-encryption (spec §4.2).
type RotatingEncryptionProvider struct {
	inner Provider
	kms   keymanagement.Provider
	opts  RotatingOptions

	disposed bool
}

// NewRotatingEncryptionProvider wraps inner. Re-encryption on read defaults
// to enabled, matching spec §4.2; set opts.DisableReEncryptOnRead to turn
// it off.
func NewRotatingEncryptionProvider(inner Provider, kms keymanagement.Provider, opts RotatingOptions) *RotatingEncryptionProvider {
	opts = opts.withDefaults()
	return &RotatingEncryptionProvider{inner: inner, kms: kms, opts: opts}
}

func (p *RotatingEncryptionProvider) ID() string { return p.inner.ID() }

func (p *RotatingEncryptionProvider) checkDisposed() error {
	if p.disposed {
		return cerrors.Disposed("encryption.RotatingEncryptionProvider")
	}
	return nil
}

func (p *RotatingEncryptionProvider) Encrypt(ctx context.Context, plaintext []byte, ectx Context) (EncryptedData, error) {
	if err := p.checkDisposed(); err != nil {
		return EncryptedData{}, err
	}
	if p.opts.AutoRotateBeforeEncryption {
		if err := p.maybeRotate(ctx, ectx); err != nil {
			return EncryptedData{}, err
		}
	}
	return p.inner.Encrypt(ctx, plaintext, ectx)
}

func (p *RotatingEncryptionProvider) maybeRotate(ctx context.Context, ectx Context) error {
	active, err := p.kms.GetActiveKey(ctx, ectx.Purpose)
	if err != nil {
		// No active key yet; the inner provider's own Encrypt call will
		// surface the appropriate KeyNotFound error.
		return nil
	}
	if time.Since(active.CreatedAt) > p.opts.MaxKeyAge {
		_, err := p.kms.RotateKey(ctx, active.KeyID, active.Algorithm, ectx.Purpose, nil)
		return err
	}
	return nil
}

func (p *RotatingEncryptionProvider) Decrypt(ctx context.Context, encrypted EncryptedData, ectx Context) ([]byte, error) {
	if err := p.checkDisposed(); err != nil {
		return nil, err
	}
	return p.inner.Decrypt(ctx, encrypted, ectx)
}

func (p *RotatingEncryptionProvider) CanDecrypt(encrypted EncryptedData) bool {
	return p.inner.CanDecrypt(encrypted)
}

func (p *RotatingEncryptionProvider) ValidateFIPSCompliance() error {
	return p.inner.ValidateFIPSCompliance()
}

// ReEncrypt returns encrypted unchanged if its key_id/key_version already
// match the current active key; otherwise decrypts under the old key and
// re-encrypts under the active one.
func (p *RotatingEncryptionProvider) ReEncrypt(ctx context.Context, encrypted EncryptedData, ectx Context) (EncryptedData, error) {
	if err := p.checkDisposed(); err != nil {
		return EncryptedData{}, err
	}
	if p.opts.DisableReEncryptOnRead {
		return encrypted, nil
	}

	active, err := p.kms.GetActiveKey(ctx, ectx.Purpose)
	if err != nil {
		return encrypted, nil
	}
	if encrypted.KeyID == active.KeyID && encrypted.KeyVersion == active.Version {
		return encrypted, nil
	}

	plaintext, err := p.inner.Decrypt(ctx, encrypted, ectx)
	if err != nil {
		return EncryptedData{}, err
	}
	return p.inner.Encrypt(ctx, plaintext, ectx)
}

// disposer is satisfied by inner providers that hold their own
// disposable resources; Dispose propagates to it if present.
type disposer interface {
	Dispose()
}

// Dispose propagates to the inner provider if it is disposable. Idempotent.
func (p *RotatingEncryptionProvider) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	if inner, ok := p.inner.(disposer); ok {
		inner.Dispose()
	}
}
