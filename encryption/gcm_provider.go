package encryption

import (
	"context"

	ccrypto "github.com/meridian-dispatch/compliance-core/compliance/crypto"
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
)

// AESGCMProvider performs authenticated envelope encryption with a
// 12-byte random IV and a 16-byte auth tag (spec §4.2). Associated data
// from Context.AssociatedData is bound into the auth tag.
type AESGCMProvider struct {
	id  string
	kms keymanagement.Provider
}

// NewAESGCMProvider constructs a provider that resolves key material
// through kms. id is the provider's registry identifier.
func NewAESGCMProvider(id string, kms keymanagement.Provider) *AESGCMProvider {
	return &AESGCMProvider{id: id, kms: kms}
}

func (p *AESGCMProvider) ID() string { return p.id }

func (p *AESGCMProvider) Encrypt(ctx context.Context, plaintext []byte, ectx Context) (EncryptedData, error) {
	key, keyMeta, err := p.resolveKey(ctx, ectx)
	if err != nil {
		return EncryptedData{}, err
	}

	nonce, ciphertext, err := ccrypto.SealGCM(key, plaintext, ectx.AssociatedData)
	if err != nil {
		return EncryptedData{}, cerrors.Wrap(cerrors.KindCrypto, cerrors.CodeDecryptionFailed, "gcm seal failed", err)
	}
	body, tag, err := ccrypto.SplitGCMTag(ciphertext)
	if err != nil {
		return EncryptedData{}, cerrors.Wrap(cerrors.KindCrypto, cerrors.CodeDecryptionFailed, "gcm tag split failed", err)
	}

	return EncryptedData{
		Ciphertext: body,
		IV:         nonce,
		AuthTag:    tag,
		KeyID:      keyMeta.KeyID,
		KeyVersion: keyMeta.Version,
		Algorithm:  AlgorithmAESGCM,
		TenantID:   ectx.TenantID,
	}, nil
}

func (p *AESGCMProvider) Decrypt(ctx context.Context, encrypted EncryptedData, ectx Context) ([]byte, error) {
	if encrypted.Algorithm != AlgorithmAESGCM {
		return nil, cerrors.UnsupportedAlgorithm(string(encrypted.Algorithm))
	}
	keyMeta, err := p.kms.GetKey(ctx, encrypted.KeyID)
	if err != nil {
		return nil, cerrors.KeyNotFound(encrypted.KeyID)
	}
	if keyMeta.Version != encrypted.KeyVersion {
		// GetKey returns the newest version; find the one the envelope names.
		versions, err := p.kms.ListKeys(ctx, nil, "")
		if err != nil {
			return nil, cerrors.KeyNotFound(encrypted.KeyID)
		}
		found := false
		for _, v := range versions {
			if v.KeyID == encrypted.KeyID && v.Version == encrypted.KeyVersion {
				keyMeta, found = v, true
			}
		}
		if !found {
			return nil, cerrors.KeyNotFound(encrypted.KeyID)
		}
	}

	sealed :=append(append([]byte{}, encrypted.Ciphertext...), encrypted.AuthTag...)
	plaintext, err := ccrypto.OpenGCM(keyMeta.KeyMaterial, encrypted.IV, sealed, ectx.AssociatedData)
	if err != nil {
		return nil, cerrors.DecryptionFailed(err)
	}
	return plaintext, nil
}

func (p *AESGCMProvider) CanDecrypt(encrypted EncryptedData) bool {
	return encrypted.Algorithm == AlgorithmAESGCM
}

func (p *AESGCMProvider) ValidateFIPSCompliance() error {
	return nil // AES-256-GCM is FIPS-approved
}

// resolveKey fetches the active key for the context's purpose, rotating
// lazily is RotatingEncryptionProvider's responsibility, not this
// provider's — this provider only reads whatever is currently active.
func (p *AESGCMProvider) resolveKey(ctx context.Context, ectx Context) ([]byte, keymanagement.Metadata, error) {
	meta, err := p.kms.GetActiveKey(ctx, ectx.Purpose)
	if err != nil {
		return nil, keymanagement.Metadata{}, cerrors.KeyNotFound(ectx.Purpose)
	}
	if ectx.RequireFIPSCompliance && !meta.IsFIPSCompliant {
		return nil, keymanagement.Metadata{}, cerrors.FIPSViolation(string(meta.Algorithm))
	}
	return meta.KeyMaterial, meta, nil
}
