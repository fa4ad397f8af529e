package encryption

import (
	"context"

	ccrypto "github.com/meridian-dispatch/compliance-core/compliance/crypto"
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
)

// AESCBCHMACProvider performs encrypt-then-MAC envelope encryption: the
// key's material is split via HKDF into independent encryption and MAC
// subkeys (spec §4 implies per-purpose subkey derivation; this provider
// applies the same primitive used for purpose derivation to separate its
// two internal key roles so a single stored KeyMetadata still yields two
// cryptographically independent keys).
type AESCBCHMACProvider struct {
	id  string
	kms keymanagement.Provider
}

func NewAESCBCHMACProvider(id string, kms keymanagement.Provider) *AESCBCHMACProvider {
	return &AESCBCHMACProvider{id: id, kms: kms}
}

func (p *AESCBCHMACProvider) ID() string { return p.id }

func (p *AESCBCHMACProvider) subkeys(masterKey []byte, keyID string) (encKey, macKey []byte, err error) {
	salt := []byte(keyID)
	encKey, err = ccrypto.DeriveSubkey(masterKey, "cbc-hmac-enc", salt, 32)
	if err != nil {
		return nil, nil, err
	}
	macKey, err = ccrypto.DeriveSubkey(masterKey, "cbc-hmac-mac", salt, 32)
	if err != nil {
		return nil, nil, err
	}
	return encKey, macKey, nil
}

func (p *AESCBCHMACProvider) Encrypt(ctx context.Context, plaintext []byte, ectx Context) (EncryptedData, error) {
	meta, err := p.kms.GetActiveKey(ctx, ectx.Purpose)
	if err != nil {
		return EncryptedData{}, cerrors.KeyNotFound(ectx.Purpose)
	}
	if ectx.RequireFIPSCompliance && !meta.IsFIPSCompliant {
		return EncryptedData{}, cerrors.FIPSViolation(string(meta.Algorithm))
	}

	encKey, macKey, err := p.subkeys(meta.KeyMaterial, meta.KeyID)
	if err != nil {
		return EncryptedData{}, cerrors.Wrap(cerrors.KindCrypto, cerrors.CodeDecryptionFailed, "subkey derivation failed", err)
	}

	iv, ciphertext, tag, err := ccrypto.SealCBCHMAC(encKey, macKey, plaintext, ectx.AssociatedData)
	if err != nil {
		return EncryptedData{}, cerrors.Wrap(cerrors.KindCrypto, cerrors.CodeDecryptionFailed, "cbc-hmac seal failed", err)
	}

	return EncryptedData{
		Ciphertext: ciphertext,
		IV:         iv,
		AuthTag:    tag,
		KeyID:      meta.KeyID,
		KeyVersion: meta.Version,
		Algorithm:  AlgorithmAESCBCHMAC,
		TenantID:   ectx.TenantID,
	}, nil
}

func (p *AESCBCHMACProvider) Decrypt(ctx context.Context, encrypted EncryptedData, ectx Context) ([]byte, error) {
	if encrypted.Algorithm != AlgorithmAESCBCHMAC {
		return nil, cerrors.UnsupportedAlgorithm(string(encrypted.Algorithm))
	}
	meta, err := p.kms.GetKey(ctx, encrypted.KeyID)
	if err != nil {
		return nil, cerrors.KeyNotFound(encrypted.KeyID)
	}
	if meta.Version != encrypted.KeyVersion {
		// GetKey returns the newest version; find the one the envelope names.
		versions, err := p.kms.ListKeys(ctx, nil, "")
		if err != nil {
			return nil, cerrors.KeyNotFound(encrypted.KeyID)
		}
		found := false
		for _, v := range versions {
			if v.KeyID == encrypted.KeyID && v.Version == encrypted.KeyVersion {
				meta, found = v, true
			}
		}
		if !found {
			return nil, cerrors.KeyNotFound(encrypted.KeyID)
		}
	}

	encKey, macKey, err := p.subkeys(meta.KeyMaterial, meta.KeyID)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindCrypto, cerrors.CodeDecryptionFailed, "subkey derivation failed", err)
	}

	plaintext, err := ccrypto.OpenCBCHMAC(encKey, macKey, encrypted.IV, encrypted.Ciphertext, encrypted.AuthTag, ectx.AssociatedData)
	if err != nil {
		return nil, cerrors.DecryptionFailed(err)
	}
	return plaintext, nil
}

func (p *AESCBCHMACProvider) CanDecrypt(encrypted EncryptedData) bool {
	return encrypted.Algorithm == AlgorithmAESCBCHMAC
}

func (p *AESCBCHMACProvider) ValidateFIPSCompliance() error {
	return cerrors.FIPSViolation(string(AlgorithmAESCBCHMAC))
}
