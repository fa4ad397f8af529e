package masterkey

import (
	"context"
	"time"

	"github.com/google/uuid"

	ccrypto "github.com/meridian-dispatch/compliance-core/compliance/crypto"
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/compliance/shamir"
	"github.com/meridian-dispatch/compliance-core/encryption"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
)

const (
	defaultExportExpiry = 90 * 24 * time.Hour
	defaultSplitExpiry  = 365 * 24 * time.Hour
)

// ExportOptions configures export_master_key.
type ExportOptions struct {
	ExpiresIn time.Duration // default 90 days
}

// SplitOptions configures generate_recovery_split.
type SplitOptions struct {
	ExpiresIn   time.Duration // default 365 days
	CustodianIDs []string     // if set, must have length == total
}

// ReconstructOptions configures reconstruct_from_shares.
type ReconstructOptions struct {
	Now time.Time // defaults to time.Now(); overridable for deterministic tests
}

// MasterKeyBackupService is spec §4.7 surface atop keymanagement and
// compliance/shamir.
type MasterKeyBackupService interface {
	ExportMasterKey(ctx context.Context, keyID string, opts ExportOptions) (MasterKeyBackup, error)
	GenerateRecoverySplit(ctx context.Context, keyID string, total, threshold int, opts SplitOptions) ([]BackupShare, error)
	ReconstructFromShares(ctx context.Context, shares []BackupShare, opts ReconstructOptions) (keyID string, err error)
	VerifyBackup(backup MasterKeyBackup) BackupVerification
}

// InMemoryMasterKeyBackupService wraps a key provider and an encryption
// provider used to envelope-wrap exported key material (spec §4.7).
type InMemoryMasterKeyBackupService struct {
	kms       keymanagement.Provider
	encryptor encryption.Provider
}

func NewInMemoryMasterKeyBackupService(kms keymanagement.Provider, encryptor encryption.Provider) *InMemoryMasterKeyBackupService {
	return &InMemoryMasterKeyBackupService{kms: kms, encryptor: encryptor}
}

// ExportMasterKey wraps keyID's current material under s.encryptor, producing
// a MasterKeyBackup with a default 90-day expiry.
func (s *InMemoryMasterKeyBackupService) ExportMasterKey(ctx context.Context, keyID string, opts ExportOptions) (MasterKeyBackup, error) {
	meta, err := s.kms.GetKey(ctx, keyID)
	if err != nil {
		return MasterKeyBackup{}, cerrors.KeyNotFound(keyID)
	}

	expiresIn := opts.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExportExpiry
	}

	encrypted, err := s.encryptor.Encrypt(ctx, meta.KeyMaterial, encryption.Context{KeyID: keyID})
	if err != nil {
		return MasterKeyBackup{}, err
	}
	wire, err := encrypted.Marshal()
	if err != nil {
		return MasterKeyBackup{}, err
	}

	now := time.Now()
	expiresAt := now.Add(expiresIn)
	return MasterKeyBackup{
		BackupID:             uuid.New().String(),
		KeyID:                keyID,
		KeyVersion:           meta.Version,
		EncryptedKeyMaterial: wire,
		KeyHash:              ccrypto.HashBytes(meta.KeyMaterial),
		FormatVersion:        currentFormatVersion,
		CreatedAt:            now,
		ExpiresAt:            &expiresAt,
	}, nil
}

// GenerateRecoverySplit Shamir-splits keyID's current material into total
// shares requiring threshold to reconstruct, each expiring in 365 days by
// default.
func (s *InMemoryMasterKeyBackupService) GenerateRecoverySplit(ctx context.Context, keyID string, total, threshold int, opts SplitOptions) ([]BackupShare, error) {
	meta, err := s.kms.GetKey(ctx, keyID)
	if err != nil {
		return nil, cerrors.KeyNotFound(keyID)
	}
	if opts.CustodianIDs != nil && len(opts.CustodianIDs) != total {
		return nil, cerrors.NullArgument("custodian_ids must have length equal to total")
	}

	raw, err := shamir.Split(meta.KeyMaterial, total, threshold)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindCrypto, cerrors.CodeDecryptionFailed, "shamir split failed", err)
	}

	expiresIn := opts.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultSplitExpiry
	}
	now := time.Now()
	expiresAt := now.Add(expiresIn)
	keyHash := ccrypto.HashBytes(meta.KeyMaterial)

	shares := make([]BackupShare, total)
	for i, r := range raw {
		share := BackupShare{
			ShareID:     uuid.New().String(),
			KeyID:       keyID,
			KeyVersion:  meta.Version,
			ShareIndex:  int(r[0]),
			TotalShares: total,
			Threshold:   threshold,
			ShareData:   r[1:],
			KeyHash:     keyHash,
			CreatedAt:   now,
			ExpiresAt:   &expiresAt,
		}
		if opts.CustodianIDs != nil {
			share.CustodianID = opts.CustodianIDs[i]
		}
		shares[i] = share
	}
	return shares, nil
}

// ReconstructFromShares recovers the key_id a set of shares was split from,
// without exposing the reconstructed secret itself (spec §4.7 returns only
// {success, key_id}).
func (s *InMemoryMasterKeyBackupService) ReconstructFromShares(ctx context.Context, shares []BackupShare, opts ReconstructOptions) (string, error) {
	if len(shares) == 0 {
		return "", cerrors.InsufficientShares(0, 1)
	}

	first := shares[0]
	for _, share := range shares[1:] {
		if share.KeyID != first.KeyID || share.KeyVersion != first.KeyVersion {
			return "", cerrors.ShareMismatch("shares reference different key_id or key_version")
		}
	}
	if len(shares) < first.Threshold {
		return "", cerrors.InsufficientShares(len(shares), first.Threshold)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	for _, share := range shares {
		if share.ExpiresAt != nil && share.ExpiresAt.Before(now) {
			return "", cerrors.BackupExpired()
		}
	}

	raw := make([][]byte, len(shares))
	for i, share := range shares {
		raw[i] = encodeRawShare(share.ShareIndex, share.ShareData)
	}
	if _, err := shamir.Reconstruct(raw); err != nil {
		return "", cerrors.Wrap(cerrors.KindCrypto, cerrors.CodeDecryptionFailed, "shamir reconstruct failed", err)
	}

	return first.KeyID, nil
}

// VerifyBackup inspects backup without requiring the original key provider.
func (s *InMemoryMasterKeyBackupService) VerifyBackup(backup MasterKeyBackup) BackupVerification {
	var result BackupVerification
	result.FormatSupported = supportedFormatVersions[backup.FormatVersion]
	if !result.FormatSupported {
		result.Errors = append(result.Errors, "unsupported backup format version")
	}

	result.IsExpired = backup.ExpiresAt != nil && backup.ExpiresAt.Before(time.Now())
	if result.IsExpired {
		result.Errors = append(result.Errors, "backup has expired")
	} else if backup.ExpiresAt != nil && time.Until(*backup.ExpiresAt) < expiryWarningWindow {
		result.Warnings = append(result.Warnings, "backup expires within 7 days")
	}

	result.IntegrityCheckPassed = len(backup.EncryptedKeyMaterial) > 0
	if !result.IntegrityCheckPassed {
		result.Errors = append(result.Errors, "encrypted key material is empty")
	}

	result.IsValid = result.FormatSupported && !result.IsExpired && result.IntegrityCheckPassed
	return result
}
