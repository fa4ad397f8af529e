package masterkey

import (
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/compliance/shamir"
)

// Combine produces a synthetic share_index=0 BackupShare representing the
// whole set, failing unless every share agrees on key_id, key_version,
// threshold, and total_shares (spec §4.7).
func Combine(shares []BackupShare) (BackupShare, error) {
	if len(shares) == 0 {
		return BackupShare{}, cerrors.InsufficientShares(0, 1)
	}
	first := shares[0]
	for _, s := range shares[1:] {
		if s.KeyID != first.KeyID || s.KeyVersion != first.KeyVersion ||
			s.Threshold != first.Threshold || s.TotalShares != first.TotalShares {
			return BackupShare{}, cerrors.ShareMismatch("shares disagree on key_id, key_version, threshold, or total_shares")
		}
	}

	raw := make([][]byte, len(shares))
	for i, s := range shares {
		raw[i] = encodeRawShare(s.ShareIndex, s.ShareData)
	}
	secret, err := shamir.Reconstruct(raw)
	if err != nil {
		return BackupShare{}, cerrors.Wrap(cerrors.KindCrypto, cerrors.CodeDecryptionFailed, "shamir reconstruct failed", err)
	}

	return BackupShare{
		KeyID:       first.KeyID,
		KeyVersion:  first.KeyVersion,
		ShareIndex:  0,
		TotalShares: first.TotalShares,
		Threshold:   first.Threshold,
		ShareData:   secret,
		KeyHash:     first.KeyHash,
		CreatedAt:   first.CreatedAt,
	}, nil
}

// encodeRawShare rebuilds the index-prefixed byte array compliance/shamir
// expects from a BackupShare's decomposed fields.
func encodeRawShare(index int, data []byte) []byte {
	raw := make([]byte, len(data)+1)
	raw[0] = byte(index)
	copy(raw[1:], data)
	return raw
}
