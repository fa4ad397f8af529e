package encryption

import "context"

// Provider is the contract every encryption algorithm implementation and
// the rotating/registry wrappers satisfy (spec §4.1-4.2).
type Provider interface {
	// ID is the provider's registry identifier (case-insensitive).
	ID() string
	Encrypt(ctx context.Context, plaintext []byte, ectx Context) (EncryptedData, error)
	Decrypt(ctx context.Context, encrypted EncryptedData, ectx Context) ([]byte, error)
	// CanDecrypt reports whether this provider can decrypt the given
	// envelope; the default implementation checks algorithm membership.
	CanDecrypt(encrypted EncryptedData) bool
	ValidateFIPSCompliance() error
}
