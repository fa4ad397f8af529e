// Package decorators wraps the outbox/inbox message stores with
// transparent field-level encryption (spec §6 "Store contracts" —
// IOutboxStore/IInboxStore). Producers stage payloads through the
// outbox decorator, which encrypts via the registry's primary
// provider before delegating the write; consumers read through the
// inbox decorator, which picks a decryption provider by the
// envelope's algorithm. Grounded on the embedding platform's
// infrastructure/secrets.Manager shape (a thin wrapper that
// encrypts/decrypts around an injected repository), generalized from
// a single AEAD to the registry's primary/legacy provider set.
package decorators

import (
	"context"

	"github.com/meridian-dispatch/compliance-core/compliance/logging"
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/encryption"
)

// Mode selects how a decorator treats the payload field on read/write.
type Mode string

const (
	// Disabled passes every read and write through unchanged.
	Disabled Mode = "Disabled"
	// EncryptAndDecrypt encrypts on write and decrypts on read.
	EncryptAndDecrypt Mode = "EncryptAndDecrypt"
	// DecryptOnlyReadOnly decrypts on read but refuses mutating writes,
	// for a consumer migrating away from a decorator that still owns
	// the write path elsewhere.
	DecryptOnlyReadOnly Mode = "DecryptOnlyReadOnly"
)

// LazyMigrationMode controls which access path opportunistically
// re-encrypts a payload under the registry's current primary provider.
type LazyMigrationMode string

const (
	LazyMigrationRead  LazyMigrationMode = "Read"
	LazyMigrationWrite LazyMigrationMode = "Write"
	LazyMigrationBoth  LazyMigrationMode = "Both"
)

// Options configures an encrypting decorator.
type Options struct {
	Mode Mode

	// LazyMigrationEnabled, when true, re-encrypts a payload found under
	// a legacy provider the next time it's touched on a path named by
	// LazyMigrationMode (default false; spec §6).
	LazyMigrationEnabled bool
	// LazyMigrationMode defaults to Both when unset.
	LazyMigrationMode LazyMigrationMode

	Logger *logging.Logger
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = EncryptAndDecrypt
	}
	if o.LazyMigrationMode == "" {
		o.LazyMigrationMode = LazyMigrationBoth
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

func (o Options) migratesOnRead() bool {
	return o.LazyMigrationEnabled && (o.LazyMigrationMode == LazyMigrationRead || o.LazyMigrationMode == LazyMigrationBoth)
}

func (o Options) migratesOnWrite() bool {
	return o.LazyMigrationEnabled && (o.LazyMigrationMode == LazyMigrationWrite || o.LazyMigrationMode == LazyMigrationBoth)
}

// sealField encrypts plaintext through the registry's primary provider
// and returns its wire-marshaled envelope, or plaintext unchanged when
// mode is Disabled.
func sealField(ctx context.Context, registry *encryption.Registry, mode Mode, plaintext []byte, ectx encryption.Context) ([]byte, error) {
	if mode == Disabled {
		return plaintext, nil
	}
	primary, err := registry.GetPrimary()
	if err != nil {
		return nil, err
	}
	encrypted, err := primary.Encrypt(ctx, plaintext, ectx)
	if err != nil {
		return nil, err
	}
	return encrypted.Marshal()
}

// openField decrypts buf if it carries the encrypted-envelope magic
// prefix, otherwise returns it unchanged (legacy plaintext rows).
// reencryptUnder, if non-nil, is called with the re-sealed bytes when
// the field was decrypted via a non-primary (legacy) provider and lazy
// migration applies to the calling path.
func openField(ctx context.Context, registry *encryption.Registry, mode Mode, buf []byte, ectx encryption.Context, migrate bool, reencryptUnder func(ctx context.Context, resealed []byte) error) ([]byte, error) {
	if mode == Disabled || !encryption.IsFieldEncrypted(buf) {
		return buf, nil
	}
	encrypted, err := encryption.Unmarshal(buf)
	if err != nil {
		return nil, err
	}
	provider, ok := registry.FindDecryptionProvider(encrypted)
	if !ok {
		return nil, cerrors.UnsupportedCiphertext("no registered provider can decrypt this envelope")
	}
	plaintext, err := provider.Decrypt(ctx, encrypted, ectx)
	if err != nil {
		return nil, err
	}
	if !migrate || reencryptUnder == nil {
		return plaintext, nil
	}
	primary, err := registry.GetPrimary()
	if err != nil || primary.ID() == provider.ID() {
		return plaintext, nil
	}
	resealed, err := primary.Encrypt(ctx, plaintext, ectx)
	if err != nil {
		return plaintext, nil
	}
	marshaled, err := resealed.Marshal()
	if err != nil {
		return plaintext, nil
	}
	if err := reencryptUnder(ctx, marshaled); err != nil {
		return plaintext, nil
	}
	return plaintext, nil
}

// reconcileForWrite re-seals buf under the current primary provider
// when it's already encrypted under a legacy one and write-path lazy
// migration applies; otherwise returns buf unchanged. Used by Save so
// a message re-queued while still wrapped in a retired provider's
// envelope gets migrated without a separate read.
func reconcileForWrite(ctx context.Context, registry *encryption.Registry, opts Options, buf []byte, ectx encryption.Context) ([]byte, error) {
	if opts.Mode == Disabled || !opts.migratesOnWrite() || !encryption.IsFieldEncrypted(buf) {
		return buf, nil
	}
	encrypted, err := encryption.Unmarshal(buf)
	if err != nil {
		return nil, err
	}
	provider, ok := registry.FindDecryptionProvider(encrypted)
	if !ok {
		return nil, cerrors.UnsupportedCiphertext("no registered provider can decrypt this envelope")
	}
	primary, err := registry.GetPrimary()
	if err != nil || primary.ID() == provider.ID() {
		return buf, nil
	}
	plaintext, err := provider.Decrypt(ctx, encrypted, ectx)
	if err != nil {
		return buf, nil
	}
	resealed, err := primary.Encrypt(ctx, plaintext, ectx)
	if err != nil {
		return buf, nil
	}
	return resealed.Marshal()
}
