package decorators

import (
	"context"

	"github.com/meridian-dispatch/compliance-core/compliance/logging"
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/encryption"
)

// OutboxMessage is one staged outbound message. Payload carries either
// plaintext or an encrypted envelope depending on where in the pipeline
// it sits; TenantID and Purpose feed the encryption context.
type OutboxMessage struct {
	MessageID string
	TenantID  string
	Purpose   string
	Payload   []byte
}

// OutboxStore is the subset of the embedding application's outbox
// persistence the decorator wraps (spec §6 IOutboxStore).
type OutboxStore interface {
	Save(ctx context.Context, msg OutboxMessage) error
	Get(ctx context.Context, messageID string) (OutboxMessage, bool, error)
}

// EncryptingOutboxStore wraps an OutboxStore, sealing the payload field
// through the registry's primary provider on write and opening it on
// read, per the configured Mode.
type EncryptingOutboxStore struct {
	inner    OutboxStore
	registry *encryption.Registry
	opts     Options
	log      *logging.Logger
}

// NewEncryptingOutboxStore constructs a decorator around inner.
func NewEncryptingOutboxStore(inner OutboxStore, registry *encryption.Registry, opts Options) *EncryptingOutboxStore {
	opts = opts.withDefaults()
	return &EncryptingOutboxStore{inner: inner, registry: registry, opts: opts, log: opts.Logger}
}

// Save encrypts msg.Payload (unless Mode is Disabled) and delegates to
// the inner store. Refused in DecryptOnlyReadOnly mode (spec §6).
func (s *EncryptingOutboxStore) Save(ctx context.Context, msg OutboxMessage) error {
	if s.opts.Mode == DecryptOnlyReadOnly {
		return cerrors.Configuration("outbox store is decrypt-only; mutating writes are refused")
	}
	ectx := encryption.Context{TenantID: msg.TenantID, Purpose: msg.Purpose}
	if encryption.IsFieldEncrypted(msg.Payload) {
		migrated, err := reconcileForWrite(ctx, s.registry, s.opts, msg.Payload, ectx)
		if err != nil {
			s.log.Error(ctx, "outbox migration-on-write failed", err, map[string]interface{}{"message_id": msg.MessageID})
			return err
		}
		msg.Payload = migrated
		return s.inner.Save(ctx, msg)
	}
	sealed, err := sealField(ctx, s.registry, s.opts.Mode, msg.Payload, ectx)
	if err != nil {
		s.log.Error(ctx, "outbox encrypt failed", err, map[string]interface{}{"message_id": msg.MessageID})
		return err
	}
	msg.Payload = sealed
	return s.inner.Save(ctx, msg)
}

// Get fetches msg and decrypts its payload field if encrypted. With
// lazy migration enabled for the read path and the payload found under
// a non-primary provider, the plaintext is re-sealed under the current
// primary and written back via Save.
func (s *EncryptingOutboxStore) Get(ctx context.Context, messageID string) (OutboxMessage, bool, error) {
	msg, found, err := s.inner.Get(ctx, messageID)
	if err != nil || !found {
		return msg, found, err
	}
	ectx := encryption.Context{TenantID: msg.TenantID, Purpose: msg.Purpose}
	plaintext, err := openField(ctx, s.registry, s.opts.Mode, msg.Payload, ectx, s.opts.migratesOnRead(), func(ctx context.Context, resealed []byte) error {
		if s.opts.Mode == DecryptOnlyReadOnly {
			return nil
		}
		migrated := msg
		migrated.Payload = resealed
		return s.inner.Save(ctx, migrated)
	})
	if err != nil {
		s.log.Error(ctx, "outbox decrypt failed", err, map[string]interface{}{"message_id": messageID})
		return OutboxMessage{}, false, err
	}
	msg.Payload = plaintext
	return msg, true, nil
}
