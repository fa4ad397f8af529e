package decorators

import (
	"context"

	"github.com/meridian-dispatch/compliance-core/compliance/logging"
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/encryption"
)

// InboxMessage is one received message awaiting consumer processing.
type InboxMessage struct {
	MessageID string
	TenantID  string
	Purpose   string
	Payload   []byte
	Acked     bool
}

// InboxStore is the subset of the embedding application's inbox
// persistence the decorator wraps (spec §6 IInboxStore).
type InboxStore interface {
	Save(ctx context.Context, msg InboxMessage) error
	Get(ctx context.Context, messageID string) (InboxMessage, bool, error)
	Ack(ctx context.Context, messageID string) error
}

// EncryptingInboxStore is the symmetric counterpart of
// EncryptingOutboxStore: it decrypts payloads read by consumers,
// selecting whichever registered provider (primary or legacy) the
// envelope's algorithm names, rather than assuming the primary.
type EncryptingInboxStore struct {
	inner    InboxStore
	registry *encryption.Registry
	opts     Options
	log      *logging.Logger
}

// NewEncryptingInboxStore constructs a decorator around inner.
func NewEncryptingInboxStore(inner InboxStore, registry *encryption.Registry, opts Options) *EncryptingInboxStore {
	opts = opts.withDefaults()
	return &EncryptingInboxStore{inner: inner, registry: registry, opts: opts, log: opts.Logger}
}

// Save seals msg.Payload before delegating the write. Received messages
// are typically already encrypted upstream (the outbox decorator sealed
// them before dispatch); Save seals a plaintext payload, e.g. a locally
// originated message re-queued into the inbox, and re-seals an
// already-encrypted payload under the primary only when write-path lazy
// migration applies and the envelope opens under a legacy provider.
func (s *EncryptingInboxStore) Save(ctx context.Context, msg InboxMessage) error {
	if s.opts.Mode == DecryptOnlyReadOnly {
		return cerrors.Configuration("inbox store is decrypt-only; mutating writes are refused")
	}
	ectx := encryption.Context{TenantID: msg.TenantID, Purpose: msg.Purpose}
	if encryption.IsFieldEncrypted(msg.Payload) {
		migrated, err := reconcileForWrite(ctx, s.registry, s.opts, msg.Payload, ectx)
		if err != nil {
			s.log.Error(ctx, "inbox migration-on-write failed", err, map[string]interface{}{"message_id": msg.MessageID})
			return err
		}
		msg.Payload = migrated
		return s.inner.Save(ctx, msg)
	}
	sealed, err := sealField(ctx, s.registry, s.opts.Mode, msg.Payload, ectx)
	if err != nil {
		s.log.Error(ctx, "inbox encrypt failed", err, map[string]interface{}{"message_id": msg.MessageID})
		return err
	}
	msg.Payload = sealed
	return s.inner.Save(ctx, msg)
}

// Get fetches msg and decrypts its payload, selecting a decryption
// provider by the envelope's algorithm rather than assuming primary, so
// a consumer can read messages sealed under a provider that has since
// been demoted to legacy.
func (s *EncryptingInboxStore) Get(ctx context.Context, messageID string) (InboxMessage, bool, error) {
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
		s.log.Error(ctx, "inbox decrypt failed", err, map[string]interface{}{"message_id": messageID})
		return InboxMessage{}, false, err
	}
	msg.Payload = plaintext
	return msg, true, nil
}

// Ack marks a message processed. Passes through regardless of Mode —
// acknowledgement is not a payload mutation.
func (s *EncryptingInboxStore) Ack(ctx context.Context, messageID string) error {
	return s.inner.Ack(ctx, messageID)
}
