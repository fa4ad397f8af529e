package decorators

import (
	"context"
	"sync"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
)

// InMemoryOutboxStore is a reference OutboxStore used by tests and as
// the innermost store a decorator wraps; it stores whatever bytes it's
// given, encrypted or not.
type InMemoryOutboxStore struct {
	mu       sync.Mutex
	messages map[string]OutboxMessage
}

func NewInMemoryOutboxStore() *InMemoryOutboxStore {
	return &InMemoryOutboxStore{messages: make(map[string]OutboxMessage)}
}

func (s *InMemoryOutboxStore) Save(ctx context.Context, msg OutboxMessage) error {
	if msg.MessageID == "" {
		return cerrors.NullArgument("message_id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.MessageID] = msg
	return nil
}

func (s *InMemoryOutboxStore) Get(ctx context.Context, messageID string) (OutboxMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	return msg, ok, nil
}

// InMemoryInboxStore is a reference InboxStore, symmetric with
// InMemoryOutboxStore plus an acknowledgement flag.
type InMemoryInboxStore struct {
	mu       sync.Mutex
	messages map[string]InboxMessage
}

func NewInMemoryInboxStore() *InMemoryInboxStore {
	return &InMemoryInboxStore{messages: make(map[string]InboxMessage)}
}

func (s *InMemoryInboxStore) Save(ctx context.Context, msg InboxMessage) error {
	if msg.MessageID == "" {
		return cerrors.NullArgument("message_id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.MessageID] = msg
	return nil
}

func (s *InMemoryInboxStore) Get(ctx context.Context, messageID string) (InboxMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	return msg, ok, nil
}

func (s *InMemoryInboxStore) Ack(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return cerrors.NotFound("inbox_message", messageID)
	}
	msg.Acked = true
	s.messages[messageID] = msg
	return nil
}
