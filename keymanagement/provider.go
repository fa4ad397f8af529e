package keymanagement

import (
	"context"
	"time"
)

// Provider is the key-management contract every encryption provider and
// the erasure service depend on (spec §4.3).
type Provider interface {
	GetKey(ctx context.Context, keyID string) (Metadata, error)
	GetActiveKey(ctx context.Context, purpose string) (Metadata, error)
	RotateKey(ctx context.Context, keyID string, algorithm Algorithm, purpose string, expiresAt *time.Time) (Metadata, error)
	ListKeys(ctx context.Context, status *Status, purpose string) ([]Metadata, error)
	DeleteKey(ctx context.Context, keyID string, gracePeriodDays int) error
	SuspendKey(ctx context.Context, keyID string, reason string) error
}
