// Package keymanagement provides key lifecycle metadata, an in-memory
// provider reference implementation, a single-flight TTL cache in front
// of any provider, and a two-region provider with health-checked
// automatic failover.
package keymanagement

import (
	"strings"
	"time"
)

// Status is a key's lifecycle state. Integer values are stable for
// persistence (spec §3 KeyMetadata).
type Status int

const (
	StatusActive Status = iota
	StatusDecryptOnly
	StatusPendingDestruction
	StatusDestroyed
	StatusSuspended
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusDecryptOnly:
		return "DecryptOnly"
	case StatusPendingDestruction:
		return "PendingDestruction"
	case StatusDestroyed:
		return "Destroyed"
	case StatusSuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// Algorithm names a supported symmetric algorithm.
type Algorithm string

const (
	AlgorithmAESGCM     Algorithm = "AES-256-GCM"
	AlgorithmAESCBCHMAC Algorithm = "AES-256-CBC-HMAC"
)

// Metadata describes a single key version's identity and lifecycle. A new
// version supersedes prior versions of the same key_id; prior versions
// remain usable for decrypt until their status becomes Destroyed.
type Metadata struct {
	KeyID          string
	Version        int
	Algorithm      Algorithm
	Status         Status
	CreatedAt      time.Time
	ExpiresAt      *time.Time
	LastRotatedAt  *time.Time
	Purpose        string
	IsFIPSCompliant bool

	// KeyMaterial is held only by the in-memory reference provider; a
	// real KMS-backed provider would never surface raw material through
	// Metadata and would instead return only identity fields here.
	KeyMaterial []byte
}

// Scope is a key's logical scope, derived from its purpose token.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeTenant
	ScopeField
)

func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "User"
	case ScopeTenant:
		return "Tenant"
	case ScopeField:
		return "Field"
	default:
		return "Unknown"
	}
}

// ScopeFromPurpose derives a key's logical scope from its purpose string
// using case-insensitive token matching (spec §4.6): "USER"/"DEK" → User,
// "TENANT"/"KEK" → Tenant, "FIELD" → Field, anything else (including
// empty) → User.
func ScopeFromPurpose(purpose string) Scope {
	upper := strings.ToUpper(purpose)
	switch {
	case strings.Contains(upper, "USER"), strings.Contains(upper, "DEK"):
		return ScopeUser
	case strings.Contains(upper, "TENANT"), strings.Contains(upper, "KEK"):
		return ScopeTenant
	case strings.Contains(upper, "FIELD"):
		return ScopeField
	default:
		return ScopeUser
	}
}
