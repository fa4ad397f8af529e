// Package masterkey implements master-key export, Shamir-based recovery
// splitting, and backup verification on top of compliance/shamir (spec
// §4.7). Grounded on the embedding platform's uuid-keyed record conventions
// (infrastructure/database mock repositories mint ids via uuid.New()) and
// on this module's own envelope-encryption and hashing primitives.
package masterkey

import (
	"time"
)

// BackupShare is one Shamir piece of a master key (spec §4.7).
type BackupShare struct {
	ShareID     string
	KeyID       string
	KeyVersion  int
	ShareIndex  int // 1..255; 0 denotes a Combine()-synthesized share
	TotalShares int
	Threshold   int
	ShareData   []byte
	KeyHash     string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	CustodianID string
}

// MasterKeyBackup is an encrypted export of a key's raw material (spec §4.7).
type MasterKeyBackup struct {
	BackupID            string
	KeyID               string
	KeyVersion          int
	EncryptedKeyMaterial []byte
	KeyHash             string
	FormatVersion       int
	CreatedAt           time.Time
	ExpiresAt           *time.Time
}

// supportedFormatVersions is the set format_supported checks against.
var supportedFormatVersions = map[int]bool{1: true}

const currentFormatVersion = 1

// BackupVerification is the result of verify_backup (spec §4.7).
type BackupVerification struct {
	IsValid              bool
	IsExpired            bool
	FormatSupported      bool
	IntegrityCheckPassed bool
	Warnings             []string
	Errors               []string
}

// expiryWarningWindow is how close to expiry verify_backup starts warning.
const expiryWarningWindow = 7 * 24 * time.Hour
