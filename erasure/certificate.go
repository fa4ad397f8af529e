package erasure

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	ccrypto "github.com/meridian-dispatch/compliance-core/compliance/crypto"
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
)

// Method names how an erasure was carried out.
type Method string

const MethodCryptographicErasure Method = "CryptographicErasure"

// CertificateFormatVersion is the only format this runtime emits or
// accepts (spec §4.4).
const CertificateFormatVersion = "1.0"

// retentionPeriod is how long a certificate must be retained after
// completion (spec §4.4).
const retentionPeriod = 7 * 365 * 24 * time.Hour

// CertificateSummary counts what an erasure actually affected.
type CertificateSummary struct {
	KeysDeleted     int
	KeysSkipped     int
	RecordsAffected int
}

// Certificate is the signed, tamper-evident receipt of a completed
// erasure (spec §4.4, §6).
type Certificate struct {
	CertificateID        string
	RequestID            string
	DataSubjectReference string // data_subject_id_hash
	RequestReceivedAt    time.Time
	CompletedAt          time.Time
	Method               Method
	Summary              CertificateSummary
	Verification         []string
	LegalBasis           LegalBasis
	Exceptions           []string
	Signature            []byte
	RetainUntil          time.Time
	FormatVersion        string
	GeneratedAt          time.Time
}

// canonicalSigningInput deterministically orders every signed field so
// signature verification is stable regardless of struct field order
// (spec §6 "canonical signing input orders fields deterministically").
func canonicalSigningInput(c Certificate) []byte {
	return []byte(fmt.Sprintf(
		"%s|%s|%s|%s|%s|%s|%d|%d|%d",
		c.CertificateID,
		c.RequestID,
		c.DataSubjectReference,
		c.CompletedAt.UTC().Format(time.RFC3339),
		c.Method,
		c.LegalBasis,
		c.Summary.KeysDeleted,
		c.Summary.KeysSkipped,
		c.Summary.RecordsAffected,
	))
}

// Signer signs and verifies erasure certificates with a fixed HMAC key.
type Signer struct {
	signingKey []byte
}

// minSigningKeyLen is the spec's "≥ 32 bytes" requirement for the signing key.
const minSigningKeyLen = 32

// NewSigner validates signingKey's length at construction time, matching
// spec §4.4 "absence is a configuration error at construction time."
func NewSigner(signingKey []byte) (*Signer, error) {
	if len(signingKey) < minSigningKeyLen {
		return nil, cerrors.MissingSigningKey()
	}
	return &Signer{signingKey: signingKey}, nil
}

// Sign computes the HMAC-SHA256 signature over cert's canonical fields.
func (s *Signer) Sign(cert Certificate) []byte {
	return ccrypto.HMACSign(s.signingKey, canonicalSigningInput(cert))
}

// Verify reports whether cert.Signature matches the canonical signing
// input under s's key.
func (s *Signer) Verify(cert Certificate) bool {
	return ccrypto.HMACVerify(s.signingKey, canonicalSigningInput(cert), cert.Signature)
}

// newCertificateID mints a fresh certificate id.
func newCertificateID() string { return uuid.New().String() }
