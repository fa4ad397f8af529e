// Package crypto holds the low-level cryptographic primitives shared by
// the encryption providers, key management, and master-key backup
// packages: AES-256-GCM/CBC-HMAC sealing, HKDF-based subkey derivation,
// subject-id hashing, HMAC signing, and best-effort key zeroing.
//
// Adapted from the embedding platform's internal/crypto (HKDF via golang.org/x/crypto/
// hkdf, HMAC sign/verify, ZeroBytes) and infrastructure/crypto (envelope
// AEAD sealing), generalized from a single hard-coded envelope scheme to
// the algorithm set spec §3 names (AES-256-GCM, AES-256-CBC-HMAC).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// GCMNonceSize and GCMTagSize are the fixed sizes spec §4.2 names: a
// 12-byte random IV and a 16-byte auth tag.
const (
	GCMNonceSize = 12
	GCMTagSize   = 16
)

// DeriveSubkey derives a per-purpose subkey from a master key using
// HKDF-SHA256, binding in a purpose label and optional context salt.
// This is the HKDF-based per-purpose subkey derivation spec §GLOSSARY
// and §2 name for the encryption-provider layer.
func DeriveSubkey(masterKey []byte, purpose string, salt []byte, keyLen int) ([]byte, error) {
	if len(masterKey) == 0 {
		return nil, fmt.Errorf("crypto: master key must not be empty")
	}
	reader := hkdf.New(sha256.New, masterKey, salt, []byte(purpose))
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("crypto: derive subkey: %w", err)
	}
	return key, nil
}

// SealGCM encrypts plaintext with AES-256-GCM under key, returning a
// random 12-byte nonce and the ciphertext (which includes the 16-byte
// auth tag appended by Go's cipher.AEAD).
func SealGCM(key, plaintext, associatedData []byte) (nonce, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, GCMNonceSize)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	nonce = make([]byte, GCMNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: read nonce: %w", err)
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, associatedData)
	return nonce, ciphertext, nil
}

// OpenGCM decrypts a SealGCM payload. ciphertext must include the trailing
// auth tag exactly as produced by SealGCM.
func OpenGCM(key, nonce, ciphertext, associatedData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, GCMNonceSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm open: %w", err)
	}
	return plaintext, nil
}

// SplitGCMTag splits a GCM ciphertext blob into the body and the trailing
// 16-byte auth tag, for callers that persist them as separate EncryptedData
// fields (spec §3 EncryptedData.auth_tag).
func SplitGCMTag(sealed []byte) (body, tag []byte, err error) {
	if len(sealed) < GCMTagSize {
		return nil, nil, fmt.Errorf("crypto: sealed payload shorter than auth tag")
	}
	split := len(sealed) - GCMTagSize
	return sealed[:split], sealed[split:], nil
}

// HMACSign computes an HMAC-SHA256 signature over data under key.
func HMACSign(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// HMACVerify reports whether signature is a valid HMAC-SHA256 over data
// under key, using a constant-time comparison.
func HMACVerify(key, data, signature []byte) bool {
	return hmac.Equal(signature, HMACSign(key, data))
}

// HashSubjectID computes the uppercase-hex SHA-256 hash of a plaintext
// data subject id, as spec §3/§8 require for data_subject_id_hash.
func HashSubjectID(subjectID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(subjectID)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// HashBytes computes the uppercase-hex SHA-256 hash of arbitrary bytes,
// used for integrity fingerprints such as a master-key backup's key_hash
// (spec §4.7) where the hashed value is not a subject identifier.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// ZeroBytes overwrites b with zeros in place; used to scrub key material
// from memory once it is no longer needed (spec §5 "zeroed on best-effort
// when removed from the cache").
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
