package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenGCMRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	plaintext := []byte{0x01, 0x02, 0x03}

	nonce, ciphertext, err := SealGCM(key, plaintext, []byte("aad"))
	require.NoError(t, err)
	assert.Len(t, nonce, GCMNonceSize)

	out, err := OpenGCM(key, nonce, ciphertext, []byte("aad"))
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestOpenGCMWrongAADFails(t *testing.T) {
	key := make([]byte, 32)
	nonce, ciphertext, err := SealGCM(key, []byte("hello"), []byte("aad-a"))
	require.NoError(t, err)

	_, err = OpenGCM(key, nonce, ciphertext, []byte("aad-b"))
	assert.Error(t, err)
}

func TestDeriveSubkeyDeterministic(t *testing.T) {
	master := []byte("master-key-material-32-bytes!!!")
	k1, err := DeriveSubkey(master, "erasure:user", []byte("tenant-a"), 32)
	require.NoError(t, err)
	k2, err := DeriveSubkey(master, "erasure:user", []byte("tenant-a"), 32)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := DeriveSubkey(master, "erasure:tenant", []byte("tenant-a"), 32)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestCBCHMACRoundTrip(t *testing.T) {
	encKey := make([]byte, 32)
	macKey := make([]byte, 32)
	for i := range macKey {
		macKey[i] = byte(i + 1)
	}
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	iv, ciphertext, tag, err := SealCBCHMAC(encKey, macKey, plaintext, []byte("aad"))
	require.NoError(t, err)

	out, err := OpenCBCHMAC(encKey, macKey, iv, ciphertext, tag, []byte("aad"))
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestCBCHMACTamperedTagFails(t *testing.T) {
	encKey := make([]byte, 32)
	macKey := make([]byte, 32)
	iv, ciphertext, tag, err := SealCBCHMAC(encKey, macKey, []byte("data"), nil)
	require.NoError(t, err)
	tag[0] ^= 0xFF

	_, err = OpenCBCHMAC(encKey, macKey, iv, ciphertext, tag, nil)
	assert.Error(t, err)
}

func TestHashSubjectIDFormat(t *testing.T) {
	h1 := HashSubjectID("user-1")
	h2 := HashSubjectID("user-1")
	h3 := HashSubjectID("user-2")

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	for _, c := range h1 {
		assert.False(t, c >= 'a' && c <= 'z', "hash must be uppercase")
	}
}

func TestHMACSignVerify(t *testing.T) {
	key := []byte("signing-key")
	sig := HMACSign(key, []byte("payload"))
	assert.True(t, HMACVerify(key, []byte("payload"), sig))
	assert.False(t, HMACVerify(key, []byte("tampered"), sig))
}
