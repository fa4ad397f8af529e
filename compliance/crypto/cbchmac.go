package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// SealCBCHMAC implements AES-256-CBC with an encrypt-then-MAC HMAC-SHA256
// tag, the "AES-256-CBC-HMAC" algorithm named in spec §3. encKey and
// macKey are independent 32-byte keys (callers derive them as distinct
// HKDF subkeys of the same key material, labeled "cbc-hmac-enc"/"cbc-hmac-mac").
func SealCBCHMAC(encKey, macKey, plaintext, associatedData []byte) (iv, ciphertext, tag []byte, err error) {
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	iv = make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, fmt.Errorf("crypto: read iv: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	tag = cbcHMACTag(macKey, associatedData, iv, ciphertext)
	return iv, ciphertext, tag, nil
}

// OpenCBCHMAC verifies the HMAC tag and decrypts a SealCBCHMAC payload.
func OpenCBCHMAC(encKey, macKey, iv, ciphertext, tag, associatedData []byte) ([]byte, error) {
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("crypto: invalid iv length")
	}
	if len(ciphertext)%aes.BlockSize != 0 || len(ciphertext) == 0 {
		return nil, fmt.Errorf("crypto: invalid ciphertext length")
	}
	expected := cbcHMACTag(macKey, associatedData, iv, ciphertext)
	if !hmac.Equal(expected, tag) {
		return nil, fmt.Errorf("crypto: auth tag mismatch")
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
	return pkcs7Unpad(padded)
}

func cbcHMACTag(macKey, associatedData, iv, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, macKey)
	mac.Write(associatedData)
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("crypto: empty padded data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("crypto: invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("crypto: invalid padding")
		}
	}
	return data[:len(data)-padLen], nil
}
