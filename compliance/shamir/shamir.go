// Package shamir implements Shamir's k-of-n secret sharing over GF(2^8),
// splitting/reconstructing byte-wise as spec §4.7 requires. Grounded in
// the embedding platform's byte-oriented cryptographic style (internal/crypto), with
// the field arithmetic novel to this package since nothing in the
// retrieval pack implements Shamir sharing directly.
package shamir

import (
	"crypto/rand"
	"fmt"
)

// gf256 implements addition (XOR), multiplication, and inversion in
// GF(2^8) with the AES reduction polynomial x^8+x^4+x^3+x+1 (0x11b).
func gfMul(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			p ^= a
		}
		hi := a & 0x80
		a <<= 1
		if hi != 0 {
			a ^= 0x1b
		}
		b >>= 1
	}
	return p
}

func gfPow(a byte, n int) byte {
	result := byte(1)
	for i := 0; i < n; i++ {
		result = gfMul(result, a)
	}
	return result
}

// gfInv returns the multiplicative inverse of a in GF(2^8); a must be non-zero.
func gfInv(a byte) byte {
	if a == 0 {
		return 0
	}
	// a^254 = a^-1 since the multiplicative group has order 255.
	return gfPow(a, 254)
}

// Split produces totalShares shares of secret such that any threshold of
// them reconstruct it exactly. Each share is len(secret)+1 bytes: a
// leading 1-based share index followed by the per-byte polynomial
// evaluation. An empty secret yields index-only shares of length 1.
func Split(secret []byte, totalShares, threshold int) ([][]byte, error) {
	if threshold < 2 || threshold > totalShares || totalShares > 255 {
		return nil, fmt.Errorf("shamir: require 2 <= threshold(%d) <= totalShares(%d) <= 255", threshold, totalShares)
	}

	shares := make([][]byte, totalShares)
	for i := range shares {
		shares[i] = make([]byte, len(secret)+1)
		shares[i][0] = byte(i + 1)
	}

	for byteIdx, secretByte := range secret {
		coeffs := make([]byte, threshold)
		coeffs[0] = secretByte
		if _, err := rand.Read(coeffs[1:]); err != nil {
			return nil, fmt.Errorf("shamir: read random coefficients: %w", err)
		}
		for shareIdx := 0; shareIdx < totalShares; shareIdx++ {
			x := byte(shareIdx + 1)
			shares[shareIdx][byteIdx+1] = evalPoly(coeffs, x)
		}
	}

	return shares, nil
}

// evalPoly evaluates sum(coeffs[i] * x^i) in GF(2^8) using Horner's method.
func evalPoly(coeffs []byte, x byte) byte {
	var result byte
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = gfMul(result, x) ^ coeffs[i]
	}
	return result
}

// Reconstruct recovers the original secret from a set of shares using
// Lagrange interpolation at x=0. Behavior with fewer than the original
// threshold of shares is unspecified (may return garbage, never panics or
// errors on that basis alone) per spec §4.7/§9.
func Reconstruct(shares [][]byte) ([]byte, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("shamir: no shares provided")
	}

	shareLen := len(shares[0])
	if shareLen < 2 {
		return nil, fmt.Errorf("shamir: shares must be at least 2 bytes (index + payload)")
	}

	seen := make(map[byte]bool, len(shares))
	xs := make([]byte, len(shares))
	for i, s := range shares {
		if len(s) != shareLen {
			return nil, fmt.Errorf("shamir: inconsistent share lengths")
		}
		idx := s[0]
		if idx == 0 {
			return nil, fmt.Errorf("shamir: share index must not be zero")
		}
		if seen[idx] {
			return nil, fmt.Errorf("shamir: duplicate share index %d", idx)
		}
		seen[idx] = true
		xs[i] = idx
	}

	secret := make([]byte, shareLen-1)
	for byteIdx := 0; byteIdx < shareLen-1; byteIdx++ {
		ys := make([]byte, len(shares))
		for i, s := range shares {
			ys[i] = s[byteIdx+1]
		}
		secret[byteIdx] = lagrangeAtZero(xs, ys)
	}
	return secret, nil
}

// lagrangeAtZero evaluates the Lagrange interpolation polynomial through
// (xs[i], ys[i]) at x=0, which recovers the constant term (the secret byte).
func lagrangeAtZero(xs, ys []byte) byte {
	var result byte
	for i := range xs {
		term := ys[i]
		for j := range xs {
			if i == j {
				continue
			}
			// numerator: 0 - xs[j] = xs[j] in GF(2) arithmetic (XOR negation is identity)
			num := xs[j]
			den := xs[i] ^ xs[j]
			term = gfMul(term, gfMul(num, gfInv(den)))
		}
		result ^= term
	}
	return result
}
