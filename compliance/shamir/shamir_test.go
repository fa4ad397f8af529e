package shamir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitReconstructThreeOfFive(t *testing.T) {
	secret := []byte("Hello, Shamir!")

	shares, err := Split(secret, 5, 3)
	require.NoError(t, err)
	require.Len(t, shares, 5)
	for i, s := range shares {
		assert.Len(t, s, len(secret)+1)
		assert.Equal(t, byte(i+1), s[0])
	}

	got, err := Reconstruct([][]byte{shares[0], shares[2], shares[4]})
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestReconstructAnySubsetOfThreshold(t *testing.T) {
	secret := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}
	shares, err := Split(secret, 6, 4)
	require.NoError(t, err)

	subsets := [][]int{
		{0, 1, 2, 3},
		{1, 2, 4, 5},
		{0, 2, 3, 5},
		{2, 3, 4, 5},
	}
	for _, idxs := range subsets {
		chosen := make([][]byte, len(idxs))
		for i, idx := range idxs {
			chosen[i] = shares[idx]
		}
		got, err := Reconstruct(chosen)
		require.NoError(t, err)
		assert.Equal(t, secret, got)
	}
}

func TestSplitEmptySecret(t *testing.T) {
	shares, err := Split(nil, 3, 2)
	require.NoError(t, err)
	for _, s := range shares {
		assert.Len(t, s, 1)
	}
}

func TestSplitInvalidThreshold(t *testing.T) {
	_, err := Split([]byte("x"), 3, 1)
	assert.Error(t, err)

	_, err = Split([]byte("x"), 3, 4)
	assert.Error(t, err)

	_, err = Split([]byte("x"), 300, 2)
	assert.Error(t, err)
}

func TestReconstructRejectsInvalidInput(t *testing.T) {
	_, err := Reconstruct(nil)
	assert.Error(t, err)

	_, err = Reconstruct([][]byte{{1}})
	assert.Error(t, err)

	_, err = Reconstruct([][]byte{{1, 0xAB}, {1, 0xCD}})
	assert.Error(t, err, "duplicate index should fail")

	_, err = Reconstruct([][]byte{{0, 0xAB}, {2, 0xCD}})
	assert.Error(t, err, "zero index should fail")

	_, err = Reconstruct([][]byte{{1, 0xAB}, {2, 0xCD, 0xEF}})
	assert.Error(t, err, "inconsistent lengths should fail")
}
