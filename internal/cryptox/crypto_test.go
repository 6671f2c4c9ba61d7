package cryptox

import (
	"bytes"
	"testing"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGCM(t *testing.T) []byte {
	t.Helper()
	return common.GenerateRandByteArray(KeySize)
}

func TestNewGCM_RejectsShortKeys(t *testing.T) {
	for _, n := range []int{0, 16, 24, 31, 33} {
		_, err := NewGCM(make([]byte, n))
		require.Error(t, err, "key size %d", n)
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	aead, err := NewGCM(newTestGCM(t))
	require.NoError(t, err)

	blob := Seal(aead, []byte("secret payload"), nil)
	assert.Len(t, blob.IV, aead.NonceSize())
	assert.False(t, bytes.Contains(blob.Ciphertext, []byte("secret payload")))

	got, err := Open(aead, blob, nil)
	require.NoError(t, err)
	assert.Equal(t, "secret payload", string(got))
}

func TestSeal_FreshIVEveryCall(t *testing.T) {
	aead, err := NewGCM(newTestGCM(t))
	require.NoError(t, err)

	a := Seal(aead, []byte("same"), nil)
	b := Seal(aead, []byte("same"), nil)
	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestOpen_TamperAndWrongKey(t *testing.T) {
	aead, err := NewGCM(newTestGCM(t))
	require.NoError(t, err)
	other, err := NewGCM(newTestGCM(t))
	require.NoError(t, err)

	blob := Seal(aead, []byte("payload"), []byte("ad"))

	tampered := EncryptedBlob{IV: blob.IV, Ciphertext: append([]byte(nil), blob.Ciphertext...)}
	tampered.Ciphertext[0] ^= 0xFF
	_, err = Open(aead, tampered, []byte("ad"))
	require.ErrorIs(t, err, common.ErrDecryptionFailed)

	_, err = Open(other, blob, []byte("ad"))
	require.ErrorIs(t, err, common.ErrDecryptionFailed)

	_, err = Open(aead, blob, []byte("other-ad"))
	require.ErrorIs(t, err, common.ErrDecryptionFailed)

	_, err = Open(aead, EncryptedBlob{IV: []byte{1}, Ciphertext: blob.Ciphertext}, []byte("ad"))
	require.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestDeriveKey_DeterministicPerSalt(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1 := DeriveKey([]byte("device"), salt)
	k2 := DeriveKey([]byte("device"), salt)
	k3 := DeriveKey([]byte("device"), []byte("fedcba9876543210"))

	assert.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestEncryptedBlob_Layout(t *testing.T) {
	blob := EncryptedBlob{IV: []byte{1, 2, 3}, Ciphertext: []byte{9, 8}}
	raw, err := blob.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 1, 2, 3, 9, 8}, raw)

	back, err := ParseEncryptedBlob(raw)
	require.NoError(t, err)
	assert.Equal(t, blob, back)
}

func TestParseEncryptedBlob_Malformed(t *testing.T) {
	for name, raw := range map[string][]byte{
		"empty":         nil,
		"zero iv":       {0, 1, 2},
		"truncated iv":  {12, 1, 2, 3},
		"no ciphertext": {2, 1, 2},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEncryptedBlob(raw)
			require.ErrorIs(t, err, common.ErrMalformedBlob)
		})
	}

	_, err := EncryptedBlob{}.MarshalBinary()
	require.ErrorIs(t, err, common.ErrMalformedBlob)
}
