package tokens

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/keystore"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unavailableKeys simulates broken secure storage.
type unavailableKeys struct{}

func (unavailableKeys) GetOrCreateKey(ctx context.Context) (*keystore.Key, error) {
	return nil, fmt.Errorf("%w: simulated", common.ErrKeyUnavailable)
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	return NewCodec(NewCipher(keystore.NewMemoryProvider("")), logging.Discard())
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	ctx := context.Background()

	pairs := []Pair{
		{},
		{AccessToken: "a", RefreshToken: ""},
		{AccessToken: "", RefreshToken: "r"},
		{AccessToken: "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ1MSJ9.sig", RefreshToken: "refresh-Ω-✓"},
		{AccessToken: string(bytes.Repeat([]byte("x"), 8192)), RefreshToken: "long"},
	}
	for i, p := range pairs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			data, err := codec.Serialize(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, p, codec.Deserialize(ctx, data))
		})
	}
}

func TestCodec_StoredBytesHidePlaintext(t *testing.T) {
	codec := newTestCodec(t)
	p := Pair{AccessToken: "access-token-plaintext", RefreshToken: "refresh-token-plaintext"}

	data, err := codec.Serialize(context.Background(), p)
	require.NoError(t, err)

	assert.False(t, bytes.Contains(data, []byte(p.AccessToken)))
	assert.False(t, bytes.Contains(data, []byte(p.RefreshToken)))
	assert.False(t, bytes.Contains(data, []byte("access_token")))
}

func TestCodec_FreshIVPerWrite(t *testing.T) {
	codec := newTestCodec(t)
	p := Pair{AccessToken: "a", RefreshToken: "r"}

	d1, err := codec.Serialize(context.Background(), p)
	require.NoError(t, err)
	d2, err := codec.Serialize(context.Background(), p)
	require.NoError(t, err)

	ivLen := int(d1[0])
	assert.NotEqual(t, d1[1:1+ivLen], d2[1:1+ivLen])
}

func TestCodec_CorruptionYieldsEmptyPair(t *testing.T) {
	codec := newTestCodec(t)
	ctx := context.Background()

	good, err := codec.Serialize(ctx, Pair{AccessToken: "a", RefreshToken: "r"})
	require.NoError(t, err)

	flip := func(i int) []byte {
		b := append([]byte(nil), good...)
		b[i] ^= 0x01
		return b
	}

	cases := map[string][]byte{
		"nil":            nil,
		"single byte":    {12},
		"truncated iv":   good[:5],
		"truncated tag":  good[:len(good)-1],
		"tampered body":  flip(len(good) - 5),
		"tampered iv":    flip(3),
		"tampered ivlen": flip(0),
		"garbage":        []byte("not an encrypted blob at all"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			require.NotPanics(t, func() {
				assert.Equal(t, Pair{}, codec.Deserialize(ctx, data))
			})
		})
	}
}

func TestCodec_OtherKeyYieldsEmptyPair(t *testing.T) {
	ctx := context.Background()
	data, err := newTestCodec(t).Serialize(ctx, Pair{AccessToken: "a", RefreshToken: "r"})
	require.NoError(t, err)

	assert.Equal(t, Pair{}, newTestCodec(t).Deserialize(ctx, data))
}

func TestCodec_KeyUnavailable(t *testing.T) {
	codec := NewCodec(NewCipher(unavailableKeys{}), logging.Discard())
	ctx := context.Background()

	_, err := codec.Serialize(ctx, Pair{AccessToken: "a"})
	require.ErrorIs(t, err, common.ErrKeyUnavailable)

	assert.Equal(t, Pair{}, codec.Deserialize(ctx, []byte{12, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}))
}

func TestCipher_DecryptErrors(t *testing.T) {
	ctx := context.Background()
	c := NewCipher(keystore.NewMemoryProvider(""))

	blob, err := c.Encrypt(ctx, []byte("payload"))
	require.NoError(t, err)

	got, err := c.Decrypt(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	blob.Ciphertext[len(blob.Ciphertext)-1] ^= 0xFF
	_, err = c.Decrypt(ctx, blob)
	require.ErrorIs(t, err, common.ErrDecryptionFailed)

	_, err = NewCipher(unavailableKeys{}).Decrypt(ctx, blob)
	require.ErrorIs(t, err, common.ErrKeyUnavailable)
}
