package keystore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProvider_SameHandle(t *testing.T) {
	p := NewMemoryProvider("")
	ctx := context.Background()

	k1, err := p.GetOrCreateKey(ctx)
	require.NoError(t, err)
	k2, err := p.GetOrCreateKey(ctx)
	require.NoError(t, err)

	assert.Same(t, k1, k2)
	assert.Equal(t, DefaultAlias, k1.Alias())
}

func TestKey_SealOpen_BoundToAlias(t *testing.T) {
	ctx := context.Background()
	a, err := NewMemoryProvider("a").GetOrCreateKey(ctx)
	require.NoError(t, err)

	blob := a.Seal([]byte("hello"))
	got, err := a.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	b, err := NewMemoryProvider("b").GetOrCreateKey(ctx)
	require.NoError(t, err)
	_, err = b.Open(blob)
	require.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestFileProvider_CreatesOnceAndReloads(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	secret := []byte("device-1")

	p1 := NewFileProvider(dir, "", secret, logging.Discard())
	k1, err := p1.GetOrCreateKey(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, DefaultAlias+".key")
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	blob := k1.Seal([]byte("tokens"))

	// A fresh provider (new process) must unwrap the same key.
	p2 := NewFileProvider(dir, "", secret, logging.Discard())
	k2, err := p2.GetOrCreateKey(ctx)
	require.NoError(t, err)

	got, err := k2.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, "tokens", string(got))
}

func TestFileProvider_KeyFileNeverContainsRawKeyUnwrapped(t *testing.T) {
	dir := t.TempDir()
	p := NewFileProvider(dir, "alias", []byte("s"), logging.Discard())
	_, err := p.GetOrCreateKey(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "alias.key"))
	require.NoError(t, err)
	// version + salt + ivLen + iv(12) + key(32) + tag(16)
	assert.Equal(t, 1+16+1+12+32+16, len(data))
	assert.Equal(t, byte(keyFileVersion), data[0])
}

func TestFileProvider_WrongSecretIsKeyUnavailable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := NewFileProvider(dir, "", []byte("right"), logging.Discard()).GetOrCreateKey(ctx)
	require.NoError(t, err)

	_, err = NewFileProvider(dir, "", []byte("wrong"), logging.Discard()).GetOrCreateKey(ctx)
	require.ErrorIs(t, err, common.ErrKeyUnavailable)
}

func TestFileProvider_CorruptedEntryIsKeyUnavailableAndKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultAlias+".key")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))

	_, err := NewFileProvider(dir, "", []byte("s"), logging.Discard()).GetOrCreateKey(context.Background())
	require.ErrorIs(t, err, common.ErrKeyUnavailable)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data, "corrupted entry must not be overwritten")
}

func TestFileProvider_UnwritableDirIsKeyUnavailable(t *testing.T) {
	f := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(f, nil, 0o600))

	_, err := NewFileProvider(filepath.Join(f, "keys"), "", []byte("s"), logging.Discard()).
		GetOrCreateKey(context.Background())
	require.ErrorIs(t, err, common.ErrKeyUnavailable)
}

func TestFileProvider_ConcurrentFirstUse(t *testing.T) {
	p := NewFileProvider(t.TempDir(), "", []byte("s"), logging.Discard())

	const n = 8
	keys := make([]*Key, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			k, err := p.GetOrCreateKey(context.Background())
			assert.NoError(t, err)
			keys[i] = k
		}(i)
	}
	wg.Wait()

	for _, k := range keys[1:] {
		assert.Same(t, keys[0], k)
	}
}
