package keystore

import (
	"context"
	"crypto/cipher"

	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
)

// DefaultAlias is the stable identifier the token key is registered under.
const DefaultAlias = "tokenkeeper.tokens.v1"

// Provider obtains (creating on first use) the token encryption key.
type Provider interface {
	GetOrCreateKey(ctx context.Context) (*Key, error)
}

// Key is a handle to an AES-256-GCM key. Only encrypt and decrypt
// operations are exposed.
type Key struct {
	alias string
	aead  cipher.AEAD
}

func newKey(alias string, raw []byte) (*Key, error) {
	aead, err := cryptox.NewGCM(raw)
	if err != nil {
		return nil, err
	}
	return &Key{alias: alias, aead: aead}, nil
}

// Alias returns the identifier the key is registered under.
func (k *Key) Alias() string { return k.alias }

// Seal encrypts plaintext with a fresh IV. The alias is bound in as
// additional data, so a blob sealed under one alias will not open under another.
func (k *Key) Seal(plaintext []byte) cryptox.EncryptedBlob {
	return cryptox.Seal(k.aead, plaintext, []byte(k.alias))
}

// Open verifies and decrypts blob.
func (k *Key) Open(blob cryptox.EncryptedBlob) ([]byte, error) {
	return cryptox.Open(k.aead, blob, []byte(k.alias))
}
