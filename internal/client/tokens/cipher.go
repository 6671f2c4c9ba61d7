package tokens

import (
	"context"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/keystore"
	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
)

// Cipher performs authenticated encryption of opaque payloads with the key
// handed out by a keystore.Provider.
type Cipher struct {
	keys keystore.Provider
}

func NewCipher(keys keystore.Provider) *Cipher {
	return &Cipher{keys: keys}
}

// Encrypt seals plaintext under a fresh IV. It fails only with
// common.ErrKeyUnavailable.
func (c *Cipher) Encrypt(ctx context.Context, plaintext []byte) (cryptox.EncryptedBlob, error) {
	key, err := c.keys.GetOrCreateKey(ctx)
	if err != nil {
		return cryptox.EncryptedBlob{}, err
	}
	return key.Seal(plaintext), nil
}

// Decrypt verifies and opens blob. It fails with common.ErrKeyUnavailable
// when the key cannot be obtained and common.ErrDecryptionFailed when the
// tag check fails (tampering, truncation, or a rotated key).
func (c *Cipher) Decrypt(ctx context.Context, blob cryptox.EncryptedBlob) ([]byte, error) {
	key, err := c.keys.GetOrCreateKey(ctx)
	if err != nil {
		return nil, err
	}
	return key.Open(blob)
}
