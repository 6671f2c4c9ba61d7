// Package cryptox holds the low-level primitives used to protect tokens at
// rest: AES-256-GCM construction, the IV-prefixed blob layout, and Argon2id
// key derivation for wrapping keys.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// SaltSize is the Argon2id salt length used for key wrapping.
	SaltSize = 16
)

// Argon2id parameters for DeriveKey.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// NewGCM builds an AES-256-GCM AEAD from a 32-byte key.
// The caller may wipe key after this returns; the AEAD keeps its own
// expanded schedule.
func NewGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aes-256 key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// DeriveKey stretches secret with salt into a KeySize wrapping key.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, argonTime, argonMemory, argonThreads, KeySize)
}

// Seal encrypts plaintext under aead with a fresh random nonce.
// The returned blob owns its IV; it is never reused.
func Seal(aead cipher.AEAD, plaintext, additionalData []byte) EncryptedBlob {
	iv := common.GenerateRandByteArray(aead.NonceSize())
	return EncryptedBlob{
		IV:         iv,
		Ciphertext: aead.Seal(nil, iv, plaintext, additionalData),
	}
}

// Open authenticates and decrypts blob. Any failure, including a nonce of
// the wrong size, is reported as common.ErrDecryptionFailed.
func Open(aead cipher.AEAD, blob EncryptedBlob, additionalData []byte) ([]byte, error) {
	if len(blob.IV) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: iv length %d", common.ErrDecryptionFailed, len(blob.IV))
	}
	plaintext, err := aead.Open(nil, blob.IV, blob.Ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
