package cryptox

import (
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

// EncryptedBlob is the on-disk form of an AEAD ciphertext:
//
//	ivLength (1 byte) | iv (ivLength bytes) | ciphertext || tag
type EncryptedBlob struct {
	IV         []byte
	Ciphertext []byte
}

// MarshalBinary renders the blob in its IV-prefixed layout.
func (b EncryptedBlob) MarshalBinary() ([]byte, error) {
	if len(b.IV) == 0 || len(b.IV) > 255 {
		return nil, fmt.Errorf("%w: iv length %d", common.ErrMalformedBlob, len(b.IV))
	}
	out := make([]byte, 0, 1+len(b.IV)+len(b.Ciphertext))
	out = append(out, byte(len(b.IV)))
	out = append(out, b.IV...)
	out = append(out, b.Ciphertext...)
	return out, nil
}

// ParseEncryptedBlob is the inverse of MarshalBinary. The returned slices
// are copies, so data may be reused by the caller.
func ParseEncryptedBlob(data []byte) (EncryptedBlob, error) {
	if len(data) < 1 {
		return EncryptedBlob{}, fmt.Errorf("%w: empty", common.ErrMalformedBlob)
	}
	ivLen := int(data[0])
	if ivLen == 0 || len(data) < 1+ivLen {
		return EncryptedBlob{}, fmt.Errorf("%w: truncated iv", common.ErrMalformedBlob)
	}
	rest := data[1+ivLen:]
	if len(rest) == 0 {
		return EncryptedBlob{}, fmt.Errorf("%w: no ciphertext", common.ErrMalformedBlob)
	}
	return EncryptedBlob{
		IV:         append([]byte(nil), data[1:1+ivLen]...),
		Ciphertext: append([]byte(nil), rest...),
	}, nil
}
