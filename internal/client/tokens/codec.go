package tokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
)

// Codec turns a Pair into encrypted bytes and back.
type Codec struct {
	cipher *Cipher
	log    logging.Logger
}

func NewCodec(cipher *Cipher, log logging.Logger) *Codec {
	return &Codec{cipher: cipher, log: log.With("component", "token-codec")}
}

// Serialize encodes pair as a two-field protobuf Struct (deterministic
// marshal) and encrypts it. The result is an IV-prefixed EncryptedBlob.
func (c *Codec) Serialize(ctx context.Context, pair Pair) ([]byte, error) {
	st := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldAccessToken:  structpb.NewStringValue(pair.AccessToken),
		fieldRefreshToken: structpb.NewStringValue(pair.RefreshToken),
	}}
	plaintext, err := proto.MarshalOptions{Deterministic: true}.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode tokens: %w", err)
	}
	defer common.WipeByteArray(plaintext)

	blob, err := c.cipher.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, err
	}
	return blob.MarshalBinary()
}

// Deserialize decrypts and decodes data. Absent, truncated, tampered or
// otherwise unreadable input yields the empty Pair, since every one of those
// cases leaves the user needing to log in again.
func (c *Codec) Deserialize(ctx context.Context, data []byte) Pair {
	if len(data) == 0 {
		return Pair{}
	}
	pair, err := c.decode(ctx, data)
	if err != nil {
		if errors.Is(err, common.ErrKeyUnavailable) {
			c.log.Error(ctx, "stored tokens unreadable: key unavailable", "error", err)
		} else {
			c.log.Warn(ctx, "stored tokens corrupted, treating as no session", "error", err)
		}
		return Pair{}
	}
	return pair
}

func (c *Codec) decode(ctx context.Context, data []byte) (Pair, error) {
	blob, err := cryptox.ParseEncryptedBlob(data)
	if err != nil {
		return Pair{}, err
	}
	plaintext, err := c.cipher.Decrypt(ctx, blob)
	if err != nil {
		return Pair{}, err
	}
	defer common.WipeByteArray(plaintext)

	var st structpb.Struct
	if err := proto.Unmarshal(plaintext, &st); err != nil {
		return Pair{}, fmt.Errorf("decode tokens: %w", err)
	}
	fields := st.GetFields()
	return Pair{
		AccessToken:  fields[fieldAccessToken].GetStringValue(),
		RefreshToken: fields[fieldRefreshToken].GetStringValue(),
	}, nil
}
