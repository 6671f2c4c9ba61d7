package keystore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
	"github.com/dmitrijs2005/tokenkeeper/internal/filex"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

// keyFileVersion prefixes every key file:
//
//	version (1) | salt (SaltSize) | EncryptedBlob(raw key)
const keyFileVersion = 1

// FileProvider stores the token key wrapped under a key-encryption key
// derived from a device secret. The unwrapped key only ever lives inside the
// AEAD held by the returned *Key.
type FileProvider struct {
	dir    string
	alias  string
	secret []byte
	log    logging.Logger

	mu  sync.Mutex
	key *Key
}

// NewFileProvider keeps the key file for alias in dir. deviceSecret binds the
// wrapped key to this device/user and must be stable across runs.
func NewFileProvider(dir, alias string, deviceSecret []byte, log logging.Logger) *FileProvider {
	if alias == "" {
		alias = DefaultAlias
	}
	return &FileProvider{
		dir:    dir,
		alias:  alias,
		secret: append([]byte(nil), deviceSecret...),
		log:    log.With("component", "keystore", "alias", alias),
	}
}

func (p *FileProvider) path() string {
	return filepath.Join(p.dir, p.alias+".key")
}

// GetOrCreateKey loads the wrapped key, creating and persisting a new one on
// first use. An existing key file that cannot be unwrapped is reported as
// common.ErrKeyUnavailable and left in place.
func (p *FileProvider) GetOrCreateKey(ctx context.Context) (*Key, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return p.key, nil
	}

	data, err := os.ReadFile(p.path())
	switch {
	case err == nil:
		key, err := p.unwrap(data)
		if err != nil {
			p.log.Error(ctx, "key entry unreadable", "error", err)
			return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
		}
		p.key = key
		return key, nil

	case errors.Is(err, fs.ErrNotExist):
		key, err := p.create()
		if err != nil {
			p.log.Error(ctx, "key creation failed", "error", err)
			return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
		}
		p.log.Info(ctx, "created new token key")
		p.key = key
		return key, nil

	default:
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}
}

func (p *FileProvider) create() (*Key, error) {
	if _, err := filex.EnsureDir(p.dir); err != nil {
		return nil, err
	}

	raw := common.GenerateRandByteArray(cryptox.KeySize)
	defer common.WipeByteArray(raw)

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	kek := cryptox.DeriveKey(p.secret, salt)
	defer common.WipeByteArray(kek)

	wrapper, err := cryptox.NewGCM(kek)
	if err != nil {
		return nil, err
	}
	wrapped, err := cryptox.Seal(wrapper, raw, []byte(p.alias)).MarshalBinary()
	if err != nil {
		return nil, err
	}

	file := make([]byte, 0, 1+len(salt)+len(wrapped))
	file = append(file, keyFileVersion)
	file = append(file, salt...)
	file = append(file, wrapped...)

	if err := filex.WriteFileAtomic(p.path(), file, 0o600); err != nil {
		return nil, err
	}
	return newKey(p.alias, raw)
}

func (p *FileProvider) unwrap(data []byte) (*Key, error) {
	if len(data) < 1+cryptox.SaltSize || data[0] != keyFileVersion {
		return nil, errors.New("corrupted key file header")
	}
	salt := data[1 : 1+cryptox.SaltSize]

	blob, err := cryptox.ParseEncryptedBlob(data[1+cryptox.SaltSize:])
	if err != nil {
		return nil, err
	}

	kek := cryptox.DeriveKey(p.secret, salt)
	defer common.WipeByteArray(kek)

	wrapper, err := cryptox.NewGCM(kek)
	if err != nil {
		return nil, err
	}
	raw, err := cryptox.Open(wrapper, blob, []byte(p.alias))
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(raw)

	return newKey(p.alias, raw)
}
