package tokens

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

// Backend persists the encoded token blob. Load returns (nil, nil) when
// nothing has been stored yet. Save must not damage the previously stored
// value if it fails part-way.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Store owns the durable token pair.
//
// Reads are served from an atomic snapshot and never wait for writers.
// Updates are serialized, so concurrent read-modify-write cycles cannot
// lose each other's effect.
type Store struct {
	backend Backend
	codec   *Codec
	log     logging.Logger

	writeMu sync.Mutex
	current atomic.Pointer[Pair]
}

func NewStore(backend Backend, codec *Codec, log logging.Logger) *Store {
	return &Store{
		backend: backend,
		codec:   codec,
		log:     log.With("component", "token-store"),
	}
}

// ReadCurrent returns the current pair. It always succeeds: absence,
// corruption and I/O errors all read as the empty pair. Only a completed
// backend read is cached, so an I/O error is retried on the next call.
func (s *Store) ReadCurrent(ctx context.Context) Pair {
	if p := s.current.Load(); p != nil {
		return *p
	}
	loaded, err := s.load(ctx)
	if err != nil {
		s.log.Warn(ctx, "token storage read failed, treating as no session", "error", err)
		return Pair{}
	}
	if !s.current.CompareAndSwap(nil, &loaded) {
		// A writer (or another reader) got there first; theirs is newer or equal.
		return *s.current.Load()
	}
	return loaded
}

// UpdateAtomically reads the current pair, applies mutator, persists the
// result and publishes it to readers. Calls are serialized. On error the
// persisted and in-memory values are unchanged. If the stored pair cannot be
// read, mutator is not called.
func (s *Store) UpdateAtomically(ctx context.Context, mutator func(Pair) Pair) (Pair, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var prev Pair
	if p := s.current.Load(); p != nil {
		prev = *p
	} else {
		loaded, err := s.load(ctx)
		if err != nil {
			return Pair{}, fmt.Errorf("read tokens: %w", err)
		}
		prev = loaded
	}

	next := mutator(prev)

	data, err := s.codec.Serialize(ctx, next)
	if err != nil {
		return prev, fmt.Errorf("serialize tokens: %w", err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return prev, fmt.Errorf("persist tokens: %w", err)
	}

	s.current.Store(&next)
	return next, nil
}

// load returns an error only when the backend read fails. Absent or
// undecodable data is the empty pair.
func (s *Store) load(ctx context.Context) (Pair, error) {
	data, err := s.backend.Load(ctx)
	if err != nil {
		return Pair{}, err
	}
	return s.codec.Deserialize(ctx, data), nil
}
