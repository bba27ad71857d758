package cache

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealed is returned when a sealed entry cannot be opened, usually
// because the passphrase changed.
var ErrSealed = errors.New("cannot open sealed cache entry")

// saltKey is the reserved key under which the key-derivation salt lives.
const saltKey = "__sealed_salt__"

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	saltSize     = 16
)

// SealedStore encrypts metadata at rest in any inner Store. Keys stay in
// the clear so lookups work; each ciphertext is bound to its key.
type SealedStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewSealedStore derives an XChaCha20-Poly1305 key from passphrase with
// Argon2id. The salt is created on first use and kept in inner.
func NewSealedStore(ctx context.Context, inner Store, passphrase string) (*SealedStore, error) {
	if passphrase == "" {
		return nil, errors.New("sealed cache: empty passphrase")
	}
	salt, err := loadSalt(ctx, inner)
	if err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed cache: %w", err)
	}
	return &SealedStore{inner: inner, aead: aead}, nil
}

func loadSalt(ctx context.Context, inner Store) ([]byte, error) {
	e, ok, err := inner.Get(ctx, saltKey)
	if err != nil {
		return nil, fmt.Errorf("sealed cache: reading salt: %w", err)
	}
	if ok && len(e.Sealed) == saltSize {
		return e.Sealed, nil
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("sealed cache: generating salt: %w", err)
	}
	if err := inner.Put(ctx, saltKey, Entry{Sealed: salt}, 0); err != nil {
		return nil, fmt.Errorf("sealed cache: storing salt: %w", err)
	}
	return salt, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	e, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, ok, err
	}
	ns := s.aead.NonceSize()
	if len(e.Sealed) < ns {
		return Entry{}, false, fmt.Errorf("%w: %s", ErrSealed, key)
	}
	plain, err := s.aead.Open(nil, e.Sealed[:ns], e.Sealed[ns:], []byte(key))
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: %s", ErrSealed, key)
	}
	if err := json.Unmarshal(plain, &e.Metadata); err != nil {
		return Entry{}, false, fmt.Errorf("%w: %s: %v", ErrSealed, key, err)
	}
	e.Sealed = nil
	return e, true, nil
}

func (s *SealedStore) Put(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	plain, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+16)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("sealed cache: nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plain, []byte(key))
	return s.inner.Put(ctx, key, Entry{Key: key, Sealed: sealed}, ttl)
}

// Stats delegates to the inner store when it supports maintenance.
func (s *SealedStore) Stats(ctx context.Context) (Stats, error) {
	m, ok := s.inner.(Maintainer)
	if !ok {
		return Stats{}, nil
	}
	return m.Stats(ctx)
}

// Purge delegates to the inner store. Purging everything also drops the
// salt, so the next NewSealedStore starts a fresh key.
func (s *SealedStore) Purge(ctx context.Context, all bool) (int, error) {
	m, ok := s.inner.(Maintainer)
	if !ok {
		return 0, nil
	}
	return m.Purge(ctx, all)
}
