package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"
)

const expiryHeader = 8

// MemoryStore keeps the cache in process. Each entry carries its own expiry stamp
// because bigcache only has a global life window.
type MemoryStore struct {
	cache *bigcache.BigCache
	now   func() time.Time
	log   *zap.Logger
}

func NewMemoryStore(ctx context.Context, log *zap.Logger) (*MemoryStore, error) {
	cfg := bigcache.DefaultConfig(10 * time.Minute)
	cfg.Shards = 64
	cfg.CleanWindow = time.Minute
	cfg.MaxEntriesInWindow = 4096
	cfg.MaxEntrySize = 1024
	cfg.Verbose = false

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bigcache: %w", err)
	}
	return &MemoryStore{cache: c, now: time.Now, log: log}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	entry, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("bigcache get %s: %w", key, err)
	}
	if len(entry) < expiryHeader {
		_ = s.cache.Delete(key)
		return nil, ErrMiss
	}

	expires := int64(binary.BigEndian.Uint64(entry[:expiryHeader]))
	if s.now().UnixNano() >= expires {
		_ = s.cache.Delete(key)
		return nil, ErrMiss
	}
	return entry[expiryHeader:], nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := make([]byte, expiryHeader+len(value))
	binary.BigEndian.PutUint64(entry[:expiryHeader], uint64(s.now().Add(ttl).UnixNano()))
	copy(entry[expiryHeader:], value)

	if err := s.cache.Set(key, entry); err != nil {
		return fmt.Errorf("bigcache set %s: %w", key, err)
	}
	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	var keys []string
	it := s.cache.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		if strings.HasPrefix(info.Key(), prefix) {
			keys = append(keys, info.Key())
		}
	}

	deleted := 0
	for _, k := range keys {
		if err := s.cache.Delete(k); err == nil {
			deleted++
		}
	}

	s.log.Debug("cache prefix cleared", zap.String("prefix", prefix), zap.Int("keys", deleted))
	return deleted, nil
}

func (s *MemoryStore) Close() error {
	return s.cache.Close()
}
