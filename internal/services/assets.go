package services

import (
	"context"
	"sync"

	"fintrack/internal/core"
)

// AssetStore holds uploaded profile avatars. Put returns the URL path
// the stored asset is served from.
type AssetStore interface {
	Put(ctx context.Context, accountID string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, accountID string) (data []byte, contentType string, err error)
	Delete(ctx context.Context, accountID string) error
}

// MaxAvatarBytes bounds a single avatar upload.
const MaxAvatarBytes = 2 << 20

type avatarEntry struct {
	data        []byte
	contentType string
}

// MemoryAssetStore keeps avatars in process memory. Assets do not
// survive a restart; accounts fall back to having no avatar.
type MemoryAssetStore struct {
	mu      sync.RWMutex
	avatars map[string]avatarEntry
}

func NewMemoryAssetStore() *MemoryAssetStore {
	return &MemoryAssetStore{avatars: make(map[string]avatarEntry)}
}

func (s *MemoryAssetStore) Put(_ context.Context, accountID string, data []byte, contentType string) (string, error) {
	ve := &core.ValidationError{}
	if len(data) == 0 {
		ve.Add("avatar", "must not be empty")
	} else if len(data) > MaxAvatarBytes {
		ve.Addf("avatar", "exceeds %d bytes", MaxAvatarBytes)
	}
	if err := ve.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.avatars[accountID] = avatarEntry{data: buf, contentType: contentType}

	return "/api/v1/profile/avatar", nil
}

func (s *MemoryAssetStore) Get(_ context.Context, accountID string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.avatars[accountID]
	if !ok {
		return nil, "", core.ErrNotFound
	}
	return entry.data, entry.contentType, nil
}

func (s *MemoryAssetStore) Delete(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.avatars, accountID)
	return nil
}
