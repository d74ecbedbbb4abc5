package studio

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handle addresses a stored image. It stays valid until released.
type Handle struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Resource is a live handle together with its bytes.
type Resource struct {
	Handle
	Data []byte
}

// ResourceStore keeps image bytes addressable by handle until released.
type ResourceStore struct {
	mu    sync.RWMutex
	items map[string]Resource
}

func NewResourceStore() *ResourceStore {
	return &ResourceStore{items: make(map[string]Resource)}
}

// Create stores data under a fresh handle. An empty content type is sniffed.
func (s *ResourceStore) Create(data []byte, contentType string) Handle {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	h := Handle{
		ID:          uuid.NewString(),
		ContentType: contentType,
		Size:        len(data),
		CreatedAt:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.items[h.ID] = Resource{Handle: h, Data: data}
	s.mu.Unlock()
	return h
}

func (s *ResourceStore) Open(id string) (Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	return r, ok
}

// Release drops the handle. It reports whether the handle was live.
func (s *ResourceStore) Release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

func (s *ResourceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
