package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dkeye/Standup/internal/core"
	"github.com/dkeye/Standup/internal/domain"
)

// ArtifactPrefix is the URL path artifacts are served under.
const ArtifactPrefix = "/api/artifacts/"

// ArtifactStore keeps finalized clips in memory for every session, bounded
// by count. Clips are only dropped when their owner revokes them; once the
// store is full Put fails instead of evicting a clip a recording still
// points to.
type ArtifactStore struct {
	mu       sync.Mutex
	capacity int
	cache    *lru.Cache[string, core.Clip]
}

func NewArtifactStore(capacity int) (*ArtifactStore, error) {
	if capacity <= 0 {
		capacity = 256
	}
	cache, err := lru.New[string, core.Clip](capacity)
	if err != nil {
		return nil, err
	}
	return &ArtifactStore{capacity: capacity, cache: cache}, nil
}

func (s *ArtifactStore) Put(clip core.Clip) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Len() >= s.capacity {
		return "", fmt.Errorf("%d clips held: %w", s.capacity, domain.ErrStorageFull)
	}
	id := uuid.NewString()
	s.cache.Add(id, clip)
	return ArtifactPrefix + id, nil
}

func (s *ArtifactStore) Revoke(url string) {
	s.cache.Remove(strings.TrimPrefix(url, ArtifactPrefix))
}

// Get returns the clip stored under id, the last path element of its URL.
func (s *ArtifactStore) Get(id string) (core.Clip, bool) {
	return s.cache.Get(id)
}

func (s *ArtifactStore) Len() int { return s.cache.Len() }
