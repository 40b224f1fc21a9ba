package store

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

// Memory is a process-local ReleaseStore. Its content is lost on exit.
type Memory struct {
	mu       sync.RWMutex
	releases map[types.RepoName]model.Release
}

func NewMemory() *Memory {
	return &Memory{
		releases: make(map[types.RepoName]model.Release),
	}
}

func (s *Memory) Exists(ctx context.Context, name types.RepoName) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.releases[name]
	return ok, nil
}

func (s *Memory) Get(ctx context.Context, name types.RepoName) (*model.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	release, ok := s.releases[name]
	if !ok {
		return nil, goerr.New("release not found", goerr.V("repo", name))
	}
	return &release, nil
}

func (s *Memory) Put(ctx context.Context, name types.RepoName, release *model.Release) error {
	if release == nil {
		return goerr.New("release is nil", goerr.V("repo", name))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases[name] = *release
	return nil
}

func (s *Memory) List(ctx context.Context) ([]*model.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	releases := make([]*model.Release, 0, len(s.releases))
	for _, r := range s.releases {
		release := r
		releases = append(releases, &release)
	}
	sort.Slice(releases, func(i, j int) bool {
		return releases[i].Name < releases[j].Name
	})
	return releases, nil
}

func (s *Memory) Close() error { return nil }
