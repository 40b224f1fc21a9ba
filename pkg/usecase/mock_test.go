package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/relwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/m-mizutani/relwatch/pkg/infra/store"
)

// mockFetcher is a mock implementation of ReleaseFetcher
type mockFetcher struct {
	fetchFunc func(ctx context.Context, repo model.Repo) (*model.ReleaseDetail, error)

	mu    sync.Mutex
	calls map[types.RepoName]int

	running atomic.Int32
	peak    atomic.Int32
}

func (m *mockFetcher) FetchLatest(ctx context.Context, repo model.Repo) (*model.ReleaseDetail, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[types.RepoName]int)
	}
	m.calls[repo.Name]++
	m.mu.Unlock()

	n := m.running.Add(1)
	defer m.running.Add(-1)
	for {
		old := m.peak.Load()
		if n <= old || m.peak.CompareAndSwap(old, n) {
			break
		}
	}

	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, repo)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockFetcher) Calls(name types.RepoName) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockFetcher) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// staticFetcher always returns detail
func staticFetcher(detail model.ReleaseDetail) *mockFetcher {
	return &mockFetcher{
		fetchFunc: func(ctx context.Context, repo model.Repo) (*model.ReleaseDetail, error) {
			d := detail
			return &d, nil
		},
	}
}

// flakyStore wraps a memory store and fails selected operations
type flakyStore struct {
	*store.Memory
	existsErr atomic.Int32 // number of Exists calls that fail
	puts      atomic.Int32
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Memory: store.NewMemory()}
}

func (s *flakyStore) Exists(ctx context.Context, name types.RepoName) (bool, error) {
	if s.existsErr.Load() > 0 {
		s.existsErr.Add(-1)
		return false, errors.New("store unavailable")
	}
	return s.Memory.Exists(ctx, name)
}

func (s *flakyStore) Put(ctx context.Context, name types.RepoName, release *model.Release) error {
	s.puts.Add(1)
	return s.Memory.Put(ctx, name, release)
}

var _ interfaces.ReleaseStore = (*flakyStore)(nil)

// mockProvider is a mock implementation of AlertProvider
type mockProvider struct {
	kind     types.ProviderKind
	disabled bool
	sendFunc func(ctx context.Context, release *model.Release) error

	mu   sync.Mutex
	sent []*model.Release
}

func (m *mockProvider) Kind() types.ProviderKind { return m.kind }

func (m *mockProvider) Enabled() bool { return !m.disabled }

func (m *mockProvider) Send(ctx context.Context, release *model.Release) error {
	m.mu.Lock()
	m.sent = append(m.sent, release)
	m.mu.Unlock()

	if m.sendFunc != nil {
		return m.sendFunc(ctx, release)
	}
	return nil
}

func (m *mockProvider) Sent() []*model.Release {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Release(nil), m.sent...)
}
