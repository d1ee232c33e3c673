package tokens

import (
	"context"
	"sync"

	"github.com/pribylovaa/go-expense-tracker/internal/models"
)

// MemoryStore — хранилище в памяти процесса. Живёт до выхода процесса;
// используется в тестах и для одноразовых запусков.
type MemoryStore struct {
	mu   sync.RWMutex
	pair models.TokenPair
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Set(_ context.Context, access, refresh string) error {
	if err := checkPair(access, refresh); err != nil {
		return err
	}

	m.mu.Lock()
	m.pair = models.TokenPair{Access: access, Refresh: refresh}
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) SetAccess(_ context.Context, access string) error {
	if access == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pair.Refresh == "" {
		return ErrNoRefresh
	}
	m.pair.Access = access

	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.pair = models.TokenPair{}
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Access(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pair.Access, nil
}

func (m *MemoryStore) Refresh(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pair.Refresh, nil
}

var _ Store = (*MemoryStore)(nil)
