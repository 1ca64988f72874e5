package store

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/host"
)

// Memory is an in-process PlatformStore. Values are cloned on the way in and
// out.
type Memory struct {
	mu   sync.RWMutex
	data map[string]content.State
}

var _ host.PlatformStore = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]content.State)}
}

func (m *Memory) ReadPlatformData(_ context.Context, platform string) (content.State, error) {
	if strings.TrimSpace(platform) == "" {
		return nil, ErrPlatformRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[platform].Clone(), nil
}

func (m *Memory) WritePlatformData(_ context.Context, platform string, state content.State) error {
	if strings.TrimSpace(platform) == "" {
		return ErrPlatformRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[platform] = state.Clone()
	return nil
}
