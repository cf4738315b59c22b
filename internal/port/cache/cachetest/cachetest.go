// Package cachetest provides an in-memory Cache and a compliance suite
// shared by every cache adapter's tests.
package cachetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/settingsadmin/internal/port/cache"
)

// Memory is a mutex-guarded map cache. TTLs are ignored.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte

	// Err, when set, is returned by every operation.
	Err error
}

var _ cache.Cache = (*Memory)(nil)

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.data, key)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Keys returns a snapshot of the stored keys.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// RunCompliance runs the standard behavior suite against c.
// settle is called after each write for backends with asynchronous
// admission (ristretto); pass nil when writes are immediately visible.
func RunCompliance(t *testing.T, c cache.Cache, settle func()) {
	t.Helper()
	ctx := context.Background()
	if settle == nil {
		settle = func() {}
	}

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "settings/item/compliance", []byte(`{"theme":"dark"}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		settle()
		val, found, err := c.Get(ctx, "settings/item/compliance")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"theme":"dark"}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "settings/item/nonexistent")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "settings/list/1/100", []byte("page"), time.Minute)
		settle()
		if err := c.Delete(ctx, "settings/list/1/100"); err != nil {
			t.Fatal(err)
		}
		settle()
		_, found, err := c.Get(ctx, "settings/list/1/100")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "settings/item/never-existed"); err != nil {
			t.Fatalf("Delete of nonexistent key should not error: %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "settings/item/ow", []byte("v1"), time.Minute)
		settle()
		_ = c.Set(ctx, "settings/item/ow", []byte("v2"), time.Minute)
		settle()
		val, found, err := c.Get(ctx, "settings/item/ow")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after overwrite")
		}
		if string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s", val)
		}
	})
}
