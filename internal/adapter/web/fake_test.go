package web

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/settingsadmin/internal/adapter/settingsapi"
	"github.com/Strob0t/settingsadmin/internal/domain/settings"
	"github.com/Strob0t/settingsadmin/internal/port/cache/cachetest"
	"github.com/Strob0t/settingsadmin/internal/query"
)

// fakeAPI stands in for the settings REST API.
type fakeAPI struct {
	mu        sync.Mutex
	records   []settings.Setting
	nextID    int
	writeErr  error
	listErr   error
	listCalls int
}

func (f *fakeAPI) ListSettings(_ context.Context, page, pageSize int) (*settings.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	items := make([]settings.Setting, len(f.records))
	copy(items, f.records)
	return &settings.Page{Items: items, Total: len(items), Page: page, PageSize: pageSize}, nil
}

func (f *fakeAPI) GetSetting(_ context.Context, id string) (*settings.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.records {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, &settingsapi.APIError{StatusCode: 404, Message: "Settings not found"}
}

func (f *fakeAPI) CreateSetting(_ context.Context, data json.RawMessage) (*settings.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.nextID++
	s := settings.Setting{ID: "new-" + strconv.Itoa(f.nextID), Data: data}
	f.records = append(f.records, s)
	return &s, nil
}

func (f *fakeAPI) UpdateSetting(_ context.Context, id string, data json.RawMessage) (*settings.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Data = data
			s := f.records[i]
			return &s, nil
		}
	}
	return nil, &settingsapi.APIError{StatusCode: 404, Message: "Settings not found"}
}

func (f *fakeAPI) DeleteSetting(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) data(t *testing.T, id string) any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.records {
		if s.ID == id {
			var v any
			if err := json.Unmarshal(s.Data, &v); err != nil {
				t.Fatalf("stored data is not JSON: %v", err)
			}
			return v
		}
	}
	return nil
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

var errBackend = errors.New("backend unavailable")

func seed(records ...settings.Setting) (*fakeAPI, *query.Client) {
	api := &fakeAPI{records: records}
	return api, query.NewClient(api, cachetest.NewMemory(), time.Minute)
}

func rec(id, data string) settings.Setting {
	return settings.Setting{ID: id, Data: json.RawMessage(data)}
}
