package query_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/settingsadmin/internal/domain"
	"github.com/Strob0t/settingsadmin/internal/domain/settings"
	"github.com/Strob0t/settingsadmin/internal/port/cache/cachetest"
	"github.com/Strob0t/settingsadmin/internal/port/messagequeue"
	"github.com/Strob0t/settingsadmin/internal/query"
)

// fakeAPI is an in-memory Fetcher that counts calls.
type fakeAPI struct {
	mu      sync.Mutex
	records []settings.Setting
	nextID  int
	err     error

	listCalls atomic.Int32
	getCalls  atomic.Int32

	// block, when set, holds list calls until closed.
	block   chan struct{}
	started chan struct{}
}

func (f *fakeAPI) ListSettings(ctx context.Context, page, pageSize int) (*settings.Page, error) {
	f.listCalls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	items := make([]settings.Setting, len(f.records))
	copy(items, f.records)
	return &settings.Page{Items: items, Total: len(items), Page: page, PageSize: pageSize}, nil
}

func (f *fakeAPI) GetSetting(_ context.Context, id string) (*settings.Setting, error) {
	f.getCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.records {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAPI) CreateSetting(_ context.Context, data json.RawMessage) (*settings.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	s := settings.Setting{ID: strconv.Itoa(f.nextID), Data: data}
	f.records = append(f.records, s)
	return &s, nil
}

func (f *fakeAPI) UpdateSetting(_ context.Context, id string, data json.RawMessage) (*settings.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Data = data
			s := f.records[i]
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAPI) DeleteSetting(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// fakeQueue delivers published messages synchronously to every subscriber.
type fakeQueue struct {
	mu         sync.Mutex
	handlers   []messagequeue.Handler
	publishErr error
	published  int
}

func (q *fakeQueue) Publish(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	if q.publishErr != nil {
		q.mu.Unlock()
		return q.publishErr
	}
	q.published++
	handlers := append([]messagequeue.Handler(nil), q.handlers...)
	q.mu.Unlock()
	for _, h := range handlers {
		_ = h(ctx, subject, data)
	}
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, _ string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	q.handlers = append(q.handlers, h)
	q.mu.Unlock()
	return func() {}, nil
}

func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

func newClient(api *fakeAPI) (*query.Client, *cachetest.Memory) {
	mem := cachetest.NewMemory()
	return query.NewClient(api, mem, time.Minute), mem
}

func TestSettingsServedFromCache(t *testing.T) {
	api := &fakeAPI{records: []settings.Setting{{ID: "123", Data: json.RawMessage(`{"theme":"dark"}`)}}}
	c, mem := newClient(api)
	ctx := context.Background()

	first := c.Settings(ctx, 1, 100)
	require.NoError(t, first.Err)
	assert.Equal(t, query.StatusSuccess, first.Status())
	assert.False(t, first.IsLoading)

	second := c.Settings(ctx, 1, 100)
	require.NoError(t, second.Err)
	require.Len(t, second.Data.Items, 1)
	assert.Equal(t, "123", second.Data.Items[0].ID)
	assert.Equal(t, int32(1), api.listCalls.Load())
	assert.Equal(t, 1, mem.Len())
}

func TestSettingsKeyedByArguments(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newClient(api)
	ctx := context.Background()

	c.Settings(ctx, 1, 100)
	c.Settings(ctx, 2, 100)
	c.Settings(ctx, 1, 10)
	c.Settings(ctx, 1, 100)
	assert.Equal(t, int32(3), api.listCalls.Load())
}

func TestSettingDisabledForEmptyID(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newClient(api)

	r := c.Setting(context.Background(), "")
	assert.False(t, r.Enabled)
	assert.Nil(t, r.Data)
	assert.Equal(t, query.StatusIdle, r.Status())
	assert.Equal(t, int32(0), api.getCalls.Load())
}

func TestSettingNotFound(t *testing.T) {
	api := &fakeAPI{}
	c, mem := newClient(api)

	r := c.Setting(context.Background(), "missing")
	assert.True(t, r.Enabled)
	assert.ErrorIs(t, r.Err, domain.ErrNotFound)
	assert.Equal(t, query.StatusError, r.Status())
	assert.Equal(t, 0, mem.Len())
}

func TestSuccessfulWritesInvalidate(t *testing.T) {
	tests := []struct {
		name  string
		write func(ctx context.Context, c *query.Client) error
	}{
		{"create", func(ctx context.Context, c *query.Client) error {
			_, err := c.CreateSetting(ctx, json.RawMessage(`{"a":1}`))
			return err
		}},
		{"update", func(ctx context.Context, c *query.Client) error {
			_, err := c.UpdateSetting(ctx, "1", json.RawMessage(`{"a":2}`))
			return err
		}},
		{"delete", func(ctx context.Context, c *query.Client) error {
			return c.DeleteSetting(ctx, "1")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{records: []settings.Setting{{ID: "1", Data: json.RawMessage(`{"a":0}`)}}}
			c, _ := newClient(api)
			ctx := context.Background()

			var notified []string
			c.OnInvalidate(func(ns string) { notified = append(notified, ns) })

			c.Settings(ctx, 1, 100)
			c.Setting(ctx, "1")
			require.NoError(t, tt.write(ctx, c))
			c.Settings(ctx, 1, 100)
			c.Setting(ctx, "1")

			assert.Equal(t, int32(2), api.listCalls.Load())
			assert.Equal(t, []string{query.Namespace}, notified)
			assert.Equal(t, uint64(1), c.Generation(query.Namespace))
		})
	}
}

func TestCreateThenListContainsRecord(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newClient(api)
	ctx := context.Background()

	empty := c.Settings(ctx, 1, 100)
	require.Empty(t, empty.Data.Items)

	created, err := c.CreateSetting(ctx, json.RawMessage(`{"key":"value"}`))
	require.NoError(t, err)

	after := c.Settings(ctx, 1, 100)
	require.Len(t, after.Data.Items, 1)
	assert.Equal(t, created.ID, after.Data.Items[0].ID)
	assert.JSONEq(t, `{"key":"value"}`, string(after.Data.Items[0].Data))
}

func TestFailedWriteKeepsCache(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newClient(api)
	ctx := context.Background()
	boom := errors.New("boom")

	c.Settings(ctx, 1, 100)
	api.setErr(boom)

	_, err := c.CreateSetting(ctx, json.RawMessage(`{}`))
	assert.Same(t, boom, err)
	_, err = c.UpdateSetting(ctx, "1", json.RawMessage(`{}`))
	assert.Same(t, boom, err)
	assert.Same(t, boom, c.DeleteSetting(ctx, "1"))

	api.setErr(nil)
	c.Settings(ctx, 1, 100)
	assert.Equal(t, int32(1), api.listCalls.Load())
	assert.Equal(t, uint64(0), c.Generation(query.Namespace))
}

func TestReadErrorNotCached(t *testing.T) {
	api := &fakeAPI{err: errors.New("unavailable")}
	c, mem := newClient(api)
	ctx := context.Background()

	r := c.Settings(ctx, 1, 100)
	require.Error(t, r.Err)
	assert.Nil(t, r.Data)
	assert.Equal(t, 0, mem.Len())

	api.setErr(nil)
	r = c.Settings(ctx, 1, 100)
	require.NoError(t, r.Err)
	assert.Equal(t, int32(2), api.listCalls.Load())
}

func TestCacheErrorsAreMisses(t *testing.T) {
	api := &fakeAPI{}
	c, mem := newClient(api)
	mem.Err = errors.New("cache down")

	r := c.Settings(context.Background(), 1, 100)
	require.NoError(t, r.Err)
	require.NotNil(t, r.Data)
}

func TestZeroStaleTimeAlwaysFetches(t *testing.T) {
	api := &fakeAPI{}
	mem := cachetest.NewMemory()
	c := query.NewClient(api, mem, 0)
	ctx := context.Background()

	c.Settings(ctx, 1, 100)
	c.Settings(ctx, 1, 100)
	assert.Equal(t, int32(2), api.listCalls.Load())
	assert.Equal(t, 0, mem.Len())
}

func TestResponseAfterInvalidationNotServed(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{}), started: make(chan struct{}, 1)}
	c, _ := newClient(api)
	ctx := context.Background()

	done := make(chan query.Result[settings.Page])
	go func() { done <- c.Settings(ctx, 1, 100) }()

	<-api.started
	c.Invalidate(ctx, query.Namespace)
	close(api.block)
	<-done

	c.Settings(ctx, 1, 100)
	assert.Equal(t, int32(2), api.listCalls.Load())
}

func TestConcurrentReadsCollapsed(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{}), started: make(chan struct{}, 1)}
	c, _ := newClient(api)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := c.Settings(ctx, 1, 100)
			assert.NoError(t, r.Err)
		}()
	}
	<-api.started
	time.Sleep(50 * time.Millisecond)
	close(api.block)
	wg.Wait()

	assert.Equal(t, int32(1), api.listCalls.Load())
}

func TestRemoteInvalidation(t *testing.T) {
	q := &fakeQueue{}
	ctx := context.Background()

	apiA, apiB := &fakeAPI{}, &fakeAPI{}
	a, _ := newClient(apiA)
	b, _ := newClient(apiB)
	a.SetQueue(q, nil)
	b.SetQueue(q, nil)
	_, err := a.Subscribe(ctx)
	require.NoError(t, err)
	_, err = b.Subscribe(ctx)
	require.NoError(t, err)

	var remote []string
	b.OnInvalidate(func(ns string) { remote = append(remote, ns) })

	b.Settings(ctx, 1, 100)
	_, err = a.CreateSetting(ctx, json.RawMessage(`{"x":1}`))
	require.NoError(t, err)

	assert.Equal(t, 1, q.published)
	assert.Equal(t, uint64(1), a.Generation(query.Namespace), "own message must be ignored")
	assert.Equal(t, uint64(1), b.Generation(query.Namespace))
	assert.Equal(t, []string{query.Namespace}, remote)

	b.Settings(ctx, 1, 100)
	assert.Equal(t, int32(2), apiB.listCalls.Load())
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	q := &fakeQueue{publishErr: errors.New("no broker")}
	api := &fakeAPI{}
	c, _ := newClient(api)
	c.SetQueue(q, nil)

	_, err := c.CreateSetting(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Generation(query.Namespace))
}

func TestFetchSurvivesCallerCancellation(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{}), started: make(chan struct{}, 1)}
	c, _ := newClient(api)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan query.Result[settings.Page])
	go func() { first <- c.Settings(ctx, 1, 100) }()
	<-api.started

	second := make(chan query.Result[settings.Page])
	go func() { second <- c.Settings(context.Background(), 1, 100) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(api.block)

	assert.NoError(t, (<-first).Err)
	r := <-second
	require.NoError(t, r.Err)
	assert.NotNil(t, r.Data)
}

func TestInstancesShareCacheEntries(t *testing.T) {
	api := &fakeAPI{records: []settings.Setting{{ID: "1", Data: json.RawMessage(`{}`)}}}
	mem := cachetest.NewMemory()
	a := query.NewClient(api, mem, time.Minute)
	b := query.NewClient(api, mem, time.Minute)
	ctx := context.Background()

	require.NoError(t, a.Settings(ctx, 1, 100).Err)
	r := b.Settings(ctx, 1, 100)
	require.NoError(t, r.Err)
	require.Len(t, r.Data.Items, 1)
	assert.Equal(t, int32(1), api.listCalls.Load())
}

func TestSharedCacheAfterRemoteInvalidation(t *testing.T) {
	api := &fakeAPI{}
	mem := cachetest.NewMemory()
	q := &fakeQueue{}
	ctx := context.Background()

	a := query.NewClient(api, mem, time.Minute)
	b := query.NewClient(api, mem, time.Minute)
	for _, c := range []*query.Client{a, b} {
		c.SetQueue(q, nil)
		_, err := c.Subscribe(ctx)
		require.NoError(t, err)
	}

	a.Settings(ctx, 1, 100)
	_, err := a.CreateSetting(ctx, json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, a.Generation(query.Namespace), b.Generation(query.Namespace))

	r := b.Settings(ctx, 1, 100)
	require.Len(t, r.Data.Items, 1)
	r = a.Settings(ctx, 1, 100)
	require.Len(t, r.Data.Items, 1)
	assert.Equal(t, int32(2), api.listCalls.Load())
}

func TestConcurrentInvalidationStepsPast(t *testing.T) {
	q := &fakeQueue{}
	ctx := context.Background()
	a, _ := newClient(&fakeAPI{})
	b, _ := newClient(&fakeAPI{})

	// b invalidated on its own before hearing from a.
	b.Invalidate(ctx, query.Namespace)
	require.Equal(t, uint64(1), b.Generation(query.Namespace))

	a.SetQueue(q, nil)
	b.SetQueue(q, nil)
	_, err := b.Subscribe(ctx)
	require.NoError(t, err)

	a.Invalidate(ctx, query.Namespace)
	assert.Equal(t, uint64(1), a.Generation(query.Namespace))
	assert.Equal(t, uint64(2), b.Generation(query.Namespace))
}

func TestLoadGeneration(t *testing.T) {
	api := &fakeAPI{}
	mem := cachetest.NewMemory()
	ctx := context.Background()

	a := query.NewClient(api, mem, time.Minute)
	for range 3 {
		a.Invalidate(ctx, query.Namespace)
	}
	a.Settings(ctx, 1, 100)

	restarted := query.NewClient(api, mem, time.Minute)
	require.NoError(t, restarted.LoadGeneration(ctx, query.Namespace))
	assert.Equal(t, uint64(3), restarted.Generation(query.Namespace))

	restarted.Settings(ctx, 1, 100)
	assert.Equal(t, int32(1), api.listCalls.Load())
}

func TestLoadGenerationMissingOrCorrupt(t *testing.T) {
	mem := cachetest.NewMemory()
	ctx := context.Background()
	c := query.NewClient(&fakeAPI{}, mem, time.Minute)

	require.NoError(t, c.LoadGeneration(ctx, query.Namespace))
	assert.Equal(t, uint64(0), c.Generation(query.Namespace))

	require.NoError(t, mem.Set(ctx, query.Namespace+"/generation", []byte("junk"), 0))
	assert.Error(t, c.LoadGeneration(ctx, query.Namespace))
}

func TestResultStatus(t *testing.T) {
	tests := []struct {
		name string
		r    query.Result[settings.Page]
		want string
	}{
		{"idle", query.Result[settings.Page]{}, query.StatusIdle},
		{"loading", query.Loading[settings.Page](), query.StatusLoading},
		{"error", query.Result[settings.Page]{Enabled: true, Err: errors.New("x")}, query.StatusError},
		{"success", query.Result[settings.Page]{Enabled: true, Data: &settings.Page{}}, query.StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Status())
		})
	}
}
