// Package query is the read-through cache in front of the settings API.
// Reads are keyed by namespace and arguments; every successful write
// invalidates the whole settings namespace.
//
// Physical cache keys carry the namespace generation, so instances sharing
// an L2 cache share entries as long as they agree on the generation. The
// generation is persisted in the cache and travels with every invalidation
// message.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/settingsadmin/internal/adapter/otel"
	"github.com/Strob0t/settingsadmin/internal/domain/settings"
	"github.com/Strob0t/settingsadmin/internal/port/cache"
	"github.com/Strob0t/settingsadmin/internal/port/messagequeue"
	"github.com/Strob0t/settingsadmin/internal/resilience"
)

// Namespace is the cache namespace shared by every settings query.
const Namespace = "settings"

// Fetcher performs the remote calls behind the hooks.
type Fetcher interface {
	ListSettings(ctx context.Context, page, pageSize int) (*settings.Page, error)
	GetSetting(ctx context.Context, id string) (*settings.Setting, error)
	CreateSetting(ctx context.Context, data json.RawMessage) (*settings.Setting, error)
	UpdateSetting(ctx context.Context, id string, data json.RawMessage) (*settings.Setting, error)
	DeleteSetting(ctx context.Context, id string) error
}

// Client serves settings reads from a cache and invalidates it on writes.
// It is safe for concurrent use.
type Client struct {
	fetcher   Fetcher
	cache     cache.Cache
	staleTime time.Duration
	// epoch identifies this process as the origin of invalidation messages.
	epoch string

	gens  sync.Map // namespace -> *atomic.Uint64
	group singleflight.Group

	metrics *otel.Metrics
	queue   messagequeue.Queue
	breaker *resilience.Breaker

	mu        sync.RWMutex
	observers []func(namespace string)
}

// NewClient creates a query client. Values are cached for staleTime; a
// non-positive staleTime disables read caching.
func NewClient(f Fetcher, c cache.Cache, staleTime time.Duration) *Client {
	return &Client{
		fetcher:   f,
		cache:     c,
		staleTime: staleTime,
		epoch:     uuid.NewString(),
	}
}

// SetMetrics attaches metric instruments.
func (c *Client) SetMetrics(m *otel.Metrics) {
	c.metrics = m
}

// SetQueue enables cross-instance invalidation. b may be nil.
func (c *Client) SetQueue(q messagequeue.Queue, b *resilience.Breaker) {
	c.queue = q
	c.breaker = b
}

// Epoch identifies this process in invalidation messages.
func (c *Client) Epoch() string {
	return c.epoch
}

// Generation returns the current generation of namespace.
func (c *Client) Generation(namespace string) uint64 {
	return c.counter(namespace).Load()
}

// OnInvalidate registers fn to run after every invalidation, local or remote.
func (c *Client) OnInvalidate(fn func(namespace string)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Settings is the list read hook.
func (c *Client) Settings(ctx context.Context, page, pageSize int) Result[settings.Page] {
	key := Namespace + "/list/" + strconv.Itoa(page) + "/" + strconv.Itoa(pageSize)
	return read(ctx, c, "list", key, func(ctx context.Context) (*settings.Page, error) {
		return c.fetcher.ListSettings(ctx, page, pageSize)
	})
}

// Setting is the detail read hook. An empty id disables it.
func (c *Client) Setting(ctx context.Context, id string) Result[settings.Setting] {
	if id == "" {
		return Result[settings.Setting]{}
	}
	return read(ctx, c, "item", Namespace+"/item/"+id, func(ctx context.Context) (*settings.Setting, error) {
		return c.fetcher.GetSetting(ctx, id)
	})
}

// CreateSetting creates a record and invalidates the namespace on success.
func (c *Client) CreateSetting(ctx context.Context, data json.RawMessage) (*settings.Setting, error) {
	ctx, span := otel.StartMutationSpan(ctx, "create", "")
	defer span.End()

	s, err := c.fetcher.CreateSetting(ctx, data)
	c.metrics.RecordMutation(ctx, "create", err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	c.Invalidate(ctx, Namespace)
	return s, nil
}

// UpdateSetting replaces a record's data and invalidates the namespace on success.
func (c *Client) UpdateSetting(ctx context.Context, id string, data json.RawMessage) (*settings.Setting, error) {
	ctx, span := otel.StartMutationSpan(ctx, "update", id)
	defer span.End()

	s, err := c.fetcher.UpdateSetting(ctx, id, data)
	c.metrics.RecordMutation(ctx, "update", err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	c.Invalidate(ctx, Namespace)
	return s, nil
}

// DeleteSetting removes a record and invalidates the namespace on success.
func (c *Client) DeleteSetting(ctx context.Context, id string) error {
	ctx, span := otel.StartMutationSpan(ctx, "delete", id)
	defer span.End()

	err := c.fetcher.DeleteSetting(ctx, id)
	c.metrics.RecordMutation(ctx, "delete", err)
	if err != nil {
		span.RecordError(err)
		return err
	}
	c.Invalidate(ctx, Namespace)
	return nil
}

// Invalidate drops every cached value of namespace and tells other
// instances to do the same.
func (c *Client) Invalidate(ctx context.Context, namespace string) {
	gen := c.counter(namespace).Add(1)
	c.storeGeneration(ctx, namespace, gen)
	c.notify(ctx, namespace, gen, false)
	c.publish(ctx, namespace, gen)
}

// LoadGeneration adopts the generation persisted in the cache by other
// instances, if it is ahead of the local one. Call it once at startup.
func (c *Client) LoadGeneration(ctx context.Context, namespace string) error {
	if !c.caching() {
		return nil
	}
	raw, ok, err := c.cache.Get(ctx, generationKey(namespace))
	if err != nil {
		return fmt.Errorf("load generation: %w", err)
	}
	if !ok {
		return nil
	}
	gen, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("parse generation %q: %w", raw, err)
	}
	c.advanceTo(namespace, gen)
	return nil
}

// Subscribe applies invalidations published by other instances until the
// returned cancel function is called.
func (c *Client) Subscribe(ctx context.Context) (func(), error) {
	if c.queue == nil {
		return func() {}, nil
	}
	return c.queue.Subscribe(ctx, messagequeue.SubjectSettingsInvalidated,
		func(ctx context.Context, _ string, data []byte) error {
			var p messagequeue.InvalidatedPayload
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("unmarshal invalidation: %w", err)
			}
			if p.Origin == c.epoch {
				return nil
			}
			gen := c.adoptRemote(p.Namespace, p.Generation)
			c.notify(ctx, p.Namespace, gen, true)
			return nil
		})
}

// adoptRemote moves the local generation past a remote invalidation. A remote
// generation ahead of ours is taken as is, so instances converge on shared
// keys. One at or behind ours means both sides invalidated concurrently;
// entries under our current generation may predate the remote write, so we
// step past it.
func (c *Client) adoptRemote(namespace string, remote uint64) uint64 {
	ctr := c.counter(namespace)
	for {
		cur := ctr.Load()
		next := remote
		if remote <= cur {
			next = cur + 1
		}
		if ctr.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// advanceTo raises the generation to at least gen.
func (c *Client) advanceTo(namespace string, gen uint64) {
	ctr := c.counter(namespace)
	for {
		cur := ctr.Load()
		if gen <= cur || ctr.CompareAndSwap(cur, gen) {
			return
		}
	}
}

func (c *Client) storeGeneration(ctx context.Context, namespace string, gen uint64) {
	if !c.caching() {
		return
	}
	if err := c.cache.Set(ctx, generationKey(namespace), []byte(strconv.FormatUint(gen, 10)), 0); err != nil {
		slog.WarnContext(ctx, "store query generation failed", "namespace", namespace, "error", err)
	}
}

func (c *Client) notify(ctx context.Context, namespace string, gen uint64, remote bool) {
	c.metrics.RecordInvalidation(ctx, namespace, remote)
	slog.DebugContext(ctx, "query namespace invalidated",
		"namespace", namespace, "generation", gen, "remote", remote)

	c.mu.RLock()
	observers := make([]func(string), len(c.observers))
	copy(observers, c.observers)
	c.mu.RUnlock()

	for _, fn := range observers {
		fn(namespace)
	}
}

func (c *Client) publish(ctx context.Context, namespace string, gen uint64) {
	if c.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.InvalidatedPayload{
		Namespace:  namespace,
		Origin:     c.epoch,
		Generation: gen,
	})
	if err != nil {
		slog.ErrorContext(ctx, "marshal invalidation", "error", err)
		return
	}
	send := func(ctx context.Context) error {
		return c.queue.Publish(ctx, messagequeue.SubjectSettingsInvalidated, data)
	}
	if c.breaker != nil {
		err = c.breaker.Do(ctx, send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		slog.WarnContext(ctx, "publish invalidation failed", "namespace", namespace, "error", err)
	}
}

func (c *Client) counter(namespace string) *atomic.Uint64 {
	if v, ok := c.gens.Load(namespace); ok {
		return v.(*atomic.Uint64)
	}
	v, _ := c.gens.LoadOrStore(namespace, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

// physicalKey scopes key to the generation of its namespace. The
// generation must be captured before fetching so that a response
// resolving after an invalidation lands under a key nobody reads again.
func physicalKey(gen uint64, key string) string {
	return "g" + strconv.FormatUint(gen, 10) + "/" + key
}

func (c *Client) caching() bool {
	return c.cache != nil && c.staleTime > 0
}

func generationKey(namespace string) string {
	return namespace + "/generation"
}

func read[T any](ctx context.Context, c *Client, kind, key string, fetch func(context.Context) (*T, error)) Result[T] {
	ctx, span := otel.StartQuerySpan(ctx, key)
	defer span.End()

	pkey := physicalKey(c.counter(Namespace).Load(), key)
	caching := c.caching()

	if caching {
		raw, ok, err := c.cache.Get(ctx, pkey)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "query cache get failed", "key", key, "error", err)
		case ok:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				c.metrics.RecordLookup(ctx, kind, true)
				return Result[T]{Data: &v, Enabled: true}
			}
			slog.WarnContext(ctx, "query cache entry unreadable", "key", key)
		}
	}
	c.metrics.RecordLookup(ctx, kind, false)

	v, err, _ := c.group.Do(pkey, func() (any, error) {
		// Collapsed readers share this fetch; one of them going away must
		// not fail the others.
		ctx := context.WithoutCancel(ctx)
		start := time.Now()
		data, err := fetch(ctx)
		c.metrics.RecordFetch(ctx, kind, time.Since(start))
		if err != nil {
			return nil, err
		}
		if caching {
			if raw, err := json.Marshal(data); err == nil {
				if err := c.cache.Set(ctx, pkey, raw, c.staleTime); err != nil {
					slog.WarnContext(ctx, "query cache set failed", "key", key, "error", err)
				}
			}
		}
		return data, nil
	})
	if err != nil {
		span.RecordError(err)
		return Result[T]{Err: err, Enabled: true}
	}
	return Result[T]{Data: v.(*T), Enabled: true}
}
