package web

import (
	"context"

	"github.com/Strob0t/settingsadmin/internal/adapter/ws"
	"github.com/Strob0t/settingsadmin/internal/port/broadcast"
)

// Invalidations is the part of the query client that reports invalidations.
type Invalidations interface {
	OnInvalidate(fn func(namespace string))
}

// ForwardInvalidations pushes every invalidation of src to open pages so they
// can reload. Each send runs in its own goroutine and keeps ctx values but
// not its cancellation.
func ForwardInvalidations(ctx context.Context, src Invalidations, b broadcast.Broadcaster) {
	ctx = context.WithoutCancel(ctx)
	src.OnInvalidate(func(namespace string) {
		go b.BroadcastEvent(ctx, ws.EventSettingsInvalidated, ws.InvalidatedEvent{Namespace: namespace})
	})
}
