package web

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/settingsadmin/internal/adapter/ws"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
	got    chan struct{}
}

func (b *recordingBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	raw, _ := json.Marshal(payload)
	b.mu.Lock()
	b.events = append(b.events, eventType+" "+string(raw))
	b.mu.Unlock()
	b.got <- struct{}{}
}

func TestForwardInvalidations(t *testing.T) {
	_, q := seed()
	b := &recordingBroadcaster{got: make(chan struct{}, 1)}
	ForwardInvalidations(context.Background(), q, b)

	_, err := q.CreateSetting(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	select {
	case <-b.got:
	case <-time.After(2 * time.Second):
		t.Fatal("no event broadcast")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []string{ws.EventSettingsInvalidated + ` {"namespace":"settings"}`}, b.events)
}
