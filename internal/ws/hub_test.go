package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failing  bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("broken pipe")
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) events(t *testing.T) []Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, 0, len(f.messages))
	for _, m := range f.messages {
		var e Event
		require.NoError(t, json.Unmarshal(m, &e))
		out = append(out, e)
	}
	return out
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zap.NewNop(), 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func TestHub_FiltersByTenantAndTable(t *testing.T) {
	h := startHub(t)

	products := &fakeConn{}
	everything := &fakeConn{}
	otherTenant := &fakeConn{}
	h.Register <- NewClient(products, "t1", "u1", ParseTables("products"))
	h.Register <- NewClient(everything, "t1", "u2", nil)
	h.Register <- NewClient(otherTenant, "t2", "u3", nil)

	h.Publish(Change("t1", TableSales, ActionInsert, map[string]string{"id": "s1"}, nil))
	h.Publish(Change("t1", TableProducts, ActionUpdate, map[string]string{"id": "p1"}, &Actor{ID: "u2"}))

	assert.Eventually(t, func() bool { return everything.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return products.count() == 1 }, time.Second, 5*time.Millisecond)

	got := products.events(t)
	assert.Equal(t, TableProducts, got[0].Table)
	assert.Equal(t, ActionUpdate, got[0].Action)
	assert.Equal(t, "u2", got[0].Actor.ID)
	assert.False(t, got[0].At.IsZero())
	assert.Zero(t, otherTenant.count())
}

func TestHub_PresenceGoesToEveryone(t *testing.T) {
	h := startHub(t)

	a, b := &fakeConn{}, &fakeConn{}
	h.Register <- NewClient(a, "t1", "u1", []string{TableSales})
	h.Register <- NewClient(b, "t2", "u2", nil)

	h.Publish(Event{Type: EventUserStatus, Message: "online", Actor: &Actor{ID: "u1"}})

	assert.Eventually(t, func() bool { return a.count() == 1 && b.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, EventUserStatus, b.events(t)[0].Type)
}

func TestHub_DropsFailingClients(t *testing.T) {
	h := startHub(t)

	broken := &fakeConn{failing: true}
	h.Register <- NewClient(broken, "t1", "u1", nil)
	assert.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Publish(Change("t1", TableProducts, ActionDelete, nil, nil))

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, broken.isClosed())
}

func TestHub_Unregister(t *testing.T) {
	h := startHub(t)

	conn := &fakeConn{}
	c := NewClient(conn, "t1", "u1", nil)
	h.Register <- c
	h.Unregister <- c

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, conn.isClosed())
}

func TestHub_ListenersRunInline(t *testing.T) {
	h := NewHub(zap.NewNop(), 1)

	var seen []Event
	h.Listen(func(e Event) { seen = append(seen, e) })

	// Nothing drains the queue: the second publish is dropped for clients
	// but listeners still see both events.
	h.Publish(Change("t1", TableSales, ActionInsert, nil, nil))
	h.Publish(Change("t1", TableSaleItems, ActionInsert, nil, nil))

	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsDataChange())
	assert.False(t, Event{Type: EventUserStatus}.IsDataChange())
	assert.False(t, Change("t1", "users", ActionUpdate, nil, nil).IsDataChange())
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	h := NewHub(zap.NewNop(), 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	conn := &fakeConn{}
	h.Register <- NewClient(conn, "", "u1", nil)
	cancel()
	<-done

	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, h.ClientCount())
}
