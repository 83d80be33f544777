package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"auction-house/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	userID, itemID string

	mu      sync.Mutex
	sent    []string
	closed  bool
	sendErr error
}

func newFakeConn(userID, itemID string) *fakeConn {
	return &fakeConn{userID: userID, itemID: itemID}
}

func (c *fakeConn) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	b, err := json.Marshal(message)
	if err != nil {
		return err
	}
	c.sent = append(c.sent, string(b))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) UserID() string { return c.userID }
func (c *fakeConn) ItemID() string { return c.itemID }

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestBroadcastReachesOnlyItemWatchers(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	a := newFakeConn("u1", "item-1")
	b := newFakeConn("u2", "item-1")
	other := newFakeConn("u3", "item-2")
	require.NoError(t, cm.RegisterConnection("u1", "item-1", a))
	require.NoError(t, cm.RegisterConnection("u2", "item-1", b))
	require.NoError(t, cm.RegisterConnection("u3", "item-2", other))

	require.NoError(t, NewBroadcaster(cm).BroadcastToItem(context.Background(), "item-1", map[string]int{"price": 150}))

	assert.Equal(t, []string{`{"price":150}`}, a.messages())
	assert.Equal(t, []string{`{"price":150}`}, b.messages())
	assert.Empty(t, other.messages())
}

func TestBroadcastContinuesPastFailedSend(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	broken := newFakeConn("u1", "item-1")
	broken.sendErr = errors.New("broken pipe")
	healthy := newFakeConn("u2", "item-1")
	require.NoError(t, cm.RegisterConnection("u1", "item-1", broken))
	require.NoError(t, cm.RegisterConnection("u2", "item-1", healthy))

	require.NoError(t, cm.BroadcastToItem("item-1", "hello"))
	assert.Equal(t, []string{`"hello"`}, healthy.messages())
}

func TestRegisterReplacesPreviousConnection(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	first := newFakeConn("u1", "item-1")
	second := newFakeConn("u1", "item-1")
	require.NoError(t, cm.RegisterConnection("u1", "item-1", first))
	require.NoError(t, cm.RegisterConnection("u1", "item-1", second))

	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())

	// the stale reader exiting must not drop the new connection
	require.NoError(t, cm.UnregisterConnection("u1", "item-1", first))
	assert.Len(t, cm.GetConnectionsForItem("item-1"), 1)

	require.NoError(t, cm.UnregisterConnection("u1", "item-1", second))
	assert.Empty(t, cm.GetConnectionsForItem("item-1"))
}

func TestCloseAndUnregisterConnections(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	a := newFakeConn("u1", "item-1")
	b := newFakeConn("u2", "item-2")
	require.NoError(t, cm.RegisterConnection("u1", "item-1", a))
	require.NoError(t, cm.RegisterConnection("u2", "item-2", b))

	require.NoError(t, cm.CloseAndUnregisterConnections("item-1"))

	assert.True(t, a.isClosed())
	assert.False(t, b.isClosed())
	assert.Empty(t, cm.GetConnectionsForItem("item-1"))
	assert.Len(t, cm.GetConnectionsForItem("item-2"), 1)
}

func TestBroadcastWithoutWatchers(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	assert.NoError(t, cm.BroadcastToItem("nobody", make(chan int)))
}
