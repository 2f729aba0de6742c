package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func newTestHub() *Hub {
	log, _ := test.NewNullLogger()
	return NewHub(log)
}

func TestHubBroadcastSkipsSender(t *testing.T) {
	h := newTestHub()
	a := newConnection(nil, "room-1", "", nil)
	b := newConnection(nil, "room-1", "", nil)
	other := newConnection(nil, "room-2", "", nil)
	h.Join(a)
	h.Join(b)
	h.Join(other)

	n := h.Broadcast("room-1", a, []byte("hi"))
	assert.Equal(t, 1, n)
	assert.Len(t, a.send, 0)
	assert.Equal(t, []byte("hi"), <-b.send)
	assert.Len(t, other.send, 0)

	assert.Equal(t, 2, h.Broadcast("room-1", nil, []byte("system")))
}

func TestHubLeaveForgetsEmptyRoom(t *testing.T) {
	h := newTestHub()
	a := newConnection(nil, "room-1", "", nil)
	h.Join(a)
	assert.Equal(t, 1, h.Members("room-1"))

	h.Leave(a)
	assert.Equal(t, 0, h.Members("room-1"))
	h.mu.RLock()
	_, ok := h.rooms["room-1"]
	h.mu.RUnlock()
	assert.False(t, ok)

	h.Leave(a)
	assert.Equal(t, 0, h.Broadcast("room-1", nil, []byte("nobody")))
}

func TestHubDropsSlowConsumer(t *testing.T) {
	h := newTestHub()
	sender := newConnection(nil, "room-1", "", nil)
	slow := newConnection(nil, "room-1", "", nil)
	h.Join(sender)
	h.Join(slow)

	for i := 0; i < sendBufferSize; i++ {
		assert.Equal(t, 1, h.Broadcast("room-1", sender, []byte("x")))
	}
	assert.Equal(t, 0, h.Broadcast("room-1", sender, []byte("overflow")))
	assert.Equal(t, 1, h.Members("room-1"))

	select {
	case <-slow.done:
	default:
		t.Fatal("slow consumer was not closed")
	}
}

func TestHubOrderWithinRoom(t *testing.T) {
	h := newTestHub()
	a := newConnection(nil, "room-1", "", nil)
	b := newConnection(nil, "room-1", "", nil)
	c := newConnection(nil, "room-1", "", nil)
	h.Join(a)
	h.Join(b)
	h.Join(c)

	h.Broadcast("room-1", a, []byte("1"))
	h.Broadcast("room-1", a, []byte("2"))
	h.Broadcast("room-1", nil, []byte("3"))

	for _, conn := range []*Connection{b, c} {
		assert.Equal(t, "1", string(<-conn.send))
		assert.Equal(t, "2", string(<-conn.send))
		assert.Equal(t, "3", string(<-conn.send))
	}
}

func TestAllowOrigins(t *testing.T) {
	check := AllowOrigins([]string{"https://chat.example.com", " https://admin.example.com"})
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, check(req("https://chat.example.com")))
	assert.True(t, check(req("https://admin.example.com")))
	assert.True(t, check(req("")))
	assert.False(t, check(req("https://evil.example.com")))
	assert.True(t, AllowOrigins([]string{"*"})(req("https://anything.example.com")))
}
