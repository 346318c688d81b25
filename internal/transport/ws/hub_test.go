package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, c *Connection) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send queue closed")
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatalf("no message for %s", c.ID)
		return Message{}
	}
}

// expectOnly asserts the next message c receives is a marker sent after
// everything under test, proving nothing else was queued in between.
func expectOnly(t *testing.T, h *Hub, c *Connection) {
	t.Helper()
	h.Send(c.ID, "marker", nil)
	assert.Equal(t, "marker", recv(t, c).Type)
}

func newHubWith(t *testing.T, ids ...string) (*Hub, map[string]*Connection) {
	t.Helper()
	h := NewHub()
	t.Cleanup(h.Close)
	conns := make(map[string]*Connection, len(ids))
	for _, id := range ids {
		c := NewConnection(id, "user-"+id, "name-"+id)
		h.Register(c)
		conns[id] = c
	}
	return h, conns
}

func TestHubSendEnvelope(t *testing.T) {
	h, conns := newHubWith(t, "a")

	h.Send("a", "timerUpdate", map[string]any{"timeLeft": 1500})

	m := recv(t, conns["a"])
	assert.Equal(t, "timerUpdate", m.Type)
	assert.JSONEq(t, `{"timeLeft":1500}`, string(m.Payload))
}

func TestHubPublishReachesOnlyMembers(t *testing.T) {
	h, conns := newHubWith(t, "a", "b", "c")
	h.Subscribe("room", "a")
	h.Subscribe("room", "b")

	h.Publish("room", "newMessage", map[string]string{"message": "hi"})

	assert.Equal(t, "newMessage", recv(t, conns["a"]).Type)
	assert.Equal(t, "newMessage", recv(t, conns["b"]).Type)
	expectOnly(t, h, conns["c"])
}

func TestHubSubscribeIsOrderedBeforePublish(t *testing.T) {
	h, conns := newHubWith(t, "a")

	for i := 0; i < 50; i++ {
		h.Subscribe("room", "a")
		h.Publish("room", "tick", i)
		h.Unsubscribe("room", "a")
	}

	for i := 0; i < 50; i++ {
		m := recv(t, conns["a"])
		assert.Equal(t, "tick", m.Type)
	}
	expectOnly(t, h, conns["a"])
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h, conns := newHubWith(t, "a", "b")
	h.Subscribe("room", "a")
	h.Subscribe("room", "b")
	h.Unsubscribe("room", "b")

	h.Publish("room", "participantKicked", nil)

	assert.Equal(t, "participantKicked", recv(t, conns["a"]).Type)
	expectOnly(t, h, conns["b"])
}

func TestHubUnregisterClosesQueue(t *testing.T) {
	h, conns := newHubWith(t, "a")
	h.Subscribe("room", "a")
	h.Unregister(conns["a"])
	h.Unregister(conns["a"])

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-conns["a"].Send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// publishing to a room whose only member left must not panic
	h.Publish("room", "timerUpdate", nil)
	h.Send("a", "timerUpdate", nil)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h, conns := newHubWith(t, "slow", "fast")
	h.Subscribe("room", "slow")
	h.Subscribe("room", "fast")

	for i := 0; i < sendBuffer+10; i++ {
		h.Publish("room", "tick", i)
		if i < sendBuffer {
			recv(t, conns["fast"])
		}
	}
	for i := sendBuffer; i < sendBuffer+10; i++ {
		recv(t, conns["fast"])
	}

	assert.Len(t, conns["slow"].Send, sendBuffer)
}
