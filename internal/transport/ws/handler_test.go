package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom/internal/coordinator"
	"studyroom/internal/model"
)

type stubAuth struct{}

func (stubAuth) ValidateUserToken(token string) (*model.UserClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &model.UserClaims{UserID: "u1", Username: "ada"}, nil
}

type handled struct {
	connID  string
	event   string
	payload string
}

type sinkRecorder struct {
	mu           sync.Mutex
	connected    []coordinator.Identity
	disconnected []string
	events       []handled
}

func (s *sinkRecorder) Connect(id coordinator.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = append(s.connected, id)
}

func (s *sinkRecorder) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = append(s.disconnected, connID)
}

func (s *sinkRecorder) Handle(connID, event string, payload json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, handled{connID, event, string(payload)})
}

func (s *sinkRecorder) snapshot() ([]coordinator.Identity, []string, []handled) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]coordinator.Identity(nil), s.connected...),
		append([]string(nil), s.disconnected...),
		append([]handled(nil), s.events...)
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub, *sinkRecorder) {
	t.Helper()
	hub := NewHub()
	t.Cleanup(hub.Close)
	sink := &sinkRecorder{}
	h := NewHandler(hub, stubAuth{}, sink, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	return srv, hub, sink
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws" + query
}

func TestServeWSRejectsMissingToken(t *testing.T) {
	srv, _, sink := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "?token=bad"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	connected, _, _ := sink.snapshot()
	assert.Empty(t, connected)
}

func TestServeWSRoundTrip(t *testing.T) {
	srv, hub, sink := newTestServer(t)

	client, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=good"), nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool {
		connected, _, _ := sink.snapshot()
		return len(connected) == 1
	}, time.Second, 5*time.Millisecond)
	connected, _, _ := sink.snapshot()
	id := connected[0]
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "ada", id.Username)
	assert.NotEmpty(t, id.ConnID)

	// inbound frames reach the sink unchanged
	require.NoError(t, client.WriteJSON(map[string]any{
		"type":    "joinRoom",
		"payload": map[string]string{"roomId": "r1"},
	}))
	require.Eventually(t, func() bool {
		_, _, evs := sink.snapshot()
		return len(evs) == 1
	}, time.Second, 5*time.Millisecond)
	_, _, evs := sink.snapshot()
	assert.Equal(t, id.ConnID, evs[0].connID)
	assert.Equal(t, "joinRoom", evs[0].event)
	assert.JSONEq(t, `{"roomId":"r1"}`, evs[0].payload)

	// outbound events use the same envelope
	hub.Send(id.ConnID, "timerUpdate", map[string]int{"timeLeft": 60})
	client.SetReadDeadline(time.Now().Add(time.Second))
	var msg Message
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, "timerUpdate", msg.Type)
	assert.JSONEq(t, `{"timeLeft":60}`, string(msg.Payload))

	// malformed frames get an error back and never reach the sink
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, coordinator.EvErrorMessage, msg.Type)
	_, _, evs = sink.snapshot()
	assert.Len(t, evs, 1)

	client.Close()
	require.Eventually(t, func() bool {
		_, disconnected, _ := sink.snapshot()
		return len(disconnected) == 1 && disconnected[0] == id.ConnID
	}, 2*time.Second, 5*time.Millisecond)
}

func TestServeWSAcceptsBearerHeader(t *testing.T) {
	srv, _, sink := newTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer good"}}
	client, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool {
		connected, _, _ := sink.snapshot()
		return len(connected) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/v1/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := originChecker(nil)
	assert.True(t, open(req("http://evil.test")))

	wildcard := originChecker([]string{"*"})
	assert.True(t, wildcard(req("http://evil.test")))

	strict := originChecker([]string{"http://localhost:5173/"})
	assert.True(t, strict(req("http://localhost:5173")))
	assert.True(t, strict(req("")))
	assert.False(t, strict(req("http://evil.test")))
}
