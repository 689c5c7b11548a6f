package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHubServer serves the hub behind a handler that injects the user id the
// auth middleware would have set. The returned channel closes when ServeWS
// returns.
func newHubServer(t *testing.T, h *Hub, userID int64) (*httptest.Server, chan struct{}) {
	t.Helper()

	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), "userID", userID)
		h.ServeWS(w, r.WithContext(ctx))
		close(served)
	}))
	t.Cleanup(srv.Close)

	return srv, served
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestHub_DeliversMatchEvent(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Shutdown()

	srv, _ := newHubServer(t, h, 1)
	conn := dialHub(t, srv)

	// Registration goes through the hub loop; give it a beat before pushing
	time.Sleep(100 * time.Millisecond)

	match := &Match{ID: 9, User1ID: 1, User2ID: 2, IsActive: true}
	h.NotifyMatch(1, 2, match)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var event struct {
		Type string `json:"type"`
		Data Match  `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, "new_match", event.Type)
	assert.Equal(t, int64(9), event.Data.ID)
}

func TestHub_ConnectAfterShutdownDoesNotBlock(t *testing.T) {
	h := NewHub()
	go h.Run()
	h.Shutdown()

	srv, served := newHubServer(t, h, 1)
	dialHub(t, srv)

	// ServeWS must drop the connection and return instead of blocking on a
	// register channel nothing drains anymore
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeWS did not return after hub shutdown")
	}
}

func TestHub_NotifyAfterShutdownDoesNotBlock(t *testing.T) {
	h := NewHub()
	go h.Run()
	h.Shutdown()

	done := make(chan struct{})
	go func() {
		h.NotifyMatch(1, 2, &Match{ID: 1, User1ID: 1, User2ID: 2})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyMatch did not return after hub shutdown")
	}
}
