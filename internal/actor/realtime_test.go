package actor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quillsync/quillsync/internal/document"
	"github.com/stretchr/testify/require"
)

// connPair upgrades one websocket connection and hands back both ends.
func connPair(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- c
	}))
	t.Cleanup(srv.Close)

	client, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })
	server = <-accepted
	t.Cleanup(func() { server.Close() })
	return server, client
}

// The upgrade handler already gates on ownership, so a session can only hit
// this path if the check is bypassed; the actor still refuses on its own.
func TestUpdateFromNonOwnerClosesWithForbiddenCode(t *testing.T) {
	ctx := context.Background()
	reg, _ := newDocRegistry()

	_, err := reg.Write(ctx, "d1", "alice", document.Patch{Title: strptr("guarded"), Initialize: true})
	require.NoError(t, err)
	a := reg.actorFor("d1")

	serverConn, clientConn := connPair(t)
	s := &session{userID: "mallory", conn: serverConn}

	keepOpen := a.handleMessage(ctx, s, []byte(`{"type":"update","title":"hijack"}`))
	require.False(t, keepOpen)

	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = clientConn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, CloseForbidden, ce.Code)

	// the hijack attempt left the record untouched
	rec, err := reg.Read(ctx, "d1", "alice")
	require.NoError(t, err)
	require.Equal(t, "guarded", rec.Title)
	require.Equal(t, int64(1), rec.Version)
}
