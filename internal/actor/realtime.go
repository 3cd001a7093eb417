package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quillsync/quillsync/internal/apperrors"
	"github.com/quillsync/quillsync/internal/document"
	"github.com/quillsync/quillsync/pkg/logger"
	"github.com/quillsync/quillsync/pkg/metrics"
)

// CloseForbidden is the close code sent when an authenticated session
// attempts an update on a document it does not own.
const CloseForbidden = 4403

type clientMessage struct {
	Type    string    `json:"type"`
	ID      *int64    `json:"id,omitempty"`
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

type serverMessage struct {
	Type      string           `json:"type"`
	ID        *int64           `json:"id,omitempty"`
	Document  *document.Record `json:"document,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp int64            `json:"timestamp,omitempty"`
}

type session struct {
	userID string
	conn   *websocket.Conn
	sendMu sync.Mutex // gorilla allows one concurrent writer
}

func (s *session) send(msg serverMessage) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *session) close(code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = s.conn.Close()
}

// Serve runs the realtime protocol on an upgraded connection until the
// client disconnects. The caller has already verified existence and
// ownership before upgrading.
func (r *DocumentRegistry) Serve(ctx context.Context, docID, userID string, conn *websocket.Conn) {
	r.actorFor(docID).serve(ctx, userID, conn)
}

func (a *DocumentActor) serve(ctx context.Context, userID string, conn *websocket.Conn) {
	s := &session{userID: userID, conn: conn}
	a.connMu.Lock()
	a.sessions[s] = struct{}{}
	a.connMu.Unlock()
	metrics.RealtimeSessions.Inc()

	defer func() {
		_ = conn.Close()
		a.connMu.Lock()
		delete(a.sessions, s)
		empty := len(a.sessions) == 0
		a.connMu.Unlock()
		metrics.RealtimeSessions.Dec()
		if empty {
			// the last writer may not have flushed yet
			if err := a.flushForce(context.Background()); err != nil {
				logger.Warnf("document %s: flush on last disconnect failed: %v", a.docID, err)
			}
		}
	}()

	rec, err := a.Read(ctx, userID)
	if err != nil {
		return
	}
	if err := s.send(serverMessage{Type: "snapshot", Document: rec}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !a.handleMessage(ctx, s, data) {
			return
		}
	}
}

// handleMessage processes one inbound frame. Protocol errors are non-fatal
// (error reply, connection stays open); only an ownership violation closes
// the socket. Returns false when the session should end.
func (a *DocumentActor) handleMessage(ctx context.Context, s *session, data []byte) bool {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		_ = s.send(serverMessage{Type: "error", Message: "invalid JSON payload"})
		return true
	}

	switch msg.Type {
	case "ping":
		_ = s.send(serverMessage{Type: "pong", Timestamp: time.Now().UnixMilli()})
	case "update":
		rec, err := a.Write(ctx, s.userID, document.Patch{Title: msg.Title, Content: msg.Content, Tags: msg.Tags})
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindForbidden {
				s.close(CloseForbidden, "forbidden")
				return false
			}
			_ = s.send(serverMessage{Type: "error", Message: err.Error()})
			return true
		}
		_ = s.send(serverMessage{Type: "ack", ID: msg.ID, Document: rec})
		a.broadcast(s, serverMessage{Type: "remote-update", Document: rec})
	default:
		_ = s.send(serverMessage{Type: "error", Message: fmt.Sprintf("unsupported message type %q", msg.Type)})
	}
	return true
}

// broadcast fans a message out to every session except from. A failed send
// is logged but does not deregister the peer; its own read loop handles
// teardown.
func (a *DocumentActor) broadcast(from *session, msg serverMessage) {
	a.connMu.Lock()
	peers := make([]*session, 0, len(a.sessions))
	for s := range a.sessions {
		if s != from {
			peers = append(peers, s)
		}
	}
	a.connMu.Unlock()

	for _, p := range peers {
		if err := p.send(msg); err != nil {
			logger.Warnf("document %s: fan-out to peer failed: %v", a.docID, err)
		}
	}
}
