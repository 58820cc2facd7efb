package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/BOSS-tools/boplot/internal/dispatcher"
	"github.com/BOSS-tools/boplot/internal/editor"
	"github.com/BOSS-tools/boplot/internal/service"
	"github.com/BOSS-tools/boplot/pkg/streaming"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendChSize     = 64
)

// session is one live editor connection with its own board.
type session struct {
	id     string
	conn   *websocket.Conn
	board  *editor.Board
	send   chan streaming.Envelope
	done   chan struct{}
	server *Server
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := &session{
		id:     uuid.NewString(),
		conn:   conn,
		board:  editor.New(s.svc.Table()),
		send:   make(chan streaming.Envelope, sendChSize),
		done:   make(chan struct{}),
		server: s,
	}

	s.clients.Add(1)
	s.log.Info("live session opened", "session", sess.id, "remote", r.RemoteAddr)
	defer func() {
		s.clients.Add(-1)
		s.log.Info("live session closed", "session", sess.id)
	}()

	go sess.writePump()

	hello, err := json.Marshal(streaming.HelloPayload{Session: sess.id, Commands: s.d.Commands()})
	if err == nil {
		sess.enqueue(streaming.Envelope{Type: streaming.TypeHello, Payload: hello})
	}

	sess.readPump(service.WithBoard(r.Context(), sess.board))
}

// readPump dispatches each text message in order until the peer goes away.
func (c *session) readPump(ctx context.Context) {
	defer func() {
		close(c.done)
		_ = c.conn.Close()
	}()

	log := c.server.log.With("session", c.id)

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Warn("failed to set read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req streaming.Envelope
		if err := json.Unmarshal(data, &req); err != nil {
			c.enqueue(streaming.Envelope{Type: streaming.TypeError, Error: "malformed envelope: " + err.Error()})
			continue
		}

		c.enqueue(c.handle(ctx, req))
	}
}

func (c *session) handle(ctx context.Context, req streaming.Envelope) streaming.Envelope {
	result, err := c.server.d.Dispatch(dispatcher.WithSession(ctx, c.id), dispatcher.Request{
		Command:   req.Type,
		Payload:   req.Payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return streaming.ErrorReply(req, err)
	}
	reply, err := streaming.Reply(req, result)
	if err != nil {
		return streaming.ErrorReply(req, err)
	}
	return reply
}

func (c *session) enqueue(env streaming.Envelope) {
	select {
	case c.send <- env:
	case <-c.done:
	}
}

// writePump is the only writer on conn. It also keeps the peer alive with pings.
func (c *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	log := c.server.log.With("session", c.id)

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case env := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Warn("failed to set write deadline", "error", err)
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				log.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("ping failed", "error", err)
				return
			}
		}
	}
}
