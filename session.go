package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	readBufSize    = 4096
	inboxSize      = 16
	outboxSize     = 100
	writeQueueSize = 100

	wsReadTimeout  = 180 * time.Second
	wsWriteTimeout = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// session ties one websocket client to the MUD for the lifetime of the
// websocket connection. The inbox carries frames decoded from the websocket,
// the outbox carries frames bound for it; both outlive any single MUD
// connection, so the client survives disconnects and reconnects.
type session struct {
	id     string // short uuid for log correlation
	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan ClientMessage
	outbox chan ServerMessage
}

func newSession() *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:     uuid.NewString()[:8],
		ctx:    ctx,
		cancel: cancel,
		inbox:  make(chan ClientMessage, inboxSize),
		outbox: make(chan ServerMessage, outboxSize),
	}
}

// run is the per-client state machine: wait idle for a reconnect request,
// bridge the MUD connection until it ends, go back to idle. There is no
// automatic reconnection; only an explicit client request starts a new
// connection. Exits when the websocket goes away.
func (s *session) run() {
	sendStatus(s.ctx, s.outbox, false, "Ready to connect")

	for {
		select {
		case msg, ok := <-s.inbox:
			if !ok {
				return
			}
			// Only a reconnect request leaves the idle state
			if msg.Type != "reconnect" {
				continue
			}
			conn := connectUpstream(s.ctx, s.outbox)
			if conn == nil {
				continue
			}
			s.bridge(conn)
		case <-s.ctx.Done():
			return
		}
	}
}

// pumpVerdict says why the bridge's dispatch loop stopped.
type pumpVerdict int

const (
	pumpEnded      pumpVerdict = iota // upstream or websocket is gone
	pumpDisconnect                    // client asked to hang up
	pumpReconnect                     // client asked for a fresh connection
)

// bridge runs one MUD connection until either side ends it. A reconnect
// request tears the current link down completely, then swaps in the new
// connection in place; the loop never recurses, so arbitrarily many
// reconnects cost constant stack.
func (s *session) bridge(conn net.Conn) {
	for {
		link := s.startLink(conn)
		verdict := s.dispatch(link)
		link.shutdown()

		switch verdict {
		case pumpReconnect:
			next := connectUpstream(s.ctx, s.outbox)
			if next == nil {
				return
			}
			conn = next
		case pumpDisconnect:
			log.Printf("SESSION %s: client disconnected from MUD", s.id)
			sendStatus(s.ctx, s.outbox, false, "Disconnected")
			return
		default:
			return
		}
	}
}

// upstreamLink owns one MUD connection and the goroutines serving it. The
// writeQ hands negotiation replies and client commands to the writer in
// order; readerDone is the reader's one-shot completion signal.
type upstreamLink struct {
	conn       net.Conn
	writeQ     chan []byte
	readerDone chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

func (s *session) startLink(conn net.Conn) *upstreamLink {
	l := &upstreamLink{
		conn:       conn,
		writeQ:     make(chan []byte, writeQueueSize),
		readerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.readUpstream(l)
	go s.writeUpstream(l)
	return l
}

// shutdown cancels the link's goroutines, closes the connection, and waits
// for the reader to let go. The wait guarantees a replacement connection is
// never live at the same time as the old one.
func (l *upstreamLink) shutdown() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.conn.Close()
	})
	<-l.readerDone
}

// dispatch is the bridge's control loop: it multiplexes client frames
// against the upstream reader's completion signal.
func (s *session) dispatch(l *upstreamLink) pumpVerdict {
	for {
		select {
		case msg, ok := <-s.inbox:
			if !ok {
				return pumpEnded
			}
			switch msg.Type {
			case "command":
				select {
				case l.writeQ <- commandBytes(msg.Data):
				case <-l.readerDone:
					return pumpEnded
				case <-s.ctx.Done():
					return pumpEnded
				}
			case "disconnect":
				return pumpDisconnect
			case "reconnect":
				return pumpReconnect
			}
			// Unknown frame types are dropped

		case <-l.readerDone:
			return pumpEnded

		case <-s.ctx.Done():
			return pumpEnded
		}
	}
}

// readUpstream reads raw MUD bytes, runs them through the telnet codec with
// the carried remainder, and fans the results out: negotiation replies to
// the write queue, display text to the outbox. Runs until the connection
// ends, then signals completion via readerDone.
func (s *session) readUpstream(l *upstreamLink) {
	defer close(l.readerDone)

	buf := make([]byte, readBufSize)
	var remainder []byte

	for {
		n, err := l.conn.Read(buf)
		if n > 0 {
			p := processTelnet(remainder, buf[:n])
			remainder = p.Remainder

			for _, resp := range p.Responses {
				select {
				case l.writeQ <- resp:
				case <-l.done:
					return
				}
			}

			if len(p.Display) > 0 {
				select {
				case s.outbox <- outputMessage(lossyString(p.Display), p.GA):
				case <-l.done:
					return
				case <-s.ctx.Done():
					return
				}
			}
		}
		if err != nil {
			select {
			case <-l.done:
				// Deliberate teardown; the bridge narrates if needed
				return
			default:
			}
			if err == io.EOF {
				log.Printf("SESSION %s: MUD connection closed by server", s.id)
			} else {
				log.Printf("SESSION %s: MUD read error: %v", s.id, err)
			}
			sendStatus(s.ctx, s.outbox, false, "Disconnected")
			return
		}
	}
}

// writeUpstream drains the write queue to the MUD connection in order.
func (s *session) writeUpstream(l *upstreamLink) {
	for {
		select {
		case <-l.done:
			return
		case data := <-l.writeQ:
			if _, err := l.conn.Write(data); err != nil {
				// The reader will observe the broken connection and narrate it
				return
			}
		}
	}
}

// commandBytes prepares a client command for the wire: DEL is rewritten to
// BS (xterm.js sends DEL for backspace; MUDs expect BS) and the MUD line
// terminator is appended.
func commandBytes(data string) []byte {
	b := make([]byte, 0, len(data)+2)
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == 127 {
			c = 8
		}
		b = append(b, c)
	}
	return append(b, '\r', '\n')
}

// readPump decodes websocket frames into the inbox until the websocket
// closes. Malformed frames are dropped; the read deadline is pushed out on
// every frame and every pong.
func (s *session) readPump(conn *websocket.Conn) {
	defer close(s.inbox)

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("SESSION %s: websocket closed unexpectedly: %v", s.id, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Unparseable client frames are dropped, session continues
			continue
		}

		select {
		case s.inbox <- msg:
		case <-s.ctx.Done():
			return
		}
	}
}

// writePump serializes outbox frames onto the websocket and keeps the
// connection alive with pings. A write failure means the client is gone, so
// it tears down the whole session.
func (s *session) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.outbox:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("SESSION %s: websocket write error: %v", s.id, err)
				}
				s.cancel()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.cancel()
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}
