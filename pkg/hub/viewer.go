package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Viewer connection limits. Dashboards only ever send control frames, so
// the read limit stays small.
const (
	writeTimeout  = 10 * time.Second
	idleTimeout   = 60 * time.Second
	pingInterval  = idleTimeout * 9 / 10
	inboundLimit  = 64 * 1024
	outboundQueue = 256
)

// viewer is one dashboard attached to a hub. The hub owns queue: it is the
// only side that closes it, which tells the writer to say goodbye.
type viewer struct {
	hub   *Hub
	conn  *websocket.Conn
	queue chan Message
}

// attach registers conn with h. If the hub already stopped, the viewer's
// queue is closed so serve returns after sending a close frame.
func attach(h *Hub, conn *websocket.Conn) *viewer {
	v := &viewer{hub: h, conn: conn, queue: make(chan Message, outboundQueue)}
	select {
	case h.register <- v:
	case <-h.done:
		close(v.queue)
	}
	return v
}

// serve runs the writer in the background and blocks in the reader until
// the dashboard goes away.
func (v *viewer) serve() {
	go v.write()
	v.watch()
	v.detach()
}

func (v *viewer) detach() {
	select {
	case v.hub.unregister <- v:
	case <-v.hub.done:
	}
	v.conn.Close()
}

// watch discards inbound data. Reading is what surfaces pongs and
// disconnects; every pong extends the idle deadline.
func (v *viewer) watch() {
	v.conn.SetReadLimit(inboundLimit)
	extend := func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	}
	extend("")
	v.conn.SetPongHandler(extend)

	for {
		_, _, err := v.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			v.hub.logger.Debug("viewer read failed", "error", err)
		}
		return
	}
}

// write is the connection's only writer.
func (v *viewer) write() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		v.conn.Close()
	}()

	for {
		var err error
		select {
		case msg, open := <-v.queue:
			if !open {
				v.send(websocket.CloseMessage, []byte{})
				return
			}
			err = v.send(frameType(msg), msg.Data)
		case <-ping.C:
			err = v.send(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

func (v *viewer) send(kind int, data []byte) error {
	v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return v.conn.WriteMessage(kind, data)
}

func frameType(m Message) int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
