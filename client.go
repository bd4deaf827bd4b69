package main

import (
	"sync"

	"github.com/gorilla/websocket"
)

// client is one websocket connection. All writes go through the buffered send
// channel so room handlers never block on a slow socket; writePump owns the
// actual socket writes.
type client struct {
	conn *websocket.Conn
	send chan any

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan any, 64),
	}
}

// enqueue hands a frame to the write pump. Delivery is best-effort: a full
// buffer means the client is too slow to keep up and the frame is dropped
// rather than stalling the room.
func (c *client) enqueue(msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close shuts the send channel exactly once; writePump exits and closes the
// socket. Safe to call from multiple teardown paths.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readPump parses inbound frames and hands them to the registry until the
// connection drops. Unknown message types are ignored.
func (c *client) readPump(cfg *Config, reg *Registry) {
	defer func() {
		reg.clientClosed(c)
		c.close()
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "create_room":
			reg.createRoom(c, msg)
		case "join_room":
			reg.joinRoom(c, msg)
		case "reconnect":
			reg.reconnect(c, msg)
		case "update_settings", "start_game", "submit_guess",
			"request_attempt_details", "request_rematch",
			"request_rematch_state", "rematch_vote", "leave_room":
			reg.dispatch(c, msg)
		default:
			logf(cfg, "ROOMS: Ignoring unknown message type %q", msg.Type)
		}
	}
}
