package main

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns the process-wide room map and the connection-to-player
// association. Its mutex guards only those maps; room state is guarded by
// each room's own mutex, and the registry lock is never taken around a room
// lock (rooms may call back into the registry while holding theirs).
type Registry struct {
	cfg *Config

	mu    sync.Mutex
	rooms map[string]*Room
	conns map[*client]*Player
}

func newRegistry(cfg *Config) *Registry {
	return &Registry{
		cfg:   cfg,
		rooms: make(map[string]*Room),
		conns: make(map[*client]*Player),
	}
}

func newPlayerID() string {
	return uuid.NewString()
}

// newRoomID generates a short human-typeable room code and ensures it does
// not collide with a live room. Uniqueness beyond that is probabilistic.
func (reg *Registry) newRoomID() string {
	const letters = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	for {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 6)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		reg.mu.Lock()
		_, exists := reg.rooms[id]
		reg.mu.Unlock()

		if !exists {
			return id
		}
	}
}

func (reg *Registry) roomByID(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.rooms[strings.ToUpper(id)]
}

func (reg *Registry) removeRoom(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.rooms, id)
}

func (reg *Registry) bind(c *client, p *Player) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.conns[c] = p
}

func (reg *Registry) unbind(c *client) {
	if c == nil {
		return
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.conns, c)
}

func (reg *Registry) resolve(c *client) *Player {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.conns[c]
}

func (reg *Registry) roomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.rooms)
}

// createRoom registers a fresh one-player room; the creator becomes host.
func (reg *Registry) createRoom(c *client, msg ClientMessage) {
	host := &Player{
		ID:   newPlayerID(),
		Name: msg.PlayerName,
		c:    c,
	}
	room := newRoom(reg, reg.newRoomID(), host)

	reg.mu.Lock()
	reg.rooms[room.id] = room
	reg.conns[c] = host
	reg.mu.Unlock()

	host.trySend(RoomCreatedMessage{
		Type:     "room_created",
		RoomID:   room.id,
		PlayerID: host.ID,
		HostID:   host.ID,
	})

	logf(reg.cfg, "ROOMS: Player %q created room %s", host.Name, room.id)
}

func (reg *Registry) joinRoom(c *client, msg ClientMessage) {
	room := reg.roomByID(msg.RoomID)
	if room == nil {
		c.enqueue(errorFrame(errRoomNotFound))
		return
	}

	room.handleJoin(c, msg.PlayerName)
}

func (reg *Registry) reconnect(c *client, msg ClientMessage) {
	room := reg.roomByID(msg.RoomID)
	if room == nil {
		c.enqueue(errorFrame(errRoomNotFound))
		return
	}

	room.handleReconnect(c, msg.PlayerID, msg.PlayerName)
}

// dispatch routes an in-room message to the sender's room. Messages from
// connections with no player association are dropped.
func (reg *Registry) dispatch(c *client, msg ClientMessage) {
	p := reg.resolve(c)
	if p == nil || p.room == nil {
		return
	}

	switch msg.Type {
	case "update_settings":
		p.room.handleUpdateSettings(p, msg.Settings)
	case "start_game":
		p.room.handleStartGame(p)
	case "submit_guess":
		p.room.handleSubmitGuess(p, msg.Guess)
	case "request_attempt_details":
		p.room.handleAttemptDetails(p, msg.TargetPlayerID)
	case "request_rematch":
		p.room.handleRequestRematch(p)
	case "request_rematch_state":
		p.room.handleRematchState(p)
	case "rematch_vote":
		accepted := msg.Accepted != nil && *msg.Accepted
		p.room.handleRematchVote(p, accepted)
	case "leave_room":
		p.room.handleLeave(p)
	}
}

// clientClosed reacts to a transport drop: the association is removed and
// the player's room starts disconnect bookkeeping.
func (reg *Registry) clientClosed(c *client) {
	reg.mu.Lock()
	p := reg.conns[c]
	delete(reg.conns, c)
	reg.mu.Unlock()

	if p == nil || p.room == nil {
		return
	}

	p.room.clientGone(p)
}

// reaperLoop periodically deletes rooms that have been idle longer than the
// configured room timeout.
func (reg *Registry) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(reg.cfg.roomTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-reg.cfg.roomTimeout)

			reg.mu.Lock()
			idle := make([]*Room, 0, len(reg.rooms))
			for _, room := range reg.rooms {
				idle = append(idle, room)
			}
			reg.mu.Unlock()

			for _, room := range idle {
				if room.idleSince().Before(cutoff) {
					logf(reg.cfg, "ROOMS: Reaping idle room %s", room.id)
					room.shutdown("The room was closed due to inactivity.")
				}
			}
		}
	}
}
