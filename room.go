package main

import (
	"sync"
	"time"
)

const (
	maxPlayersPerRoom = 10
	minPlayersToStart = 2
)

const (
	maxNumDigits   = 10
	maxMaxAttempts = 100
)

func defaultSettings() Settings {
	return Settings{
		NumDigits:    4,
		MaxAttempts:  20,
		CardsEnabled: false,
	}
}

// validSettings bounds host-supplied match parameters. The secret length
// drives allocations, so it must be a small positive number.
func validSettings(s *Settings) bool {
	return s.NumDigits >= 1 && s.NumDigits <= maxNumDigits &&
		s.MaxAttempts >= 1 && s.MaxAttempts <= maxMaxAttempts
}

// Player is one participant. ID is server-generated and survives reconnects;
// c is nil while the player is in the disconnected set.
type Player struct {
	ID   string
	Name string
	room *Room
	c    *client
}

// trySend enqueues a frame for this player's connection, if any. Delivery is
// best-effort; a dead or slow connection never aborts the caller.
func (p *Player) trySend(msg any) {
	if p.c != nil {
		p.c.enqueue(msg)
	}
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{ID: p.ID, Name: p.Name}
}

// disconnectedPlayer is the reconnection bookkeeping for one absent player.
type disconnectedPlayer struct {
	player *Player
	at     time.Time
	timer  *time.Timer
}

// Room is a lobby plus at most one match. All state behind mu; every message
// handler and timer callback for this room runs under it, so mutations are
// serialized per room.
type Room struct {
	id  string
	reg *Registry
	cfg *Config

	mu           sync.Mutex
	closed       bool
	hostID       string
	players      []*Player // active, in join order; order decides host succession
	disconnected map[string]*disconnectedPlayer
	settings     Settings
	game         *GameSession
	lastActive   time.Time
}

func newRoom(reg *Registry, id string, host *Player) *Room {
	r := &Room{
		id:           id,
		reg:          reg,
		cfg:          reg.cfg,
		hostID:       host.ID,
		players:      []*Player{host},
		disconnected: make(map[string]*disconnectedPlayer),
		settings:     defaultSettings(),
		lastActive:   time.Now(),
	}
	host.room = r

	return r
}

func (r *Room) touchLocked() {
	r.lastActive = time.Now()
}

// broadcastLocked fans a frame out to every active connection, optionally
// excluding one player.
func (r *Room) broadcastLocked(msg any, except *Player) {
	for _, p := range r.players {
		if p == except {
			continue
		}
		p.trySend(msg)
	}
}

func (r *Room) rosterLocked() []PlayerInfo {
	roster := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		roster = append(roster, p.info())
	}
	return roster
}

func (r *Room) playerByIDLocked(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) removeActiveLocked(id string) {
	dst := r.players[:0]
	for _, p := range r.players {
		if p.ID == id {
			continue
		}
		dst = append(dst, p)
	}
	r.players = dst
}

// handleJoin admits a new player to the lobby.
func (r *Room) handleJoin(c *client, playerName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		c.enqueue(errorFrame(errRoomNotFound))
		return
	}

	r.touchLocked()

	if len(r.players) >= maxPlayersPerRoom {
		c.enqueue(errorFrame(errRoomFull))
		return
	}
	if r.game != nil && r.game.status == statusPlaying {
		c.enqueue(errorFrame(errMatchInProgress))
		return
	}
	if r.game != nil && r.game.status == statusFinished {
		c.enqueue(errorFrame(errMatchEnded))
		return
	}

	player := &Player{
		ID:   newPlayerID(),
		Name: playerName,
		room: r,
		c:    c,
	}
	r.players = append(r.players, player)
	r.reg.bind(c, player)

	player.trySend(RoomJoinedMessage{
		Type:     "room_joined",
		RoomID:   r.id,
		PlayerID: player.ID,
		HostID:   r.hostID,
		Players:  r.rosterLocked(),
	})
	player.trySend(SettingsUpdatedMessage{
		Type:     "settings_updated",
		Settings: r.settings,
	})
	r.broadcastLocked(PlayersUpdatedMessage{
		Type:    "players_updated",
		Players: r.rosterLocked(),
		HostID:  r.hostID,
	}, nil)

	logf(r.cfg, "ROOMS: Player %q joined %s", playerName, r.id)
}

// handleUpdateSettings applies new match settings. Host-only, and only while
// no match is running.
func (r *Room) handleUpdateSettings(p *Player, settings *Settings) {
	if settings == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.touchLocked()

	if p.ID != r.hostID {
		p.trySend(errorFrame(errNotHost))
		return
	}
	if r.game != nil && r.game.status == statusPlaying {
		p.trySend(errorFrame(errMatchInProgress))
		return
	}
	if !validSettings(settings) {
		p.trySend(errorFrame(errInvalidSettings))
		return
	}

	r.settings = *settings

	r.broadcastLocked(SettingsUpdatedMessage{
		Type:     "settings_updated",
		Settings: r.settings,
	}, nil)
}

// handleLeave removes a player on explicit request. Leaving mid-match counts
// as a forfeit.
func (r *Room) handleLeave(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.touchLocked()

	if r.game != nil && r.game.status == statusPlaying {
		if ps := r.game.players[p.ID]; ps != nil && !ps.Finished {
			ps.Finished = true
			ps.EndedAt = time.Now()

			r.broadcastLocked(PresenceMessage{
				Type:       "player_quit",
				PlayerID:   p.ID,
				PlayerName: p.Name,
			}, p)

			r.checkMatchEndLocked()
		}
	}

	r.removeActiveLocked(p.ID)
	r.reg.unbind(p.c)
	p.c = nil

	logf(r.cfg, "ROOMS: Player %q left %s", p.Name, r.id)

	r.afterRosterChangeLocked()
}

// afterRosterChangeLocked re-establishes the room invariants after the active
// player list shrank: tear the room down if it is no longer viable, otherwise
// promote a new host if needed and publish the roster.
func (r *Room) afterRosterChangeLocked() {
	if r.enforceViabilityLocked() {
		return
	}

	if len(r.players) > 0 && r.playerByIDLocked(r.hostID) == nil {
		r.hostID = r.players[0].ID
		r.broadcastLocked(HostChangedMessage{
			Type:      "host_changed",
			NewHostID: r.hostID,
		}, nil)
	}

	r.broadcastLocked(PlayersUpdatedMessage{
		Type:    "players_updated",
		Players: r.rosterLocked(),
		HostID:  r.hostID,
	}, nil)
}

// enforceViabilityLocked tears the room down once fewer than two total
// players (active plus disconnected) remain. A lone remaining player is
// evicted first; a multiplayer room cannot continue with one player.
// Returns true if the room was deleted.
func (r *Room) enforceViabilityLocked() bool {
	total := len(r.players) + len(r.disconnected)
	if total > 1 {
		return false
	}

	if len(r.players) == 1 {
		last := r.players[0]
		last.trySend(NoticeMessage{
			Type:    "room_deleted",
			Message: "Everyone else has left the room.",
		})
		logf(r.cfg, "ROOMS: Evicting last player %q from %s", last.Name, r.id)
	}

	r.teardownLocked()
	logf(r.cfg, "ROOMS: Room %s deleted (insufficient players: %d)", r.id, total)

	return true
}

// teardownLocked cancels every timer owned by the room, releases the
// connection associations, and removes the room from the registry. Idempotent.
func (r *Room) teardownLocked() {
	if r.closed {
		return
	}
	r.closed = true

	if r.game != nil {
		r.game.stopTimersLocked()
	}
	for _, d := range r.disconnected {
		d.timer.Stop()
	}
	r.disconnected = make(map[string]*disconnectedPlayer)

	for _, p := range r.players {
		r.reg.unbind(p.c)
		p.c = nil
	}
	r.players = nil

	r.reg.removeRoom(r.id)
}

// shutdown notifies every member and deletes the room. Used by the idle
// reaper; viability teardown sends its own notices.
func (r *Room) shutdown(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.broadcastLocked(NoticeMessage{
		Type:    "room_deleted",
		Message: message,
	}, nil)

	r.teardownLocked()
}

func (r *Room) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastActive
}
