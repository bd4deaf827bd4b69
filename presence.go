package main

import (
	"time"
)

// clientGone starts disconnect bookkeeping after a transport drop. While a
// match is unfinished the player is parked in the disconnected set with a
// grace timer; a finished match's results screen gets no reconnection
// bookkeeping, so those players are forgotten immediately.
func (r *Room) clientGone(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.touchLocked()

	r.removeActiveLocked(p.ID)
	p.c = nil

	if r.game == nil || r.game.status != statusFinished {
		playerID := p.ID
		r.disconnected[playerID] = &disconnectedPlayer{
			player: p,
			at:     time.Now(),
			timer: time.AfterFunc(r.cfg.gracePeriod, func() {
				r.graceExpired(playerID)
			}),
		}
		logf(r.cfg, "ROOMS: Player %q disconnected from %s, holding for %v", p.Name, r.id, r.cfg.gracePeriod)
	} else {
		logf(r.cfg, "ROOMS: Player %q left finished match in %s", p.Name, r.id)
	}

	r.broadcastLocked(PresenceMessage{
		Type:       "player_disconnected",
		PlayerID:   p.ID,
		PlayerName: p.Name,
	}, nil)

	r.afterRosterChangeLocked()
}

// graceExpired forgets a disconnected player who never came back. If they
// were mid-match they forfeit. The map lookup doubles as the idempotency
// guard: a reconnect deletes the entry, so a timer that already fired and
// queued behind the lock becomes a no-op.
func (r *Room) graceExpired(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	d := r.disconnected[playerID]
	if d == nil {
		return
	}
	delete(r.disconnected, playerID)

	logf(r.cfg, "ROOMS: Grace period expired for %q in %s", d.player.Name, r.id)

	if r.game != nil && r.game.status == statusPlaying {
		if ps := r.game.players[playerID]; ps != nil && !ps.Finished {
			ps.Finished = true
			ps.Won = false
			ps.EndedAt = time.Now()

			r.broadcastLocked(PresenceMessage{
				Type:       "player_timeout",
				PlayerID:   d.player.ID,
				PlayerName: d.player.Name,
			}, nil)

			r.checkMatchEndLocked()
		}
	}

	r.enforceViabilityLocked()
}

// handleReconnect restores a disconnected player on a fresh connection and
// replays enough state for the client to resume where it left off.
func (r *Room) handleReconnect(c *client, playerID, playerName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		c.enqueue(errorFrame(errRoomNotFound))
		return
	}

	r.touchLocked()

	d := r.disconnected[playerID]
	if d == nil {
		c.enqueue(errorFrame(errSessionExpired))
		return
	}

	d.timer.Stop()
	delete(r.disconnected, playerID)

	p := d.player
	if playerName != "" {
		p.Name = playerName
	}
	p.c = c
	p.room = r
	r.players = append(r.players, p)
	r.reg.bind(c, p)

	logf(r.cfg, "ROOMS: Player %q reconnected to %s", p.Name, r.id)

	p.trySend(RoomJoinedMessage{
		Type:     "room_rejoined",
		RoomID:   r.id,
		PlayerID: p.ID,
		HostID:   r.hostID,
		Players:  r.rosterLocked(),
	})

	if sess := r.game; sess != nil {
		p.trySend(GameStateMessage{
			Type:          "game_state",
			SharedSecret:  sess.secret,
			Status:        string(sess.status),
			Settings:      sess.settings,
			GameStartTime: sess.startedAt.UnixMilli(),
		})

		if ps := sess.players[p.ID]; ps != nil {
			p.trySend(PlayerGameStateMessage{
				Type:     "player_game_state",
				Attempts: ps.Attempts,
				Finished: ps.Finished,
				Won:      ps.Won,
			})

			// Finished players get the cached snapshot verbatim rather
			// than a recomputed one.
			if ps.Finished && sess.lastResults != nil {
				p.trySend(*sess.lastResults)
			}
		}
	}

	r.broadcastLocked(PresenceMessage{
		Type:       "player_reconnected",
		PlayerID:   p.ID,
		PlayerName: p.Name,
	}, p)

	r.broadcastLocked(PlayersUpdatedMessage{
		Type:    "players_updated",
		Players: r.rosterLocked(),
		HostID:  r.hostID,
	}, nil)
}
