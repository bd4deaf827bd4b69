package main

import (
	"context"
	"time"
)

// rematchQuorum is the number of accept votes needed to start a new match.
const rematchQuorum = 2

// rematchState is the post-match voting sub-state. Valid only while the
// owning session is finished.
type rematchState struct {
	requested bool
	votes     map[string]bool // playerId -> accepted
	countdown int
	cancel    context.CancelFunc
}

func newRematchState() rematchState {
	return rematchState{
		votes: make(map[string]bool),
	}
}

func (rs *rematchState) tally() []RematchVote {
	votes := make([]RematchVote, 0, len(rs.votes))
	for playerID, accepted := range rs.votes {
		votes = append(votes, RematchVote{PlayerID: playerID, Accepted: accepted})
	}
	return votes
}

func (rs *rematchState) acceptCount() int {
	count := 0
	for _, accepted := range rs.votes {
		if accepted {
			count++
		}
	}
	return count
}

// stopRematchLocked cancels a pending countdown, if any. Idempotent.
func (s *GameSession) stopRematchLocked() {
	if s.rematch.cancel != nil {
		s.rematch.cancel()
		s.rematch.cancel = nil
	}
}

// handleRequestRematch opens the voting window. The requester auto-votes
// accept and a countdown starts, broadcast every second.
func (r *Room) handleRequestRematch(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.game == nil {
		return
	}

	r.touchLocked()

	sess := r.game
	if sess.status != statusFinished {
		p.trySend(errorFrame(errMatchNotFinished))
		return
	}
	if sess.rematch.requested {
		p.trySend(errorFrame(errAlreadyRequested))
		return
	}

	sess.rematch.requested = true
	sess.rematch.votes = make(map[string]bool)
	sess.rematch.votes[p.ID] = true
	sess.rematch.countdown = r.cfg.rematchCountdown

	r.broadcastLocked(RematchRequestedMessage{
		Type:        "rematch_requested",
		Countdown:   sess.rematch.countdown,
		RequestedBy: p.Name,
		Votes:       sess.rematch.tally(),
	}, nil)

	logf(r.cfg, "MATCH: Rematch requested by %q in room %s", p.Name, r.id)

	ctx, cancel := context.WithCancel(context.Background())
	sess.rematch.cancel = cancel
	go r.runRematchCountdown(ctx, sess)
}

// runRematchCountdown ticks the vote window down once a second until it is
// resolved or cancelled.
func (r *Room) runRematchCountdown(ctx context.Context, sess *GameSession) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.rematchTick(sess) {
				return
			}
		}
	}
}

// rematchTick advances the countdown by one second. Returns true once the
// countdown is resolved or no longer applies (superseded session, cancelled
// vote, closed room).
func (r *Room) rematchTick(sess *GameSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.game != sess || !sess.rematch.requested {
		return true
	}

	sess.rematch.countdown--

	if sess.rematch.countdown <= 0 {
		r.resolveRematchLocked(sess)
		return true
	}

	r.broadcastLocked(RematchCountdownMessage{
		Type:      "rematch_countdown",
		Countdown: sess.rematch.countdown,
		Votes:     sess.rematch.tally(),
	}, nil)

	return false
}

// handleRematchVote records or overwrites one vote. Quorum fires the rematch
// immediately; there is no reason to sit out the rest of the countdown.
func (r *Room) handleRematchVote(p *Player, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.game == nil {
		return
	}

	r.touchLocked()

	sess := r.game
	if !sess.rematch.requested {
		p.trySend(errorFrame(errNoRematch))
		return
	}

	sess.rematch.votes[p.ID] = accepted

	r.broadcastLocked(RematchVoteUpdateMessage{
		Type:     "rematch_vote_update",
		PlayerID: p.ID,
		Accepted: accepted,
		Votes:    sess.rematch.tally(),
	}, nil)

	if sess.rematch.acceptCount() >= rematchQuorum {
		sess.stopRematchLocked()
		r.resolveRematchLocked(sess)
	}
}

// handleRematchState lets a player who reconnected mid-countdown resync.
// Answered only while a rematch is actually pending.
func (r *Room) handleRematchState(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.game == nil {
		return
	}

	sess := r.game
	if !sess.rematch.requested || sess.rematch.countdown <= 0 {
		return
	}

	p.trySend(RematchRequestedMessage{
		Type:      "rematch_requested",
		Countdown: sess.rematch.countdown,
		Votes:     sess.rematch.tally(),
	})
}

// resolveRematchLocked settles the vote. With quorum, every active player
// who did not accept is evicted - except the host, who is always retained
// regardless of their vote - and a brand-new session starts for the
// remaining roster. Without quorum the request resets and the session stays
// finished.
func (r *Room) resolveRematchLocked(sess *GameSession) {
	sess.rematch.requested = false

	if sess.rematch.acceptCount() < rematchQuorum {
		sess.rematch.countdown = 0

		r.broadcastLocked(RematchCancelledMessage{
			Type:    "rematch_cancelled",
			Message: "Not enough players accepted the rematch.",
		}, nil)

		logf(r.cfg, "MATCH: Rematch cancelled in room %s", r.id)
		return
	}

	evicted := make([]*Player, 0, len(r.players))
	kept := r.players[:0]
	for _, p := range r.players {
		if p.ID == r.hostID || sess.rematch.votes[p.ID] {
			kept = append(kept, p)
		} else {
			evicted = append(evicted, p)
		}
	}
	r.players = kept

	for _, p := range evicted {
		p.trySend(NoticeMessage{
			Type:    "kicked_from_room",
			Message: "You did not accept the rematch.",
		})
		delete(r.disconnected, p.ID)
		r.reg.unbind(p.c)
		p.c = nil

		logf(r.cfg, "MATCH: Evicting %q from room %s (rejected rematch)", p.Name, r.id)
	}

	r.broadcastLocked(RematchStartingMessage{
		Type:    "rematch_starting",
		Players: r.rosterLocked(),
	}, nil)

	r.startSessionLocked()
}
