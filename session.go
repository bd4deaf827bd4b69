package main

import (
	"sort"
	"time"
)

type sessionStatus string

const (
	statusWaiting  sessionStatus = "waiting"
	statusPlaying  sessionStatus = "playing"
	statusFinished sessionStatus = "finished"
)

// Attempt is one scored guess, as stored and as sent on the wire.
type Attempt struct {
	Guess           []int `json:"guess"`
	ExactMatches    int   `json:"exactMatches"`
	PositionMatches int   `json:"positionMatches"`
	Timestamp       int64 `json:"timestamp"`
}

// PlayerMatchState is one player's progress within a session. Once Finished
// is set no further guesses are scored for this player.
type PlayerMatchState struct {
	PlayerID   string
	PlayerName string
	Attempts   []Attempt
	StartedAt  time.Time
	EndedAt    time.Time
	Won        bool
	Finished   bool
}

// GameSession is one match: a shared secret, a snapshot of the room settings
// taken at start, per-player progress, and the timers that bound it.
type GameSession struct {
	secret    []int
	status    sessionStatus
	settings  Settings
	players   map[string]*PlayerMatchState
	startedAt time.Time
	endedAt   time.Time

	matchTimer *time.Timer

	// lastResults is replayed verbatim to finished players who reconnect,
	// so their view never drifts from what was broadcast.
	lastResults *GameResultsMessage

	rematch rematchState
}

func (s *GameSession) stopTimersLocked() {
	if s.matchTimer != nil {
		s.matchTimer.Stop()
		s.matchTimer = nil
	}
	s.stopRematchLocked()
}

// handleStartGame begins a match. Host-only, needs at least two active
// players, and a running match may not be restarted.
func (r *Room) handleStartGame(p *Player) {
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
	if len(r.players) < minPlayersToStart {
		p.trySend(errorFrame(errNotEnoughPlayers))
		return
	}
	if r.game != nil && r.game.status == statusPlaying {
		p.trySend(errorFrame(errMatchInProgress))
		return
	}

	r.startSessionLocked()
}

// startSessionLocked replaces any previous session with a fresh one: one
// shared secret for everyone, settings snapshotted from the room, and the
// match timer armed. Also the entry point for rematches.
func (r *Room) startSessionLocked() {
	if r.game != nil {
		r.game.stopTimersLocked()
	}

	now := time.Now()
	sess := &GameSession{
		secret:    newSecret(r.settings.NumDigits),
		status:    statusPlaying,
		settings:  r.settings,
		players:   make(map[string]*PlayerMatchState, len(r.players)),
		startedAt: now,
		rematch:   newRematchState(),
	}

	for _, p := range r.players {
		sess.players[p.ID] = &PlayerMatchState{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			StartedAt:  now,
		}
	}

	sess.matchTimer = time.AfterFunc(r.cfg.matchTimeout, func() {
		r.matchTimedOut(sess)
	})

	r.game = sess

	// The secret is broadcast deliberately: the race is about scoring
	// feedback, not secrecy of the number.
	r.broadcastLocked(GameStartedMessage{
		Type:         "game_started",
		SharedSecret: sess.secret,
		Settings:     sess.settings,
	}, nil)

	logf(r.cfg, "MATCH: Started in room %s (%d digits, %d attempts, %d players)",
		r.id, sess.settings.NumDigits, sess.settings.MaxAttempts, len(sess.players))
}

// handleSubmitGuess scores one guess for one player.
func (r *Room) handleSubmitGuess(p *Player, guess []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.game == nil {
		return
	}

	r.touchLocked()

	sess := r.game
	ps := sess.players[p.ID]
	if ps == nil {
		// A reconnected player who sat out the rematch has no state in
		// the current session.
		p.trySend(errorFrame(errNotInMatch))
		return
	}

	if ps.Finished {
		p.trySend(errorFrame(errAlreadyFinished))
		return
	}
	if len(ps.Attempts) >= sess.settings.MaxAttempts {
		// Unreachable given the finish-on-last-attempt rule below, kept as
		// a safety check.
		p.trySend(errorFrame(errAttemptsExhausted))
		return
	}

	exact, position := scoreGuess(sess.secret, guess)

	now := time.Now()
	ps.Attempts = append(ps.Attempts, Attempt{
		Guess:           guess,
		ExactMatches:    exact,
		PositionMatches: position,
		Timestamp:       now.UnixMilli(),
	})

	won := position == sess.settings.NumDigits
	isLastAttempt := len(ps.Attempts) >= sess.settings.MaxAttempts

	if won {
		ps.Won = true
		ps.Finished = true
		ps.EndedAt = now
	} else if isLastAttempt {
		ps.Won = false
		ps.Finished = true
		ps.EndedAt = now
	}

	p.trySend(GuessResultMessage{
		Type:            "guess_result",
		Guess:           guess,
		ExactMatches:    exact,
		PositionMatches: position,
		Won:             won,
		AttemptNumber:   len(ps.Attempts),
		IsLastAttempt:   isLastAttempt,
	})

	r.broadcastLocked(PlayerAttemptMessage{
		Type:            "player_attempt",
		PlayerID:        p.ID,
		PlayerName:      p.Name,
		AttemptNumber:   len(ps.Attempts),
		Guess:           guess,
		ExactMatches:    exact,
		PositionMatches: position,
		Won:             won,
	}, p)

	if ps.Finished {
		if isLastAttempt && !won {
			p.trySend(MaxAttemptsReachedMessage{
				Type:    "max_attempts_reached",
				Message: "You have used all of your attempts.",
			})
		}

		r.pushResultsLocked("player_finished")
		r.checkMatchEndLocked()
	}
}

// handleAttemptDetails returns another player's attempt history on request.
func (r *Room) handleAttemptDetails(p *Player, targetPlayerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.game == nil {
		return
	}

	r.touchLocked()

	ts := r.game.players[targetPlayerID]
	if ts == nil {
		return
	}

	var duration int64
	if !ts.EndedAt.IsZero() {
		duration = ts.EndedAt.Sub(ts.StartedAt).Milliseconds()
	}

	p.trySend(PlayerDetailsMessage{
		Type:       "player_details",
		PlayerID:   ts.PlayerID,
		PlayerName: ts.PlayerName,
		Attempts:   ts.Attempts,
		Duration:   duration,
	})
}

// matchTimedOut fires when the match timer expires. Everyone still playing
// is force-finished as a loser; the status check guards against the timer
// racing its own cancellation.
func (r *Room) matchTimedOut(sess *GameSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.game != sess || sess.status != statusPlaying {
		return
	}

	logf(r.cfg, "MATCH: Timer expired in room %s", r.id)

	now := time.Now()
	for _, ps := range sess.players {
		if !ps.Finished {
			ps.Finished = true
			ps.Won = false
			ps.EndedAt = now
		}
	}

	sess.status = statusFinished
	sess.endedAt = now
	sess.matchTimer = nil

	r.pushResultsLocked("time_expired")
}

// checkMatchEndLocked finishes the session once every player is done.
func (r *Room) checkMatchEndLocked() {
	sess := r.game
	if sess == nil || sess.status != statusPlaying {
		return
	}

	for _, ps := range sess.players {
		if !ps.Finished {
			return
		}
	}

	sess.status = statusFinished
	sess.endedAt = time.Now()
	if sess.matchTimer != nil {
		sess.matchTimer.Stop()
		sess.matchTimer = nil
	}

	logf(r.cfg, "MATCH: Finished in room %s", r.id)

	r.pushResultsLocked("all_finished")
}

// computeResultsLocked partitions every player into winners, losers and
// still-playing, ranks the winners (fewest attempts, then fastest), and
// orders losers by how long they lasted, longest first.
func (r *Room) computeResultsLocked(reason string) GameResultsMessage {
	sess := r.game

	var winners, losers, stillPlaying []ResultEntry

	for _, ps := range sess.players {
		end := ps.EndedAt
		if end.IsZero() {
			end = time.Now()
		}

		entry := ResultEntry{
			PlayerID:        ps.PlayerID,
			PlayerName:      ps.PlayerName,
			Attempts:        len(ps.Attempts),
			Duration:        end.Sub(ps.StartedAt).Milliseconds(),
			AttemptsDetails: ps.Attempts,
		}

		switch {
		case ps.Won:
			winners = append(winners, entry)
		case ps.Finished:
			losers = append(losers, entry)
		default:
			stillPlaying = append(stillPlaying, entry)
		}
	}

	sort.Slice(winners, func(i, j int) bool {
		if winners[i].Attempts != winners[j].Attempts {
			return winners[i].Attempts < winners[j].Attempts
		}
		return winners[i].Duration < winners[j].Duration
	})
	for i := range winners {
		winners[i].Rank = i + 1
	}

	sort.Slice(losers, func(i, j int) bool {
		return losers[i].Duration > losers[j].Duration
	})

	return GameResultsMessage{
		Type:         "game_results",
		Winners:      winners,
		Losers:       losers,
		StillPlaying: stillPlaying,
		SharedSecret: sess.secret,
		Reason:       reason,
	}
}

// pushResultsLocked recomputes the results snapshot, caches it for
// reconnecting players, and sends it to every active player who has already
// finished. Players still guessing only ever see attempt notices.
func (r *Room) pushResultsLocked(reason string) {
	sess := r.game
	if sess == nil {
		return
	}

	results := r.computeResultsLocked(reason)
	sess.lastResults = &results

	for _, p := range r.players {
		if ps := sess.players[p.ID]; ps != nil && ps.Finished {
			p.trySend(results)
		}
	}
}
