package main

// Wire format: every frame is a JSON object with a "type" discriminator.
// Field names are camelCase to match the game client.

// ClientMessage is the single inbound envelope; which fields are meaningful
// depends on Type.
type ClientMessage struct {
	Type           string    `json:"type"`                     // "create_room", "join_room", "update_settings", "start_game", "submit_guess", "request_attempt_details", "request_rematch", "request_rematch_state", "rematch_vote", "reconnect", "leave_room"
	PlayerName     string    `json:"playerName,omitempty"`     // create_room / join_room / reconnect
	RoomID         string    `json:"roomId,omitempty"`         // join_room / reconnect
	PlayerID       string    `json:"playerId,omitempty"`       // reconnect
	Settings       *Settings `json:"settings,omitempty"`       // update_settings
	Guess          []int     `json:"guess,omitempty"`          // submit_guess
	TargetPlayerID string    `json:"targetPlayerId,omitempty"` // request_attempt_details
	Accepted       *bool     `json:"accepted,omitempty"`       // rematch_vote
}

// Settings are per-room match parameters, host-mutable while no match is active.
type Settings struct {
	NumDigits    int  `json:"numDigits"`
	MaxAttempts  int  `json:"maxAttempts"`
	CardsEnabled bool `json:"cardsEnabled"`
}

// PlayerInfo is the public roster entry for a player.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type RoomCreatedMessage struct {
	Type     string `json:"type"` // "room_created"
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	HostID   string `json:"hostId"`
}

type RoomJoinedMessage struct {
	Type     string       `json:"type"` // "room_joined" or "room_rejoined"
	RoomID   string       `json:"roomId"`
	PlayerID string       `json:"playerId"`
	HostID   string       `json:"hostId"`
	Players  []PlayerInfo `json:"players"`
}

type PlayersUpdatedMessage struct {
	Type    string       `json:"type"` // "players_updated"
	Players []PlayerInfo `json:"players"`
	HostID  string       `json:"hostId"`
}

type HostChangedMessage struct {
	Type      string `json:"type"` // "host_changed"
	NewHostID string `json:"newHostId"`
}

type SettingsUpdatedMessage struct {
	Type     string   `json:"type"` // "settings_updated"
	Settings Settings `json:"settings"`
}

type GameStartedMessage struct {
	Type         string   `json:"type"` // "game_started"
	SharedSecret []int    `json:"sharedSecret"`
	Settings     Settings `json:"settings"`
}

// GuessResultMessage is private to the guesser.
type GuessResultMessage struct {
	Type            string `json:"type"` // "guess_result"
	Guess           []int  `json:"guess"`
	ExactMatches    int    `json:"exactMatches"`
	PositionMatches int    `json:"positionMatches"`
	Won             bool   `json:"won"`
	AttemptNumber   int    `json:"attemptNumber"`
	IsLastAttempt   bool   `json:"isLastAttempt"`
}

// PlayerAttemptMessage is the public notice sent to everyone except the guesser.
type PlayerAttemptMessage struct {
	Type            string `json:"type"` // "player_attempt"
	PlayerID        string `json:"playerId"`
	PlayerName      string `json:"playerName"`
	AttemptNumber   int    `json:"attemptNumber"`
	Guess           []int  `json:"guess"`
	ExactMatches    int    `json:"exactMatches"`
	PositionMatches int    `json:"positionMatches"`
	Won             bool   `json:"won"`
}

type MaxAttemptsReachedMessage struct {
	Type    string `json:"type"` // "max_attempts_reached"
	Message string `json:"message"`
}

// ResultEntry is one player's line in a results snapshot. Rank is only set
// for winners; durations are milliseconds.
type ResultEntry struct {
	PlayerID        string    `json:"playerId"`
	PlayerName      string    `json:"playerName"`
	Attempts        int       `json:"attempts"`
	Duration        int64     `json:"duration"`
	AttemptsDetails []Attempt `json:"attemptsDetails"`
	Rank            int       `json:"rank,omitempty"`
}

type GameResultsMessage struct {
	Type         string        `json:"type"` // "game_results"
	Winners      []ResultEntry `json:"winners"`
	Losers       []ResultEntry `json:"losers"`
	StillPlaying []ResultEntry `json:"stillPlaying"`
	SharedSecret []int         `json:"sharedSecret"`
	Reason       string        `json:"reason"`
}

// PresenceMessage covers "player_disconnected", "player_reconnected",
// "player_timeout" and "player_quit"; the payload shape is identical.
type PresenceMessage struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// GameStateMessage replays session-level state to a reconnecting player.
type GameStateMessage struct {
	Type          string   `json:"type"` // "game_state"
	SharedSecret  []int    `json:"sharedSecret"`
	Status        string   `json:"status"`
	Settings      Settings `json:"settings"`
	GameStartTime int64    `json:"gameStartTime"`
}

// PlayerGameStateMessage replays the reconnecting player's own progress.
type PlayerGameStateMessage struct {
	Type     string    `json:"type"` // "player_game_state"
	Attempts []Attempt `json:"attempts"`
	Finished bool      `json:"finished"`
	Won      bool      `json:"won"`
}

type PlayerDetailsMessage struct {
	Type       string    `json:"type"` // "player_details"
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Attempts   []Attempt `json:"attempts"`
	Duration   int64     `json:"duration"`
}

// RematchVote is one (player, accepted) pair in a vote tally.
type RematchVote struct {
	PlayerID string `json:"playerId"`
	Accepted bool   `json:"accepted"`
}

type RematchRequestedMessage struct {
	Type        string        `json:"type"` // "rematch_requested"
	Countdown   int           `json:"countdown"`
	RequestedBy string        `json:"requestedBy,omitempty"`
	Votes       []RematchVote `json:"votes"`
}

type RematchCountdownMessage struct {
	Type      string        `json:"type"` // "rematch_countdown"
	Countdown int           `json:"countdown"`
	Votes     []RematchVote `json:"votes"`
}

type RematchVoteUpdateMessage struct {
	Type     string        `json:"type"` // "rematch_vote_update"
	PlayerID string        `json:"playerId"`
	Accepted bool          `json:"accepted"`
	Votes    []RematchVote `json:"votes"`
}

type RematchStartingMessage struct {
	Type    string       `json:"type"` // "rematch_starting"
	Players []PlayerInfo `json:"players"`
}

type RematchCancelledMessage struct {
	Type    string `json:"type"` // "rematch_cancelled"
	Message string `json:"message"`
}

// NoticeMessage covers "kicked_from_room" and "room_deleted".
type NoticeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
