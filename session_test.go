package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestMatch creates a room with a host and one guest, starts a match,
// and pins the secret so guesses score predictably.
func startTestMatch(t *testing.T, reg *Registry, secret []int) (*Room, *Player, *client, *Player, *client) {
	t.Helper()

	room, host, hostClient := createTestRoom(t, reg, "host")
	guest, guestClient := joinTestRoom(t, reg, room, "guest")
	drainFrames(hostClient, guestClient)

	room.handleStartGame(host)
	require.NotNil(t, room.game)
	require.Equal(t, statusPlaying, room.game.status)
	setSecret(t, room, secret)
	drainFrames(hostClient, guestClient)

	return room, host, hostClient, guest, guestClient
}

func TestStartGameGates(t *testing.T) {
	reg := newRegistry(testConfig())

	room, host, hostClient := createTestRoom(t, reg, "host")
	drainFrames(hostClient)

	room.handleStartGame(host)
	requireErrorFrame(t, hostClient, errNotEnoughPlayers)
	assert.Nil(t, room.game)

	guest, guestClient := joinTestRoom(t, reg, room, "guest")
	drainFrames(hostClient, guestClient)

	room.handleStartGame(guest)
	requireErrorFrame(t, guestClient, errNotHost)
	assert.Nil(t, room.game)

	room.handleStartGame(host)
	require.NotNil(t, room.game)
	drainFrames(hostClient, guestClient)

	room.handleStartGame(host)
	requireErrorFrame(t, hostClient, errMatchInProgress)
}

func TestGameStartedBroadcast(t *testing.T) {
	reg := newRegistry(testConfig())

	room, host, hostClient := createTestRoom(t, reg, "host")
	_, guestClient := joinTestRoom(t, reg, room, "guest")
	drainFrames(hostClient, guestClient)

	room.handleStartGame(host)

	started := nextFrame(t, hostClient, "game_started").(GameStartedMessage)
	assert.Len(t, started.SharedSecret, defaultSettings().NumDigits)
	assert.Equal(t, defaultSettings(), started.Settings)
	assert.Equal(t, started.SharedSecret, room.game.secret)

	// Everyone races against the same secret.
	guestStarted := nextFrame(t, guestClient, "game_started").(GameStartedMessage)
	assert.Equal(t, started.SharedSecret, guestStarted.SharedSecret)
}

func TestSubmitGuessScoresAndBroadcasts(t *testing.T) {
	reg := newRegistry(testConfig())
	_, host, hostClient, _, guestClient := startTestMatch(t, reg, []int{1, 2, 3, 4})

	host.room.handleSubmitGuess(host, []int{4, 3, 2, 2})

	result := nextFrame(t, hostClient, "guess_result").(GuessResultMessage)
	assert.Equal(t, 3, result.ExactMatches)
	assert.Equal(t, 0, result.PositionMatches)
	assert.False(t, result.Won)
	assert.Equal(t, 1, result.AttemptNumber)
	assert.False(t, result.IsLastAttempt)

	// Opponents see the full guess, not just that an attempt happened.
	attempt := nextFrame(t, guestClient, "player_attempt").(PlayerAttemptMessage)
	assert.Equal(t, host.ID, attempt.PlayerID)
	assert.Equal(t, []int{4, 3, 2, 2}, attempt.Guess)
	assert.Equal(t, 3, attempt.ExactMatches)
	assert.False(t, attempt.Won)

	// The guesser is excluded from the public broadcast.
	assert.Equal(t, 0, countFrames(hostClient, "player_attempt"))
}

func TestWinningGuess(t *testing.T) {
	reg := newRegistry(testConfig())
	room, host, hostClient, _, guestClient := startTestMatch(t, reg, []int{1, 2, 3, 4})

	room.handleSubmitGuess(host, []int{1, 2, 3, 4})

	result := nextFrame(t, hostClient, "guess_result").(GuessResultMessage)
	assert.True(t, result.Won)
	assert.Equal(t, 4, result.ExactMatches)

	ps := room.game.players[host.ID]
	assert.True(t, ps.Won)
	assert.True(t, ps.Finished)

	// One player finishing does not end the match.
	assert.Equal(t, statusPlaying, room.game.status)

	// The finisher gets a results snapshot while the opponent keeps playing.
	results := nextFrame(t, hostClient, "game_results").(GameResultsMessage)
	assert.Equal(t, "player_finished", results.Reason)
	require.Len(t, results.Winners, 1)
	assert.Equal(t, 1, results.Winners[0].Rank)
	require.Len(t, results.StillPlaying, 1)
	assert.Equal(t, 0, countFrames(guestClient, "game_results"))

	// Further guesses from a finished player are rejected.
	room.handleSubmitGuess(host, []int{1, 2, 3, 4})
	requireErrorFrame(t, hostClient, errAlreadyFinished)
}

func TestMaxAttemptsFinishesAsLoser(t *testing.T) {
	cfg := testConfig()
	reg := newRegistry(cfg)

	room, host, hostClient := createTestRoom(t, reg, "host")
	_, guestClient := joinTestRoom(t, reg, room, "guest")
	drainFrames(hostClient, guestClient)

	room.handleUpdateSettings(host, &Settings{NumDigits: 4, MaxAttempts: 2})
	room.handleStartGame(host)
	setSecret(t, room, []int{1, 2, 3, 4})
	drainFrames(hostClient, guestClient)

	room.handleSubmitGuess(host, []int{5, 5, 5, 5})
	drainFrames(hostClient)

	room.handleSubmitGuess(host, []int{6, 6, 6, 6})

	result := nextFrame(t, hostClient, "guess_result").(GuessResultMessage)
	assert.True(t, result.IsLastAttempt)
	assert.False(t, result.Won)

	nextFrame(t, hostClient, "max_attempts_reached")

	ps := room.game.players[host.ID]
	assert.True(t, ps.Finished)
	assert.False(t, ps.Won)
}

func TestMatchEndsWhenAllFinish(t *testing.T) {
	reg := newRegistry(testConfig())
	room, host, hostClient, guest, guestClient := startTestMatch(t, reg, []int{1, 2, 3, 4})

	room.handleSubmitGuess(host, []int{5, 6, 7, 8})
	room.handleSubmitGuess(host, []int{1, 2, 3, 4})
	drainFrames(hostClient, guestClient)

	room.handleSubmitGuess(guest, []int{1, 2, 3, 4})

	assert.Equal(t, statusFinished, room.game.status)
	assert.Nil(t, room.game.matchTimer)

	// The finishing guess produces two snapshots back to back: one for the
	// player finishing, one for the match completing.
	first := nextFrame(t, guestClient, "game_results").(GameResultsMessage)
	assert.Equal(t, "player_finished", first.Reason)
	results := nextFrame(t, guestClient, "game_results").(GameResultsMessage)
	assert.Equal(t, "all_finished", results.Reason)
	assert.Equal(t, []int{1, 2, 3, 4}, results.SharedSecret)
	assert.Empty(t, results.StillPlaying)

	// Fewest attempts wins regardless of finish time.
	require.Len(t, results.Winners, 2)
	assert.Equal(t, guest.ID, results.Winners[0].PlayerID)
	assert.Equal(t, 1, results.Winners[0].Rank)
	assert.Equal(t, 1, results.Winners[0].Attempts)
	assert.Equal(t, host.ID, results.Winners[1].PlayerID)
	assert.Equal(t, 2, results.Winners[1].Rank)

	// The already-finished host gets both snapshots too.
	assert.Equal(t, 2, countFrames(hostClient, "game_results"))
}

func TestMatchTimerExpiry(t *testing.T) {
	reg := newRegistry(testConfig())
	room, host, hostClient, guest, guestClient := startTestMatch(t, reg, []int{1, 2, 3, 4})

	room.handleSubmitGuess(host, []int{1, 2, 3, 4})
	drainFrames(hostClient, guestClient)

	room.matchTimedOut(room.game)

	assert.Equal(t, statusFinished, room.game.status)

	results := nextFrame(t, guestClient, "game_results").(GameResultsMessage)
	assert.Equal(t, "time_expired", results.Reason)
	require.Len(t, results.Winners, 1)
	assert.Equal(t, host.ID, results.Winners[0].PlayerID)
	require.Len(t, results.Losers, 1)
	assert.Equal(t, guest.ID, results.Losers[0].PlayerID)
	assert.True(t, room.game.players[guest.ID].Finished)
	assert.False(t, room.game.players[guest.ID].Won)

	// A stale timer firing again changes nothing.
	sess := room.game
	drainFrames(hostClient, guestClient)
	room.matchTimedOut(sess)
	assert.Equal(t, 0, countFrames(hostClient, "game_results"))
	assert.Equal(t, 0, countFrames(guestClient, "game_results"))
}

func TestAttemptDetails(t *testing.T) {
	reg := newRegistry(testConfig())
	room, host, hostClient, guest, guestClient := startTestMatch(t, reg, []int{1, 2, 3, 4})

	room.handleSubmitGuess(host, []int{4, 3, 2, 2})
	drainFrames(hostClient, guestClient)

	room.handleAttemptDetails(guest, host.ID)

	details := nextFrame(t, guestClient, "player_details").(PlayerDetailsMessage)
	assert.Equal(t, host.ID, details.PlayerID)
	assert.Equal(t, "host", details.PlayerName)
	require.Len(t, details.Attempts, 1)
	assert.Equal(t, []int{4, 3, 2, 2}, details.Attempts[0].Guess)
	assert.Equal(t, int64(0), details.Duration)

	// Unknown target is silently ignored.
	room.handleAttemptDetails(guest, "nobody")
	assert.Equal(t, 0, countFrames(guestClient, "player_details"))
}

// TestFullMatchScenario plays a complete two-player match end to end:
// settings change, a race with interleaved guesses, a winner on attempt
// count, and a loser who runs out of attempts.
func TestFullMatchScenario(t *testing.T) {
	reg := newRegistry(testConfig())

	room, host, hostClient := createTestRoom(t, reg, "ana")
	guest, guestClient := joinTestRoom(t, reg, room, "ben")
	drainFrames(hostClient, guestClient)

	room.handleUpdateSettings(host, &Settings{NumDigits: 4, MaxAttempts: 8})
	room.handleStartGame(host)
	setSecret(t, room, []int{3, 1, 4, 1})
	drainFrames(hostClient, guestClient)

	room.handleSubmitGuess(host, []int{1, 1, 4, 3})
	result := nextFrame(t, hostClient, "guess_result").(GuessResultMessage)
	assert.Equal(t, 4, result.ExactMatches)
	assert.Equal(t, 2, result.PositionMatches)

	room.handleSubmitGuess(guest, []int{3, 1, 1, 4})
	result = nextFrame(t, guestClient, "guess_result").(GuessResultMessage)
	assert.Equal(t, 4, result.ExactMatches)
	assert.Equal(t, 2, result.PositionMatches)

	room.handleSubmitGuess(host, []int{3, 1, 4, 1})
	result = nextFrame(t, hostClient, "guess_result").(GuessResultMessage)
	assert.True(t, result.Won)
	assert.Equal(t, 2, result.AttemptNumber)

	drainFrames(hostClient, guestClient)
	for i := 0; i < 7; i++ {
		room.handleSubmitGuess(guest, []int{9, 9, 9, 9})
	}
	nextFrame(t, guestClient, "max_attempts_reached")

	assert.Equal(t, statusFinished, room.game.status)

	results := nextFrame(t, guestClient, "game_results").(GameResultsMessage)
	require.Len(t, results.Winners, 1)
	assert.Equal(t, host.ID, results.Winners[0].PlayerID)
	assert.Equal(t, 2, results.Winners[0].Attempts)
	require.Len(t, results.Losers, 1)
	assert.Equal(t, guest.ID, results.Losers[0].PlayerID)
	assert.Equal(t, 8, results.Losers[0].Attempts)
	require.Len(t, results.Winners[0].AttemptsDetails, 2)
}
