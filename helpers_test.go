package main

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		bind:             "127.0.0.1",
		port:             8080,
		gracePeriod:      5 * time.Minute,
		matchTimeout:     5 * time.Minute,
		rematchCountdown: 10,
	}
}

// testClient is a connection-less client: frames accumulate in the send
// buffer where tests can inspect them, since no write pump is running.
func testClient() *client {
	return &client{
		send: make(chan any, 256),
	}
}

func frameType(msg any) string {
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Struct {
		return ""
	}
	f := v.FieldByName("Type")
	if !f.IsValid() || f.Kind() != reflect.String {
		return ""
	}
	return f.String()
}

// nextFrame pops queued frames until one of the wanted type appears.
func nextFrame(t *testing.T, c *client, want string) any {
	t.Helper()

	for {
		select {
		case msg := <-c.send:
			if frameType(msg) == want {
				return msg
			}
		default:
			t.Fatalf("no %q frame queued", want)
			return nil
		}
	}
}

// countFrames drains the client and counts frames of the wanted type.
func countFrames(c *client, want string) int {
	count := 0
	for {
		select {
		case msg := <-c.send:
			if frameType(msg) == want {
				count++
			}
		default:
			return count
		}
	}
}

func drainFrames(clients ...*client) {
	for _, c := range clients {
		for len(c.send) > 0 {
			<-c.send
		}
	}
}

func requireErrorFrame(t *testing.T, c *client, kind errKind) {
	t.Helper()

	frame := nextFrame(t, c, "error").(ErrorMessage)
	require.Equal(t, string(kind), frame.Kind)
	require.NotEmpty(t, frame.Message)
}

func createTestRoom(t *testing.T, reg *Registry, hostName string) (*Room, *Player, *client) {
	t.Helper()

	c := testClient()
	reg.createRoom(c, ClientMessage{Type: "create_room", PlayerName: hostName})

	created := nextFrame(t, c, "room_created").(RoomCreatedMessage)
	room := reg.roomByID(created.RoomID)
	require.NotNil(t, room)

	host := reg.resolve(c)
	require.NotNil(t, host)
	require.Equal(t, created.PlayerID, host.ID)

	return room, host, c
}

func joinTestRoom(t *testing.T, reg *Registry, room *Room, name string) (*Player, *client) {
	t.Helper()

	c := testClient()
	reg.joinRoom(c, ClientMessage{Type: "join_room", RoomID: room.id, PlayerName: name})

	nextFrame(t, c, "room_joined")

	p := reg.resolve(c)
	require.NotNil(t, p)

	return p, c
}

// setSecret swaps in a known secret after a match has started.
func setSecret(t *testing.T, room *Room, secret []int) {
	t.Helper()

	room.mu.Lock()
	defer room.mu.Unlock()

	require.NotNil(t, room.game)
	room.game.secret = secret
}
