// internal/room/session_test.go
package room

import (
	"testing"
	"time"

	"github.com/jason-s-yu/palace/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playerCount(h *harness, code string) int {
	sum, err := h.m.Summary(code)
	if err != nil {
		return 0
	}
	return sum.PlayerCount
}

func TestDisconnectKeepsSeatDuringGrace(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob", "Cat")

	h.m.Disconnect(conns[1])
	ev := findEvent(t, drain(conns[0]), EventPlayerDisconnected)
	assert.Equal(t, "Bob", ev["name"])
	assert.Equal(t, int(testGrace.Seconds()), ev["graceSeconds"])
	assert.False(t, viewOf(t, ev).Players[1].Connected)
	assert.Empty(t, drain(conns[1]), "the gone connection gets nothing")

	h.clock.Advance(testGrace - time.Second)
	assert.Equal(t, 3, playerCount(h, code))

	// A second close of the same socket changes nothing.
	h.m.Disconnect(conns[1])
	assert.Empty(t, drain(conns[0]))
}

func TestGraceExpiryRemovesPlayer(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob", "Cat")

	h.m.Disconnect(conns[1])
	drain(conns[0])
	h.clock.Advance(testGrace)

	assert.Eventually(t, func() bool { return playerCount(h, code) == 2 }, time.Second, 5*time.Millisecond)
	ev := findEvent(t, drain(conns[0]), EventPlayerLeft)
	assert.Equal(t, "grace_expired", ev["reason"])
	assert.Equal(t, "Bob", ev["name"])

	err := h.m.Rejoin(h.conn(), RejoinRequest{RoomCode: code, PlayerName: "Bob"})
	assert.ErrorIs(t, err, game.ErrPlayerNotFound)
}

func TestGraceExpiryInGamePassesTurnAndKeepsCards(t *testing.T) {
	rec := &memRecorder{}
	h := newHarness(t, func(o *Options) { o.Recorder = rec })
	code, conns := h.seat(t, "Ann", "Bob", "Cat")
	h.startGame(t, conns)
	bobID := h.room(t, code).State.Players[1].ID

	h.m.Disconnect(conns[0])
	h.clock.Advance(testGrace)
	assert.Eventually(t, func() bool { return playerCount(h, code) == 2 }, time.Second, 5*time.Millisecond)

	r := h.room(t, code)
	h.m.mu.Lock()
	assert.Equal(t, bobID, r.State.Turn)
	assert.Equal(t, 52, r.State.CardCount())
	h.m.mu.Unlock()

	records := rec.all()
	require.NotEmpty(t, records)
	assert.Equal(t, ActionPlayerRemoved, records[len(records)-1].ActionType)
}

func TestRejoinBeforeExpiryWins(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob")
	h.startGame(t, conns)
	r := h.room(t, code)
	bob := r.State.Players[1]
	oldConn := conns[1].ID

	h.m.Disconnect(conns[1])
	drain(conns[0])

	fresh := h.conn()
	require.NoError(t, h.m.Rejoin(fresh, RejoinRequest{RoomCode: code, PlayerName: "bob", PreviousID: oldConn.String()}))

	ev := findEvent(t, drain(fresh), EventRejoinedRoom)
	v := viewOf(t, ev)
	assert.Equal(t, bob.ID, ev["playerId"])
	assert.Equal(t, game.PhaseInProgress, v.Phase)
	assert.Equal(t, h.room(t, code).State.Player(bob.ID).Hand, v.Hand)
	assert.True(t, v.Players[1].Connected)

	back := findEvent(t, drain(conns[0]), EventPlayerReconnected)
	assert.Equal(t, "Bob", back["name"])

	// The old timer was cancelled; even a late firing fails the freshness check.
	h.clock.Advance(2 * testGrace)
	h.m.expire(code, bob.ID, oldConn)
	assert.Equal(t, 2, playerCount(h, code))

	require.NoError(t, h.m.TakePile(conns[0]))
	assert.NotEmpty(t, drain(fresh), "events reach the new connection")
}

func TestRejoinLobbyReflectsReadyFlag(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob")
	require.NoError(t, h.m.SetReady(conns[1], true))
	h.m.Disconnect(conns[1])

	fresh := h.conn()
	require.NoError(t, h.m.Rejoin(fresh, RejoinRequest{RoomCode: code, PlayerName: "Bob"}))
	v := viewOf(t, findEvent(t, drain(fresh), EventRejoinedRoom))
	assert.Equal(t, game.PhaseLobby, v.Phase)
	assert.True(t, v.Ready)
	assert.Len(t, v.Players, 2)
}

func TestRejoinConnectedSeatNeedsToken(t *testing.T) {
	h := newHarness(t)
	code, _ := h.seat(t, "Ann")

	cancelled := false
	bob := NewConn(64, func() { cancelled = true }, h.logger)
	require.NoError(t, h.m.JoinRoom(bob, code, "Bob"))
	token, _ := findEvent(t, drain(bob), EventRoomJoined)["token"].(string)
	require.NotEmpty(t, token)

	err := h.m.Rejoin(h.conn(), RejoinRequest{RoomCode: code, PlayerName: "Bob"})
	assert.ErrorIs(t, err, game.ErrPlayerNotFound)

	annToken := code + ":" + h.room(t, code).State.Players[0].ID.String()
	err = h.m.Rejoin(h.conn(), RejoinRequest{RoomCode: code, PlayerName: "Bob", Token: annToken})
	assert.ErrorIs(t, err, game.ErrPlayerNotFound, "another player's token is no good")

	fresh := h.conn()
	require.NoError(t, h.m.Rejoin(fresh, RejoinRequest{RoomCode: code, PlayerName: "Bob", Token: token}))
	assert.True(t, cancelled, "the stale connection is torn down")
	findEvent(t, drain(fresh), EventRejoinedRoom)

	// The stale socket closing afterwards must not mark the seat disconnected.
	h.m.Disconnect(bob)
	sum, err := h.m.Summary(code)
	require.NoError(t, err)
	assert.True(t, sum.Players[1].Connected)
}

func TestRejoinErrors(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob")

	assert.ErrorIs(t, h.m.Rejoin(h.conn(), RejoinRequest{RoomCode: "NOPE22", PlayerName: "Bob"}), game.ErrRoomNotFound)
	assert.ErrorIs(t, h.m.Rejoin(h.conn(), RejoinRequest{RoomCode: code, PlayerName: "Zed"}), game.ErrPlayerNotFound)
	assert.ErrorIs(t, h.m.Rejoin(conns[0], RejoinRequest{RoomCode: code, PlayerName: "Bob"}), game.ErrAlreadyInRoom)
}

func TestEmptyRoomIsDestroyedAfterGrace(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob")

	h.m.Disconnect(conns[0])
	h.m.Disconnect(conns[1])
	assert.Equal(t, 1, h.m.RoomCount())

	h.clock.Advance(testGrace)
	assert.Eventually(t, func() bool { return h.m.RoomCount() == 0 }, time.Second, 5*time.Millisecond)
	_, err := h.m.Summary(code)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestCreatorExpiryInLobbyLeavesRoomUnstartable(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob", "Cat")
	creator := h.room(t, code).State.CreatorID

	h.m.Disconnect(conns[0])
	h.clock.Advance(testGrace)
	assert.Eventually(t, func() bool { return playerCount(h, code) == 2 }, time.Second, 5*time.Millisecond)

	// The creator seat is never handed on, so nobody left may start.
	r := h.room(t, code)
	h.m.mu.Lock()
	assert.Equal(t, creator, r.State.CreatorID)
	assert.Nil(t, r.State.Player(creator))
	h.m.mu.Unlock()
	for _, c := range conns[1:] {
		require.NoError(t, h.m.SetReady(c, true))
	}
	assert.ErrorIs(t, h.m.StartGame(conns[1]), game.ErrNotCreator)
	assert.ErrorIs(t, h.m.StartGame(conns[2]), game.ErrNotCreator)
}
