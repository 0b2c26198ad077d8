// internal/room/manager_test.go
package room

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/game"
	"github.com/jason-s-yu/palace/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGrace = 30 * time.Second

type fakeTokens struct{}

func (fakeTokens) Issue(code string, playerID uuid.UUID) (string, error) {
	return code + ":" + playerID.String(), nil
}

func (fakeTokens) Verify(token string) (string, uuid.UUID, error) {
	code, id, ok := strings.Cut(token, ":")
	if !ok {
		return "", uuid.Nil, errors.New("malformed token")
	}
	playerID, err := uuid.Parse(id)
	return code, playerID, err
}

type memRecorder struct {
	mu      sync.Mutex
	records []models.ActionRecord
}

func (r *memRecorder) Record(rec models.ActionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *memRecorder) all() []models.ActionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ActionRecord(nil), r.records...)
}

type harness struct {
	m      *Manager
	clock  *clockwork.FakeClock
	logger *logrus.Logger
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := clockwork.NewFakeClock()
	opts := Options{
		GracePeriod: testGrace,
		Clock:       clock,
		Tokens:      fakeTokens{},
		Logger:      logger,
		NewRand:     func() *rand.Rand { return rand.New(rand.NewSource(1)) },
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	m := NewManager(opts)
	t.Cleanup(m.Close)
	return &harness{m: m, clock: clock, logger: logger}
}

func (h *harness) conn() *Conn {
	return NewConn(256, nil, h.logger)
}

// seat creates a room for names[0] and joins the rest, draining all events.
func (h *harness) seat(t *testing.T, names ...string) (string, []*Conn) {
	t.Helper()
	conns := make([]*Conn, len(names))
	conns[0] = h.conn()
	code, err := h.m.CreateRoom(conns[0], names[0])
	require.NoError(t, err)
	for i, name := range names[1:] {
		conns[i+1] = h.conn()
		require.NoError(t, h.m.JoinRoom(conns[i+1], code, name))
	}
	for _, c := range conns {
		drain(c)
	}
	return code, conns
}

// startGame readies everyone and starts with the creator.
func (h *harness) startGame(t *testing.T, conns []*Conn) {
	t.Helper()
	for _, c := range conns {
		require.NoError(t, h.m.SetReady(c, true))
	}
	require.NoError(t, h.m.StartGame(conns[0]))
	for _, c := range conns {
		drain(c)
	}
}

func (h *harness) room(t *testing.T, code string) *Room {
	t.Helper()
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	r, ok := h.m.rooms[code]
	require.True(t, ok, "room %s should exist", code)
	return r
}

func drain(c *Conn) []Event {
	var events []Event
	for {
		select {
		case ev := <-c.OutChan:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func findEvent(t *testing.T, events []Event, kind string) Event {
	t.Helper()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type() == kind {
			return events[i]
		}
	}
	require.Failf(t, "event not found", "no %q event among %d events", kind, len(events))
	return nil
}

func viewOf(t *testing.T, ev Event) game.View {
	t.Helper()
	v, ok := ev["state"].(game.View)
	require.True(t, ok, "event %q carries no state", ev.Type())
	return v
}

func TestCreateRoom(t *testing.T) {
	h := newHarness(t)
	c := h.conn()

	code, err := h.m.CreateRoom(c, "  Ann ")
	require.NoError(t, err)
	assert.Len(t, code, codeLength)
	for _, ch := range code {
		assert.Contains(t, codeAlphabet, string(ch))
	}

	ev := findEvent(t, drain(c), EventRoomCreated)
	assert.Equal(t, code, ev["roomCode"])
	v := viewOf(t, ev)
	require.Len(t, v.Players, 1)
	assert.Equal(t, "Ann", v.Players[0].Name)
	assert.True(t, v.Players[0].IsCreator)
	assert.NotEmpty(t, ev["token"])

	_, err = h.m.CreateRoom(c, "Ann")
	assert.ErrorIs(t, err, game.ErrAlreadyInRoom)

	_, err = h.m.CreateRoom(h.conn(), "")
	assert.ErrorIs(t, err, game.ErrInvalidName)
	assert.Equal(t, 1, h.m.RoomCount())
}

func TestRoomCodeCollisionRetries(t *testing.T) {
	src := bytes.NewReader(append(append(make([]byte, 6), make([]byte, 6)...), bytes.Repeat([]byte{1}, 6)...))
	h := newHarness(t, func(o *Options) { o.CodeSource = src })

	first, err := h.m.CreateRoom(h.conn(), "Ann")
	require.NoError(t, err)
	second, err := h.m.CreateRoom(h.conn(), "Bob")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first)
	assert.Equal(t, "BBBBBB", second)
}

func TestJoinRoom(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann")
	bob := h.conn()

	require.NoError(t, h.m.JoinRoom(bob, strings.ToLower(code), "Bob"))
	joined := findEvent(t, drain(bob), EventRoomJoined)
	assert.Equal(t, code, joined["roomCode"])
	assert.Len(t, viewOf(t, joined).Players, 2)

	announced := findEvent(t, drain(conns[0]), EventPlayerJoined)
	assert.Equal(t, "Bob", announced["name"])

	assert.ErrorIs(t, h.m.JoinRoom(h.conn(), "ZZZZZZ", "Cat"), game.ErrRoomNotFound)
	assert.ErrorIs(t, h.m.JoinRoom(h.conn(), code, "BOB"), game.ErrNameTaken)
	assert.ErrorIs(t, h.m.JoinRoom(bob, code, "Cat"), game.ErrAlreadyInRoom)
}

func TestJoinRoomLimits(t *testing.T) {
	h := newHarness(t)
	code, _ := h.seat(t, "A", "B", "C", "D", "E", "F")
	assert.ErrorIs(t, h.m.JoinRoom(h.conn(), code, "G"), game.ErrRoomFull)

	code2, conns := h.seat(t, "Ann", "Bob")
	h.startGame(t, conns)
	assert.ErrorIs(t, h.m.JoinRoom(h.conn(), code2, "Cat"), game.ErrGameAlreadyStarted)
}

func TestCommandsNeedARoom(t *testing.T) {
	h := newHarness(t)
	c := h.conn()
	assert.ErrorIs(t, h.m.SetReady(c, true), game.ErrNotInRoom)
	assert.ErrorIs(t, h.m.StartGame(c), game.ErrNotInRoom)
	assert.ErrorIs(t, h.m.TakePile(c), game.ErrNotInRoom)
	assert.ErrorIs(t, h.m.Leave(c), game.ErrNotInRoom)
	assert.Empty(t, drain(c))
}

func TestReadyAndStartBroadcastPrivateViews(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob", "Cat")

	require.NoError(t, h.m.SetReady(conns[1], true))
	for _, c := range conns {
		ev := findEvent(t, drain(c), EventPlayerReady)
		assert.Equal(t, true, ev["ready"])
	}

	assert.ErrorIs(t, h.m.StartGame(conns[1]), game.ErrNotCreator)
	assert.ErrorIs(t, h.m.StartGame(conns[0]), game.ErrNotReady)
	for _, c := range conns {
		assert.Empty(t, drain(c), "rejected commands broadcast nothing")
	}

	require.NoError(t, h.m.SetReady(conns[0], true))
	require.NoError(t, h.m.SetReady(conns[2], true))
	require.NoError(t, h.m.StartGame(conns[0]))

	r := h.room(t, code)
	for i, c := range conns {
		ev := findEvent(t, drain(c), EventGameStarted)
		v := viewOf(t, ev)
		assert.Equal(t, r.State.Players[i].Hand, v.Hand)
		assert.Equal(t, r.State.Players[0].ID, v.CurrentPlayer)
		assert.Equal(t, r.State.GameID, ev["gameId"])
		for _, pv := range v.Players {
			assert.Equal(t, game.HandSize, pv.HandCount)
			assert.Equal(t, game.BlindSize, pv.BlindCount)
		}
	}

	require.NoError(t, h.m.StartGame(conns[0]))
	assert.Empty(t, drain(conns[0]), "a second start is silent")
}

func TestRejectedPlayLeavesStateAlone(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob")
	h.startGame(t, conns)

	r := h.room(t, code)
	before := r.State
	err := h.m.PlayCards(conns[1], r.State.Players[1].Hand[:1])
	assert.ErrorIs(t, err, game.ErrNotYourTurn)
	assert.Same(t, before, h.room(t, code).State)
	assert.Empty(t, drain(conns[0]))
}

func TestTakeThenThrow(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob")
	h.startGame(t, conns)

	require.NoError(t, h.m.TakePile(conns[0]))
	for _, c := range conns {
		ev := findEvent(t, drain(c), EventTableCardsTaken)
		assert.Equal(t, 1, ev["count"])
		v := viewOf(t, ev)
		assert.True(t, v.MustThrow)
	}

	assert.ErrorIs(t, h.m.TakePile(conns[1]), game.ErrNotYourTurn)

	r := h.room(t, code)
	var throw models.Card
	for _, c := range r.State.Players[0].Hand {
		if !c.IsWild() {
			throw = c
			break
		}
	}
	require.True(t, throw.Valid())
	require.NoError(t, h.m.PlayCards(conns[0], []models.Card{throw}))

	ev := findEvent(t, drain(conns[1]), EventCardPlayed)
	assert.Equal(t, []models.Card{throw}, ev["cards"])
	v := viewOf(t, ev)
	assert.False(t, v.MustThrow)
	assert.Equal(t, h.room(t, code).State.Players[1].ID, v.CurrentPlayer)
}

func TestLeaveDuringGamePassesTurn(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob", "Cat")
	h.startGame(t, conns)
	bobID := h.room(t, code).State.Players[1].ID

	require.NoError(t, h.m.Leave(conns[0]))
	assert.Equal(t, "left", findEvent(t, drain(conns[0]), EventPlayerLeft)["reason"])

	ev := findEvent(t, drain(conns[1]), EventPlayerLeft)
	v := viewOf(t, ev)
	assert.Equal(t, bobID, v.CurrentPlayer)
	assert.Len(t, v.Players, 2)

	r := h.room(t, code)
	assert.Equal(t, 52, r.State.CardCount())
	assert.ErrorIs(t, h.m.TakePile(conns[0]), game.ErrNotInRoom)
}

func TestLastLeaveDestroysRoom(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob")
	require.NoError(t, h.m.Leave(conns[1]))
	require.NoError(t, h.m.Leave(conns[0]))

	assert.Equal(t, 0, h.m.RoomCount())
	_, err := h.m.Summary(code)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestSummary(t *testing.T) {
	h := newHarness(t)
	code, conns := h.seat(t, "Ann", "Bob")
	require.NoError(t, h.m.SetReady(conns[1], true))

	sum, err := h.m.Summary(strings.ToLower(code))
	require.NoError(t, err)
	assert.Equal(t, code, sum.Code)
	assert.Equal(t, game.PhaseLobby, sum.Phase)
	assert.Equal(t, 2, sum.PlayerCount)
	assert.Equal(t, game.MaxPlayers, sum.Capacity)
	assert.Equal(t, []SummaryPlayer{
		{Name: "Ann", Ready: false, Connected: true},
		{Name: "Bob", Ready: true, Connected: true},
	}, sum.Players)
}

func TestJournalRecordsGameActions(t *testing.T) {
	rec := &memRecorder{}
	h := newHarness(t, func(o *Options) { o.Recorder = rec })
	code, conns := h.seat(t, "Ann", "Bob")
	h.startGame(t, conns)
	require.NoError(t, h.m.TakePile(conns[0]))

	records := rec.all()
	require.Len(t, records, 2, "lobby actions are not journaled")
	gameID := h.room(t, code).State.GameID
	assert.Equal(t, game.ActionStartGame, records[0].ActionType)
	assert.Equal(t, game.ActionTakePile, records[1].ActionType)
	for i, r := range records {
		assert.Equal(t, i, r.ActionIndex)
		assert.Equal(t, gameID, r.GameID)
		assert.Equal(t, code, r.RoomCode)
		assert.Equal(t, h.clock.Now().UnixMilli(), r.Timestamp)
	}
	assert.Equal(t, 1, records[1].Payload["count"])
}
