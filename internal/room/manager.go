// internal/room/manager.go
package room

import (
	"crypto/rand"
	"io"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/game"
	"github.com/jason-s-yu/palace/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// DefaultGracePeriod is how long a disconnected player keeps their seat.
const DefaultGracePeriod = 60 * time.Second

// Tokens issues and checks the session tokens handed out on create, join and
// rejoin. A valid token lets a client take over a seat whose old connection
// has not been noticed as closed yet.
type Tokens interface {
	Issue(roomCode string, playerID uuid.UUID) (string, error)
	Verify(token string) (roomCode string, playerID uuid.UUID, err error)
}

// Options configures a Manager. Zero values pick sensible defaults.
type Options struct {
	GracePeriod time.Duration
	Clock       clockwork.Clock
	Recorder    Recorder
	Tokens      Tokens
	Logger      *logrus.Logger
	// CodeSource feeds room code generation. Defaults to crypto/rand.
	CodeSource io.Reader
	// NewRand supplies the shuffle source for each new game. Nil means a
	// time-seeded source per game.
	NewRand func() *mrand.Rand
}

// Room is one live room: the game state plus the connections seated in it.
type Room struct {
	Code      string
	State     *game.State
	CreatedAt time.Time

	// conns maps player ID to the connection currently attached.
	conns map[uuid.UUID]*Conn
	// pending maps player ID to a scheduled grace-period removal.
	pending map[uuid.UUID]*pendingRemoval

	actionIndex int
}

// Manager owns every room in the process. All commands, including grace
// timer firings, run under mu one at a time.
type Manager struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	connRoom map[uuid.UUID]string // conn ID -> room code

	grace      time.Duration
	clock      clockwork.Clock
	recorder   Recorder
	tokens     Tokens
	logger     *logrus.Logger
	codeSource io.Reader
	newRand    func() *mrand.Rand
}

// NewManager creates an empty registry.
func NewManager(opts Options) *Manager {
	m := &Manager{
		rooms:      make(map[string]*Room),
		connRoom:   make(map[uuid.UUID]string),
		grace:      opts.GracePeriod,
		clock:      opts.Clock,
		recorder:   opts.Recorder,
		tokens:     opts.Tokens,
		logger:     opts.Logger,
		codeSource: opts.CodeSource,
		newRand:    opts.NewRand,
	}
	if m.grace <= 0 {
		m.grace = DefaultGracePeriod
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.recorder == nil {
		m.recorder = NopRecorder()
	}
	if m.logger == nil {
		m.logger = logrus.StandardLogger()
	}
	if m.codeSource == nil {
		m.codeSource = rand.Reader
	}
	return m
}

// RoomCount reports how many rooms are live.
func (m *Manager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// CreateRoom opens a new room with conn's player as creator and returns its code.
func (m *Manager) CreateRoom(conn *Conn, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.connRoom[conn.ID]; ok {
		return "", game.ErrAlreadyInRoom
	}
	if _, err := game.ValidateName(name); err != nil {
		return "", err
	}
	code, err := m.newCodeLocked()
	if err != nil {
		return "", err
	}

	r := &Room{
		Code:      code,
		State:     game.NewState(code),
		CreatedAt: m.clock.Now(),
		conns:     make(map[uuid.UUID]*Conn),
		pending:   make(map[uuid.UUID]*pendingRemoval),
	}
	p, err := r.State.AddPlayer(name, conn.ID)
	if err != nil {
		return "", err
	}
	m.rooms[code] = r
	m.seatLocked(r, p.ID, conn)

	m.logger.WithFields(logrus.Fields{"room": code, "player": p.ID, "name": p.Name}).Info("room created")
	conn.Write(Event{
		"type":     EventRoomCreated,
		"roomCode": code,
		"playerId": p.ID,
		"token":    m.issueToken(code, p.ID),
		"state":    r.State.ViewFor(p.ID),
	})
	return code, nil
}

// JoinRoom seats conn's player in an existing lobby.
func (m *Manager) JoinRoom(conn *Conn, code, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.connRoom[conn.ID]; ok {
		return game.ErrAlreadyInRoom
	}
	r, ok := m.rooms[NormalizeCode(code)]
	if !ok {
		return game.ErrRoomNotFound
	}
	p, err := r.State.AddPlayer(name, conn.ID)
	if err != nil {
		return err
	}
	m.seatLocked(r, p.ID, conn)

	m.logger.WithFields(logrus.Fields{"room": r.Code, "player": p.ID, "name": p.Name}).Info("player joined")
	conn.Write(Event{
		"type":     EventRoomJoined,
		"roomCode": r.Code,
		"playerId": p.ID,
		"token":    m.issueToken(r.Code, p.ID),
		"state":    r.State.ViewFor(p.ID),
	})
	m.broadcastExcept(r, p.ID, func(viewer uuid.UUID) Event {
		return Event{
			"type":     EventPlayerJoined,
			"playerId": p.ID,
			"name":     p.Name,
			"state":    r.State.ViewFor(viewer),
		}
	})
	return nil
}

// SetReady records conn's player as ready (or not) in the lobby.
func (m *Manager) SetReady(conn *Conn, ready bool) error {
	return m.dispatch(conn, func(actor uuid.UUID) game.Command {
		return game.SetReady{Actor: actor, Ready: ready}
	})
}

// StartGame deals the room's game. Creator only.
func (m *Manager) StartGame(conn *Conn) error {
	return m.dispatch(conn, func(actor uuid.UUID) game.Command {
		var rng *mrand.Rand
		if m.newRand != nil {
			rng = m.newRand()
		}
		return game.StartGame{Actor: actor, Rand: rng}
	})
}

// PlayCards plays one card or a combo.
func (m *Manager) PlayCards(conn *Conn, cards []models.Card) error {
	return m.dispatch(conn, func(actor uuid.UUID) game.Command {
		return game.PlayCards{Actor: actor, Cards: cards}
	})
}

// TakePile picks up the table pile.
func (m *Manager) TakePile(conn *Conn) error {
	return m.dispatch(conn, func(actor uuid.UUID) game.Command {
		return game.TakePile{Actor: actor}
	})
}

// RevealBlind turns a blind card over into the hand.
func (m *Manager) RevealBlind(conn *Conn, blindIndex int) error {
	return m.dispatch(conn, func(actor uuid.UUID) game.Command {
		return game.RevealBlind{Actor: actor, BlindIndex: blindIndex}
	})
}

// PlayTwosWithBlind plays 2s from the hand together with a blind card.
func (m *Manager) PlayTwosWithBlind(conn *Conn, twos []models.Card, blindIndex int) error {
	return m.dispatch(conn, func(actor uuid.UUID) game.Command {
		return game.PlayTwosWithBlind{Actor: actor, Twos: twos, BlindIndex: blindIndex}
	})
}

// Leave removes conn's player from their room at once, without a grace period.
func (m *Manager) Leave(conn *Conn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, p, err := m.lookupLocked(conn)
	if err != nil {
		return err
	}
	delete(m.connRoom, conn.ID)
	conn.Write(Event{"type": EventPlayerLeft, "playerId": p.ID, "name": p.Name, "reason": "left"})
	m.removeLocked(r, p.ID, "left")
	return nil
}

// dispatch runs one game command for conn's player against a copy of the
// room state, swaps the copy in on success and fans out the result.
func (m *Manager) dispatch(conn *Conn, build func(actor uuid.UUID) game.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, p, err := m.lookupLocked(conn)
	if err != nil {
		return err
	}
	next, out, err := game.Apply(r.State, build(p.ID))
	if err != nil {
		m.logger.WithFields(logrus.Fields{"room": r.Code, "player": p.ID}).WithError(err).Debug("command rejected")
		return err
	}
	r.State = next
	if out.NoOp {
		return nil
	}

	m.record(r, out.Actor, out.Action, outcomePayload(out))
	m.announce(r, out)
	if out.Winner != uuid.Nil {
		m.record(r, out.Winner, ActionGameEnded, map[string]interface{}{"winner": out.Winner})
		m.logger.WithFields(logrus.Fields{"room": r.Code, "game": r.State.GameID, "winner": out.Winner}).Info("game ended")
	}
	return nil
}

// announce broadcasts the events for a successful command, each recipient
// getting their own view of the new state.
func (m *Manager) announce(r *Room, out game.Outcome) {
	s := r.State
	var kind string
	fields := Event{"playerId": out.Actor}

	switch out.Action {
	case game.ActionSetReady:
		kind = EventPlayerReady
		fields["ready"] = out.Ready
	case game.ActionStartGame:
		kind = EventGameStarted
		fields["gameId"] = s.GameID
		m.logger.WithFields(logrus.Fields{"room": r.Code, "game": s.GameID, "players": len(s.Players)}).Info("game started")
	case game.ActionPlayCard, game.ActionPlayTwosWithBlind:
		kind = EventCardPlayed
		fields["cards"] = out.Played
		fields["kind"] = out.Kind.String()
		fields["cleared"] = out.Cleared
		if out.Revealed != nil {
			fields["blindIndex"] = out.BlindIndex
			fields["revealed"] = *out.Revealed
		}
	case game.ActionTakePile:
		kind = EventTableCardsTaken
		fields["count"] = out.Taken
	case game.ActionRevealBlind:
		kind = EventBlindCardRevealed
		fields["blindIndex"] = out.BlindIndex
		fields["card"] = *out.Revealed
		fields["canRevealAnother"] = out.CanRevealAnother
	default:
		return
	}

	m.broadcast(r, func(viewer uuid.UUID) Event {
		ev := Event{"type": kind, "state": s.ViewFor(viewer)}
		for k, v := range fields {
			ev[k] = v
		}
		return ev
	})

	if out.Winner != uuid.Nil {
		winnerName := ""
		if w := s.Player(out.Winner); w != nil {
			winnerName = w.Name
		}
		m.broadcast(r, func(viewer uuid.UUID) Event {
			return Event{
				"type":       EventGameEnded,
				"winner":     out.Winner,
				"winnerName": winnerName,
				"state":      s.ViewFor(viewer),
			}
		})
	}
}

// broadcast sends build(playerID) to every connected player in r.
func (m *Manager) broadcast(r *Room, build func(viewer uuid.UUID) Event) {
	m.broadcastExcept(r, uuid.Nil, build)
}

func (m *Manager) broadcastExcept(r *Room, skip uuid.UUID, build func(viewer uuid.UUID) Event) {
	for _, p := range r.State.Players {
		if p.ID == skip || !p.Connected {
			continue
		}
		if conn, ok := r.conns[p.ID]; ok {
			conn.Write(build(p.ID))
		}
	}
}

// lookupLocked resolves the room and player for conn. Caller holds m.mu.
func (m *Manager) lookupLocked(conn *Conn) (*Room, *models.Player, error) {
	code, ok := m.connRoom[conn.ID]
	if !ok {
		return nil, nil, game.ErrNotInRoom
	}
	r, ok := m.rooms[code]
	if !ok {
		delete(m.connRoom, conn.ID)
		return nil, nil, game.ErrNotInRoom
	}
	p := r.State.PlayerByConn(conn.ID)
	if p == nil {
		return nil, nil, game.ErrPlayerNotFound
	}
	return r, p, nil
}

func (m *Manager) seatLocked(r *Room, playerID uuid.UUID, conn *Conn) {
	r.conns[playerID] = conn
	m.connRoom[conn.ID] = r.Code
}

// removeLocked takes a player out of r for good and destroys r once nobody is
// left. Caller holds m.mu.
func (m *Manager) removeLocked(r *Room, playerID uuid.UUID, reason string) {
	p := r.State.Player(playerID)
	if p == nil {
		return
	}
	name := p.Name
	inGame := r.State.Started && !r.State.Ended

	if pr, ok := r.pending[playerID]; ok {
		pr.timer.Stop()
		delete(r.pending, playerID)
	}
	if conn, ok := r.conns[playerID]; ok {
		delete(m.connRoom, conn.ID)
		delete(r.conns, playerID)
	}
	if err := r.State.RemovePlayer(playerID); err != nil {
		return
	}

	log := m.logger.WithFields(logrus.Fields{"room": r.Code, "player": playerID, "reason": reason})
	log.Info("player removed")
	if inGame {
		m.record(r, playerID, ActionPlayerRemoved, map[string]interface{}{"reason": reason})
	}

	if len(r.State.Players) == 0 {
		for id, pr := range r.pending {
			pr.timer.Stop()
			delete(r.pending, id)
		}
		delete(m.rooms, r.Code)
		log.Info("room destroyed")
		return
	}

	m.broadcast(r, func(viewer uuid.UUID) Event {
		return Event{
			"type":     EventPlayerLeft,
			"playerId": playerID,
			"name":     name,
			"reason":   reason,
			"state":    r.State.ViewFor(viewer),
		}
	})
}

func (m *Manager) issueToken(code string, playerID uuid.UUID) string {
	if m.tokens == nil {
		return ""
	}
	token, err := m.tokens.Issue(code, playerID)
	if err != nil {
		m.logger.WithFields(logrus.Fields{"room": code, "player": playerID}).WithError(err).Warn("failed to issue session token")
		return ""
	}
	return token
}

// Close stops every pending grace timer. Rooms stay in memory.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		for id, pr := range r.pending {
			pr.timer.Stop()
			delete(r.pending, id)
		}
	}
}
