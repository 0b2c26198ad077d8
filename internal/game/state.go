// internal/game/state.go
package game

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/models"
)

const (
	MinPlayers    = 2
	MaxPlayers    = 6
	HandSize      = 3
	BlindSize     = 3
	maxNameLength = 20
)

// Phase is the coarse lifecycle stage of a room's game.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseInProgress Phase = "in_progress"
	PhaseEnded      Phase = "ended"
)

// State holds everything about one room's game. It is only ever mutated by the
// command methods in this package, each of which validates fully before it
// changes anything.
type State struct {
	GameID    uuid.UUID
	RoomCode  string
	CreatorID uuid.UUID

	// Players is the turn cycle, in join order.
	Players []*models.Player

	Deck []models.Card
	Pile []models.Card
	// OutOfPlay collects cards cleared by a ten and cards held by players
	// removed mid-game.
	OutOfPlay []models.Card
	LastValue int

	// Turn is the ID of the player whose turn it is.
	Turn      uuid.UUID
	Direction int
	SkipNext  bool

	Started bool
	Ended   bool
	Winner  uuid.UUID

	MustThrow     bool
	PlayerWhoTook uuid.UUID
}

// NewState returns an empty lobby for the given room code.
func NewState(roomCode string) *State {
	return &State{
		RoomCode:  roomCode,
		Direction: 1,
	}
}

// Phase reports the lifecycle stage.
func (s *State) Phase() Phase {
	switch {
	case s.Ended:
		return PhaseEnded
	case s.Started:
		return PhaseInProgress
	default:
		return PhaseLobby
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	cp := *s
	cp.Players = make([]*models.Player, len(s.Players))
	for i, p := range s.Players {
		cp.Players[i] = p.Clone()
	}
	cp.Deck = append([]models.Card(nil), s.Deck...)
	cp.Pile = append([]models.Card(nil), s.Pile...)
	cp.OutOfPlay = append([]models.Card(nil), s.OutOfPlay...)
	return &cp
}

// Player looks up a player by ID.
func (s *State) Player(id uuid.UUID) *models.Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerByName looks up a player by display name (case-insensitive).
func (s *State) PlayerByName(name string) *models.Player {
	name = strings.TrimSpace(name)
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// PlayerByConn looks up the player attached to a connection.
func (s *State) PlayerByConn(connID uuid.UUID) *models.Player {
	for _, p := range s.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (s *State) indexOf(id uuid.UUID) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// CurrentPlayerIndex is the roster index of the player whose turn it is, or -1
// before the game starts.
func (s *State) CurrentPlayerIndex() int {
	if !s.Started {
		return -1
	}
	return s.indexOf(s.Turn)
}

// ConnectedCount counts players with a live connection.
func (s *State) ConnectedCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// ValidateName trims a display name and checks its length.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return name, nil
}

// AddPlayer seats a new connected player. The first player ever added becomes
// the creator.
func (s *State) AddPlayer(name string, connID uuid.UUID) (*models.Player, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	if s.Started {
		return nil, ErrGameAlreadyStarted
	}
	if len(s.Players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	if s.PlayerByName(name) != nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNameTaken)
	}

	p := &models.Player{
		ID:        uuid.New(),
		ConnID:    connID,
		Name:      name,
		Connected: true,
	}
	s.Players = append(s.Players, p)
	if s.CreatorID == uuid.Nil {
		s.CreatorID = p.ID
	}
	return p, nil
}

// SetReady records a lobby player's ready flag.
func (s *State) SetReady(id uuid.UUID, ready bool) error {
	if s.Started {
		return ErrGameAlreadyStarted
	}
	p := s.Player(id)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.Ready = ready
	return nil
}

// RemovePlayer takes a player out of the roster. In a running game the turn
// passes to whoever would have played next, a pending must-throw owned by the
// player is dropped, and the player's cards leave play.
func (s *State) RemovePlayer(id uuid.UUID) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	p := s.Players[idx]

	if s.Started && !s.Ended {
		if s.Turn == id {
			s.SkipNext = false
			if len(s.Players) > 1 {
				s.Turn = s.stepFrom(id, s.Direction)
			} else {
				s.Turn = uuid.Nil
			}
		}
		if s.MustThrow && s.PlayerWhoTook == id {
			s.MustThrow = false
			s.PlayerWhoTook = uuid.Nil
		}
	}
	if s.Started {
		s.OutOfPlay = append(s.OutOfPlay, p.Hand...)
		s.OutOfPlay = append(s.OutOfPlay, p.Blind...)
		p.Hand, p.Blind = nil, nil
	}

	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
	return nil
}

// Reattach swaps a player's connection and marks them connected.
func (s *State) Reattach(id, connID uuid.UUID) error {
	p := s.Player(id)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.ConnID = connID
	p.Connected = true
	return nil
}

// MarkDisconnected flags a player as gone without removing them.
func (s *State) MarkDisconnected(id uuid.UUID) error {
	p := s.Player(id)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.Connected = false
	return nil
}

// CardCount totals every card the state accounts for, including those out of play.
func (s *State) CardCount() int {
	n := len(s.Deck) + len(s.Pile) + len(s.OutOfPlay)
	for _, p := range s.Players {
		n += p.CardsLeft()
	}
	return n
}
