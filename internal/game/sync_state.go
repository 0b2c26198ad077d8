// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/models"
)

// PlayerView is the public face of one player: counts only, never card contents.
type PlayerView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	HandCount     int       `json:"handCount"`
	BlindCount    int       `json:"blindCount"`
	Ready         bool      `json:"ready"`
	Connected     bool      `json:"connected"`
	IsCreator     bool      `json:"isCreator"`
	IsCurrentTurn bool      `json:"isCurrentTurn"`
}

// View is the state of a room as one particular player is allowed to see it.
type View struct {
	RoomCode string       `json:"roomCode"`
	Phase    Phase        `json:"phase"`
	Started  bool         `json:"started"`
	Ended    bool         `json:"ended"`
	Players  []PlayerView `json:"players"`

	// You is the recipient; Hand and Ready are theirs alone.
	You   uuid.UUID     `json:"you"`
	Hand  []models.Card `json:"hand"`
	Ready bool          `json:"ready"`

	Pile               []models.Card `json:"pile"`
	LastValue          int           `json:"lastValue"`
	CurrentPlayer      uuid.UUID     `json:"currentPlayer,omitempty"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	Direction          int           `json:"direction"`
	DeckCount          int           `json:"deckCount"`
	MustThrow          bool          `json:"mustThrowAfterTaking"`
	PlayerWhoTook      *uuid.UUID    `json:"playerWhoTook,omitempty"`
	Winner             *uuid.UUID    `json:"winner,omitempty"`
}

// ViewFor builds the snapshot for the given player. Only forPlayer's own hand
// is included; everyone else is reduced to card counts. Blind cards are never
// included, not even for their owner.
func (s *State) ViewFor(forPlayer uuid.UUID) View {
	v := View{
		RoomCode:           s.RoomCode,
		Phase:              s.Phase(),
		Started:            s.Started,
		Ended:              s.Ended,
		You:                forPlayer,
		Hand:               []models.Card{},
		Pile:               append([]models.Card{}, s.Pile...),
		LastValue:          s.LastValue,
		CurrentPlayerIndex: s.CurrentPlayerIndex(),
		Direction:          s.Direction,
		DeckCount:          len(s.Deck),
		MustThrow:          s.MustThrow,
		Players:            make([]PlayerView, 0, len(s.Players)),
	}
	if s.Started {
		v.CurrentPlayer = s.Turn
	}
	if s.MustThrow {
		taker := s.PlayerWhoTook
		v.PlayerWhoTook = &taker
	}
	if s.Ended && s.Winner != uuid.Nil {
		winner := s.Winner
		v.Winner = &winner
	}

	for _, p := range s.Players {
		v.Players = append(v.Players, PlayerView{
			ID:            p.ID,
			Name:          p.Name,
			HandCount:     len(p.Hand),
			BlindCount:    len(p.Blind),
			Ready:         p.Ready,
			Connected:     p.Connected,
			IsCreator:     p.ID == s.CreatorID,
			IsCurrentTurn: s.Started && p.ID == s.Turn,
		})
		if p.ID == forPlayer {
			v.Hand = append(v.Hand, p.Hand...)
			v.Ready = p.Ready
		}
	}
	return v
}
