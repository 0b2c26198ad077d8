// internal/game/setup.go
package game

import (
	"math/rand"

	"github.com/google/uuid"
)

// Start deals a fresh game. Only the creator may start, with at least
// MinPlayers seated and everyone ready. Calling Start on a started game is a
// silent no-op.
//
// Dealing goes in roster order: HandSize cards to each hand, then BlindSize
// face-down cards to each player, then one card opens the pile.
func (s *State) Start(actorID uuid.UUID, rng *rand.Rand) (Outcome, error) {
	if s.Started {
		return Outcome{Action: ActionStartGame, Actor: actorID, NoOp: true}, nil
	}
	if s.Player(actorID) == nil {
		return Outcome{}, ErrPlayerNotFound
	}
	if actorID != s.CreatorID {
		return Outcome{}, ErrNotCreator
	}
	if len(s.Players) < MinPlayers {
		return Outcome{}, ErrNotReady
	}
	for _, p := range s.Players {
		if !p.Ready {
			return Outcome{}, ErrNotReady
		}
	}

	s.GameID = uuid.New()
	s.Deck = NewShuffledDeck(rng)
	s.Pile = nil
	s.OutOfPlay = nil
	s.LastValue = 0

	for _, p := range s.Players {
		p.Hand = s.drawFront(HandSize)
	}
	for _, p := range s.Players {
		p.Blind = s.drawFront(BlindSize)
	}
	if opening := s.drawFront(1); len(opening) == 1 {
		s.Pile = opening
		s.LastValue = opening[0].Value()
	}

	s.Started = true
	s.Direction = 1
	s.SkipNext = false
	s.MustThrow = false
	s.PlayerWhoTook = uuid.Nil
	s.Turn = s.Players[0].ID

	return Outcome{Action: ActionStartGame, Actor: actorID}, nil
}
