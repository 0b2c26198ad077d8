// internal/game/turn.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/models"
)

// stepFrom walks delta seats from the player with the given ID, wrapping
// around the roster. Positions come from identity lookup so roster changes
// never shift the turn onto the wrong player.
func (s *State) stepFrom(id uuid.UUID, delta int) uuid.UUID {
	n := len(s.Players)
	if n == 0 {
		return uuid.Nil
	}
	i := s.indexOf(id)
	if i < 0 {
		i = 0
	}
	j := ((i+delta)%n + n) % n
	return s.Players[j].ID
}

// nextPlayer ends the current turn: one seat along the direction, or two when
// a skip is pending.
func (s *State) nextPlayer() {
	steps := 1
	if s.SkipNext {
		s.SkipNext = false
		steps = 2
	}
	s.Turn = s.stepFrom(s.Turn, steps*s.Direction)
}

// actingPlayer returns the player allowed to act right now if it is id.
// While a must-throw is pending only the taker may act, otherwise only the
// player whose turn it is.
func (s *State) actingPlayer(id uuid.UUID) (*models.Player, error) {
	if !s.Started {
		return nil, ErrGameNotStarted
	}
	if s.Ended {
		return nil, ErrGameEnded
	}
	p := s.Player(id)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if s.MustThrow {
		if s.PlayerWhoTook != id {
			return nil, ErrNotYourTurn
		}
		return p, nil
	}
	if s.Turn != id {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// applyPowers runs the power effects of cards in order: a ten clears the pile
// out of play, a seven steps the turn back one seat and sets a skip, an eight
// sets a skip. It reports whether the pile was cleared.
func (s *State) applyPowers(cards []models.Card) bool {
	cleared := false
	for _, c := range cards {
		switch c.Rank {
		case models.Ten:
			s.OutOfPlay = append(s.OutOfPlay, s.Pile...)
			s.Pile = nil
			s.LastValue = 0
			cleared = true
		case models.Seven:
			s.Turn = s.stepFrom(s.Turn, -s.Direction)
			s.SkipNext = true
		case models.Eight:
			s.SkipNext = true
		}
	}
	return cleared
}

// replenish tops the hand back up to HandSize from the deck while cards remain.
func (s *State) replenish(p *models.Player) int {
	need := HandSize - len(p.Hand)
	if need <= 0 {
		return 0
	}
	drawn := s.drawFront(need)
	p.Hand = append(p.Hand, drawn...)
	return len(drawn)
}
