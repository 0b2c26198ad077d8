// internal/game/flow.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/models"
)

// TakePile moves the whole pile into the acting player's hand. The turn does
// not move; the taker now owes a play before anyone else may act. A take that
// would leave the taker holding only 2s with no blind cards is refused, since
// no play could follow it.
func (s *State) TakePile(actorID uuid.UUID) (Outcome, error) {
	p, err := s.actingPlayer(actorID)
	if err != nil {
		return Outcome{}, err
	}
	if len(p.Blind) == 0 && allWild(p.Hand) && allWild(s.Pile) {
		return Outcome{}, fmt.Errorf("nothing playable after taking: %w", ErrInvalidCombination)
	}

	taken := s.Pile
	p.Hand = append(p.Hand, taken...)
	s.Pile = nil
	s.LastValue = 0
	s.MustThrow = true
	s.PlayerWhoTook = p.ID

	return Outcome{Action: ActionTakePile, Actor: actorID, Taken: len(taken)}, nil
}

// RevealBlind turns one blind card over into the hand. It is only allowed when
// the hand is empty or holds nothing but 2s. Revealing a 2 lets the player
// reveal again.
func (s *State) RevealBlind(actorID uuid.UUID, blindIndex int) (Outcome, error) {
	p, err := s.actingPlayer(actorID)
	if err != nil {
		return Outcome{}, err
	}
	if !p.HandAllWild() {
		return Outcome{}, ErrRevealNotAllowed
	}
	if blindIndex < 0 || blindIndex >= len(p.Blind) {
		return Outcome{}, fmt.Errorf("index %d of %d: %w", blindIndex, len(p.Blind), ErrInvalidBlindIndex)
	}

	c := p.Blind[blindIndex]
	p.Blind = without(p.Blind, map[int]bool{blindIndex: true})
	p.Hand = append(p.Hand, c)

	return Outcome{
		Action:           ActionRevealBlind,
		Actor:            actorID,
		Revealed:         &c,
		BlindIndex:       blindIndex,
		CanRevealAnother: c.IsWild(),
	}, nil
}

// PlayTwosWithBlind plays 2s from the hand together with a blind card turned
// over on the spot. The blind card sets the pile value and its power applies.
func (s *State) PlayTwosWithBlind(actorID uuid.UUID, twos []models.Card, blindIndex int) (Outcome, error) {
	p, err := s.actingPlayer(actorID)
	if err != nil {
		return Outcome{}, err
	}
	if len(twos) == 0 {
		return Outcome{}, fmt.Errorf("no 2s given: %w", ErrInvalidCombination)
	}
	for _, c := range twos {
		if !c.Valid() || !c.IsWild() {
			return Outcome{}, fmt.Errorf("%s is not a 2: %w", c, ErrInvalidCombination)
		}
	}
	if blindIndex < 0 || blindIndex >= len(p.Blind) {
		return Outcome{}, fmt.Errorf("index %d of %d: %w", blindIndex, len(p.Blind), ErrInvalidBlindIndex)
	}
	sources, err := locate(p, twos, false)
	if err != nil {
		return Outcome{}, err
	}

	blind := p.Blind[blindIndex]
	sources = append(sources, cardSource{blind: true, idx: blindIndex})
	take(p, sources)

	played := append(append([]models.Card(nil), twos...), blind)
	out := Outcome{
		Action:     ActionPlayTwosWithBlind,
		Actor:      actorID,
		Kind:       KindWild,
		Played:     played,
		Revealed:   &blind,
		BlindIndex: blindIndex,
	}
	s.finishPlay(p, played, blind.Value(), []models.Card{blind}, &out)
	return out, nil
}

func allWild(cards []models.Card) bool {
	for _, c := range cards {
		if !c.IsWild() {
			return false
		}
	}
	return true
}
