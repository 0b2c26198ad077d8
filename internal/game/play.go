// internal/game/play.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/models"
)

// cardSource points at one card a play will consume.
type cardSource struct {
	blind bool
	idx   int
}

// locate finds every requested card before anything is removed. Cards are
// taken in order from the hand; once every hand card is spoken for, later cards
// may come from the blind set. A card named twice fails on its second mention.
func locate(p *models.Player, cards []models.Card, allowBlind bool) ([]cardSource, error) {
	usedHand := make(map[int]bool, len(cards))
	usedBlind := make(map[int]bool, len(cards))
	sources := make([]cardSource, 0, len(cards))

	for _, c := range cards {
		if i := findCard(p.Hand, c, usedHand); i >= 0 {
			usedHand[i] = true
			sources = append(sources, cardSource{idx: i})
			continue
		}
		if allowBlind && len(usedHand) == len(p.Hand) {
			if i := findCard(p.Blind, c, usedBlind); i >= 0 {
				usedBlind[i] = true
				sources = append(sources, cardSource{blind: true, idx: i})
				continue
			}
		}
		return nil, fmt.Errorf("%s: %w", c, ErrCardNotFound)
	}
	return sources, nil
}

func findCard(cards []models.Card, want models.Card, used map[int]bool) int {
	for i, c := range cards {
		if c == want && !used[i] {
			return i
		}
	}
	return -1
}

// take removes the located cards from the player.
func take(p *models.Player, sources []cardSource) {
	dropHand := make(map[int]bool)
	dropBlind := make(map[int]bool)
	for _, src := range sources {
		if src.blind {
			dropBlind[src.idx] = true
		} else {
			dropHand[src.idx] = true
		}
	}
	p.Hand = without(p.Hand, dropHand)
	p.Blind = without(p.Blind, dropBlind)
}

func without(cards []models.Card, drop map[int]bool) []models.Card {
	if len(drop) == 0 {
		return cards
	}
	kept := make([]models.Card, 0, len(cards)-len(drop))
	for i, c := range cards {
		if !drop[i] {
			kept = append(kept, c)
		}
	}
	return kept
}

// Play puts one or more cards from the acting player onto the pile.
func (s *State) Play(actorID uuid.UUID, cards []models.Card) (Outcome, error) {
	p, err := s.actingPlayer(actorID)
	if err != nil {
		return Outcome{}, err
	}
	kind, lastValue, err := Classify(cards, s.LastValue)
	if err != nil {
		return Outcome{}, err
	}
	sources, err := locate(p, cards, true)
	if err != nil {
		return Outcome{}, err
	}

	take(p, sources)
	out := Outcome{
		Action: ActionPlayCard,
		Actor:  actorID,
		Kind:   kind,
		Played: append([]models.Card(nil), cards...),
	}
	s.finishPlay(p, cards, lastValue, cards, &out)
	return out, nil
}

// finishPlay runs the shared post-play steps: pile update, power effects,
// hand replenishment, clearing a pending must-throw, the win check and, if
// nobody won, turn advancement.
func (s *State) finishPlay(p *models.Player, played []models.Card, lastValue int, powers []models.Card, out *Outcome) {
	s.Pile = append(s.Pile, played...)
	s.LastValue = lastValue
	out.Cleared = s.applyPowers(powers)
	out.Drawn = s.replenish(p)

	s.MustThrow = false
	s.PlayerWhoTook = uuid.Nil

	if p.CardsLeft() == 0 {
		s.Ended = true
		s.Winner = p.ID
		out.Winner = p.ID
		return
	}
	s.nextPlayer()
}
