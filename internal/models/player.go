package models

import (
	"github.com/google/uuid"
)

// Player is a seat in a room. ID is stable for the life of the room and drives
// turn order; ConnID is the connection currently attached and changes on rejoin.
type Player struct {
	ID        uuid.UUID `json:"id"`
	ConnID    uuid.UUID `json:"-"`
	Name      string    `json:"name"`
	Hand      []Card    `json:"-"`
	Blind     []Card    `json:"-"`
	Ready     bool      `json:"ready"`
	Connected bool      `json:"connected"`
}

// CardsLeft is the number of cards the player still has to get rid of.
func (p *Player) CardsLeft() int {
	return len(p.Hand) + len(p.Blind)
}

// HandAllWild reports whether the hand is empty or holds only rank-2 cards.
func (p *Player) HandAllWild() bool {
	for _, c := range p.Hand {
		if !c.IsWild() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (p *Player) Clone() *Player {
	cp := *p
	cp.Hand = append([]Card(nil), p.Hand...)
	cp.Blind = append([]Card(nil), p.Blind...)
	return &cp
}
