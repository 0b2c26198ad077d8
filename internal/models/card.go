// internal/models/card.go
package models

import "fmt"

// Suit is one of the four French suits.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Suits lists every suit in deck-building order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Rank is the face of a card as sent on the wire ("2".."10", "J", "Q", "K", "A").
type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

// Ranks lists every rank from lowest to highest.
var Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

var rankValues = map[Rank]int{
	Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7, Eight: 8,
	Nine: 9, Ten: 10, Jack: 11, Queen: 12, King: 13, Ace: 14,
}

// Card is an immutable playing card. Two cards are the same card when suit and rank match.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// NewCard builds a card, rejecting unknown suits or ranks.
func NewCard(suit Suit, rank Rank) (Card, error) {
	c := Card{Suit: suit, Rank: rank}
	if !c.Valid() {
		return Card{}, fmt.Errorf("invalid card %s of %s", rank, suit)
	}
	return c, nil
}

// Value returns the numeric value used for ordering, 2 through 14 (J=11, Q=12, K=13, A=14).
// Unknown ranks are worth 0.
func (c Card) Value() int {
	return rankValues[c.Rank]
}

// Valid reports whether the card belongs to a standard 52-card deck.
func (c Card) Valid() bool {
	if _, ok := rankValues[c.Rank]; !ok {
		return false
	}
	switch c.Suit {
	case Hearts, Diamonds, Clubs, Spades:
		return true
	}
	return false
}

// IsWild reports whether the card is a rank-2 wild card.
func (c Card) IsWild() bool {
	return c.Rank == Two
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}
