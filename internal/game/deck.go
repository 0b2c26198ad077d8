// internal/game/deck.go
package game

import (
	"math/rand"
	"time"

	"github.com/jason-s-yu/palace/internal/models"
)

// NewDeck returns the 52 standard cards in suit-then-rank order.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, len(models.Suits)*len(models.Ranks))
	for _, suit := range models.Suits {
		for _, rank := range models.Ranks {
			deck = append(deck, models.Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}

// NewShuffledDeck builds a deck and shuffles it with rng (Fisher-Yates).
// A nil rng falls back to a time-seeded source.
func NewShuffledDeck(rng *rand.Rand) []models.Card {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	deck := NewDeck()
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// drawFront pops up to n cards from the front of the deck.
func (s *State) drawFront(n int) []models.Card {
	if n > len(s.Deck) {
		n = len(s.Deck)
	}
	drawn := append([]models.Card(nil), s.Deck[:n]...)
	s.Deck = s.Deck[n:]
	return drawn
}
