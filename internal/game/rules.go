// internal/game/rules.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/palace/internal/models"
)

// PlayKind classifies a legal play.
type PlayKind int

const (
	KindSingle PlayKind = iota + 1
	KindEqualRank
	KindWild
)

func (k PlayKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindEqualRank:
		return "equal_rank"
	case KindWild:
		return "wild"
	}
	return "invalid"
}

// Classify checks a play against the value on top of the pile and returns its
// kind together with the value the pile will carry afterwards (before any ten
// clears it).
//
// A single card is legal when it is a ten or at least lastValue; a lone 2 never
// is. Two or more cards must either all share a rank at or above lastValue, or
// contain at least one 2 and at least one non-2, in which case the ranks of the
// companions do not matter.
func Classify(cards []models.Card, lastValue int) (PlayKind, int, error) {
	if len(cards) == 0 {
		return 0, 0, fmt.Errorf("empty play: %w", ErrInvalidCombination)
	}
	for _, c := range cards {
		if !c.Valid() {
			return 0, 0, fmt.Errorf("%s: %w", c, ErrInvalidCombination)
		}
	}

	if len(cards) == 1 {
		c := cards[0]
		switch {
		case c.IsWild():
			return 0, 0, fmt.Errorf("a 2 cannot be played alone: %w", ErrInvalidCombination)
		case c.Rank == models.Ten, c.Value() >= lastValue:
			return KindSingle, c.Value(), nil
		}
		return 0, 0, fmt.Errorf("%s does not beat %d: %w", c, lastValue, ErrInvalidCombination)
	}

	wilds, highest := 0, 0
	for _, c := range cards {
		if c.IsWild() {
			wilds++
			continue
		}
		if c.Value() > highest {
			highest = c.Value()
		}
	}
	if wilds > 0 {
		if wilds == len(cards) {
			return 0, 0, fmt.Errorf("a combo needs a card other than 2: %w", ErrInvalidCombination)
		}
		return KindWild, highest, nil
	}

	v := cards[0].Value()
	for _, c := range cards[1:] {
		if c.Value() != v {
			return 0, 0, fmt.Errorf("combo ranks differ: %w", ErrInvalidCombination)
		}
	}
	if v < lastValue {
		return 0, 0, fmt.Errorf("combo of %d does not beat %d: %w", v, lastValue, ErrInvalidCombination)
	}
	return KindEqualRank, cards[len(cards)-1].Value(), nil
}
