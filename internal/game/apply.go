// internal/game/apply.go
package game

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/models"
)

// Action names, shared by outcomes, broadcast events and the action journal.
const (
	ActionSetReady          = "player_ready"
	ActionStartGame         = "game_start"
	ActionPlayCard          = "play_card"
	ActionTakePile          = "take_pile"
	ActionRevealBlind       = "reveal_blind"
	ActionPlayTwosWithBlind = "play_twos_with_blind"
)

// Outcome describes what a successful command did.
type Outcome struct {
	Action string
	Actor  uuid.UUID
	NoOp   bool

	Kind   PlayKind
	Played []models.Card
	// Cleared is set when a ten emptied the pile.
	Cleared bool
	// Drawn counts cards drawn from the deck to refill the hand.
	Drawn int
	// Taken counts cards picked up from the pile.
	Taken int

	Revealed         *models.Card
	BlindIndex       int
	CanRevealAnother bool

	Ready bool

	// Winner is set when the command ended the game.
	Winner uuid.UUID
}

// Command is a game intent from one player.
type Command interface {
	apply(s *State) (Outcome, error)
}

type SetReady struct {
	Actor uuid.UUID
	Ready bool
}

type StartGame struct {
	Actor uuid.UUID
	Rand  *rand.Rand
}

type PlayCards struct {
	Actor uuid.UUID
	Cards []models.Card
}

type TakePile struct {
	Actor uuid.UUID
}

type RevealBlind struct {
	Actor      uuid.UUID
	BlindIndex int
}

type PlayTwosWithBlind struct {
	Actor      uuid.UUID
	Twos       []models.Card
	BlindIndex int
}

func (c SetReady) apply(s *State) (Outcome, error) {
	if err := s.SetReady(c.Actor, c.Ready); err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionSetReady, Actor: c.Actor, Ready: c.Ready}, nil
}

func (c StartGame) apply(s *State) (Outcome, error) { return s.Start(c.Actor, c.Rand) }

func (c PlayCards) apply(s *State) (Outcome, error) { return s.Play(c.Actor, c.Cards) }

func (c TakePile) apply(s *State) (Outcome, error) { return s.TakePile(c.Actor) }

func (c RevealBlind) apply(s *State) (Outcome, error) { return s.RevealBlind(c.Actor, c.BlindIndex) }

func (c PlayTwosWithBlind) apply(s *State) (Outcome, error) {
	return s.PlayTwosWithBlind(c.Actor, c.Twos, c.BlindIndex)
}

// Apply runs cmd against a copy of s. On success the copy is returned as the
// new state; on error s is returned as is, so a failed command can never leave
// a half-applied change behind.
func Apply(s *State, cmd Command) (*State, Outcome, error) {
	next := s.Clone()
	out, err := cmd.apply(next)
	if err != nil {
		return s, Outcome{}, err
	}
	return next, out, nil
}
