package game

import "errors"

// Command errors. Every failure is per-command and leaves the room untouched.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidCombination = errors.New("invalid card combination")
	ErrCardNotFound       = errors.New("card not found")
	ErrInvalidBlindIndex  = errors.New("invalid blind card index")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrNotReady           = errors.New("not all players are ready")
	ErrNotCreator         = errors.New("only the room creator can start the game")
	ErrNameTaken          = errors.New("name already taken in this room")
	ErrInvalidName        = errors.New("invalid player name")
	ErrGameNotStarted     = errors.New("game has not started")
	ErrGameEnded          = errors.New("game has ended")
	ErrRevealNotAllowed   = errors.New("blind cards can only be revealed with an empty or all-2 hand")
	ErrNotInRoom          = errors.New("connection is not in a room")
	ErrAlreadyInRoom      = errors.New("connection is already in a room")
	ErrBadRequest         = errors.New("bad request")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrRoomNotFound, "RoomNotFound"},
	{ErrRoomFull, "RoomFull"},
	{ErrGameAlreadyStarted, "GameAlreadyStarted"},
	{ErrNotYourTurn, "NotYourTurn"},
	{ErrInvalidCombination, "InvalidCombination"},
	{ErrCardNotFound, "CardNotFound"},
	{ErrInvalidBlindIndex, "InvalidBlindIndex"},
	{ErrPlayerNotFound, "PlayerNotFound"},
	{ErrNotReady, "NotReady"},
	{ErrNotCreator, "NotCreator"},
	{ErrNameTaken, "NameTaken"},
	{ErrInvalidName, "InvalidName"},
	{ErrGameNotStarted, "GameNotStarted"},
	{ErrGameEnded, "GameEnded"},
	{ErrRevealNotAllowed, "RevealNotAllowed"},
	{ErrNotInRoom, "NotInRoom"},
	{ErrAlreadyInRoom, "AlreadyInRoom"},
	{ErrBadRequest, "BadRequest"},
}

// Code maps an error to the short code clients receive in an error event.
func Code(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "Internal"
}
