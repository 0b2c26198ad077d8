// internal/room/events.go
package room

// Server to client event names.
const (
	EventRoomCreated        = "roomCreated"
	EventRoomJoined         = "roomJoined"
	EventPlayerJoined       = "playerJoined"
	EventPlayerLeft         = "playerLeft"
	EventPlayerReady        = "playerReady"
	EventGameStarted        = "gameStarted"
	EventCardPlayed         = "cardPlayed"
	EventTableCardsTaken    = "tableCardsTaken"
	EventBlindCardRevealed  = "blindCardRevealed"
	EventGameEnded          = "gameEnded"
	EventRejoinedRoom       = "rejoinedRoom"
	EventPlayerDisconnected = "playerDisconnected"
	EventPlayerReconnected  = "playerReconnected"
	EventPong               = "pong"
	EventError              = "error"
)

// Event is one JSON message to a client. The "type" key names it.
type Event map[string]interface{}

// Type returns the event name.
func (e Event) Type() string {
	t, _ := e["type"].(string)
	return t
}
