package models

import "github.com/google/uuid"

// ActionRecord is one entry of the action journal: a successful command
// applied to a room, in order. The historian persists these.
type ActionRecord struct {
	RoomCode    string                 `json:"room_code"`
	GameID      uuid.UUID              `json:"game_id"`
	ActionIndex int                    `json:"action_index"`
	ActorID     uuid.UUID              `json:"actor_id"`
	ActionType  string                 `json:"action_type"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   int64                  `json:"timestamp"` // epoch millis
}
