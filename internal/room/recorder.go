// internal/room/recorder.go
package room

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/game"
	"github.com/jason-s-yu/palace/internal/models"
)

// Journal action types that have no game.Outcome of their own.
const (
	ActionPlayerRemoved = "player_removed"
	ActionGameEnded     = "game_ended"
)

// Recorder receives every successful game action, in order per room.
// Implementations must not block the caller.
type Recorder interface {
	Record(rec models.ActionRecord)
}

type nopRecorder struct{}

func (nopRecorder) Record(models.ActionRecord) {}

// NopRecorder discards all records.
func NopRecorder() Recorder { return nopRecorder{} }

// record appends one journal entry for a started game. Caller holds m.mu.
func (m *Manager) record(r *Room, actor uuid.UUID, action string, payload map[string]interface{}) {
	if !r.State.Started || r.State.GameID == uuid.Nil {
		return
	}
	m.recorder.Record(models.ActionRecord{
		RoomCode:    r.Code,
		GameID:      r.State.GameID,
		ActionIndex: r.actionIndex,
		ActorID:     actor,
		ActionType:  action,
		Payload:     payload,
		Timestamp:   m.clock.Now().UnixMilli(),
	})
	r.actionIndex++
}

func outcomePayload(out game.Outcome) map[string]interface{} {
	payload := make(map[string]interface{})
	switch out.Action {
	case game.ActionStartGame:
	case game.ActionPlayCard, game.ActionPlayTwosWithBlind:
		payload["cards"] = out.Played
		payload["kind"] = out.Kind.String()
		payload["cleared"] = out.Cleared
		payload["drawn"] = out.Drawn
		if out.Revealed != nil {
			payload["blind_index"] = out.BlindIndex
		}
	case game.ActionTakePile:
		payload["count"] = out.Taken
	case game.ActionRevealBlind:
		payload["blind_index"] = out.BlindIndex
		payload["card"] = out.Revealed
	}
	return payload
}
