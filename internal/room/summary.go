// internal/room/summary.go
package room

import (
	"time"

	"github.com/jason-s-yu/palace/internal/game"
)

// SummaryPlayer is the public entry for one seat.
type SummaryPlayer struct {
	Name      string `json:"name"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

// Summary is what anyone holding a room code may see about the room.
type Summary struct {
	Code        string          `json:"code"`
	Phase       game.Phase      `json:"phase"`
	Started     bool            `json:"started"`
	Ended       bool            `json:"ended"`
	Players     []SummaryPlayer `json:"players"`
	PlayerCount int             `json:"playerCount"`
	Capacity    int             `json:"capacity"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Summary describes the room with the given code.
func (m *Manager) Summary(code string) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[NormalizeCode(code)]
	if !ok {
		return Summary{}, game.ErrRoomNotFound
	}
	s := r.State
	sum := Summary{
		Code:        r.Code,
		Phase:       s.Phase(),
		Started:     s.Started,
		Ended:       s.Ended,
		Players:     make([]SummaryPlayer, 0, len(s.Players)),
		PlayerCount: len(s.Players),
		Capacity:    game.MaxPlayers,
		CreatedAt:   r.CreatedAt,
	}
	for _, p := range s.Players {
		sum.Players = append(sum.Players, SummaryPlayer{Name: p.Name, Ready: p.Ready, Connected: p.Connected})
	}
	return sum, nil
}
