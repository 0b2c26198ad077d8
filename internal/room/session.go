// internal/room/session.go
package room

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/game"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// pendingRemoval is a grace timer for one disconnected player. connID is the
// connection the player had when the timer was scheduled.
type pendingRemoval struct {
	connID uuid.UUID
	timer  clockwork.Timer
}

// RejoinRequest names the seat a returning client wants back.
type RejoinRequest struct {
	RoomCode   string
	PlayerName string
	// PreviousID is the connection ID the client last had. Informational.
	PreviousID string
	Token      string
}

// Disconnect marks conn's player as gone and starts their grace timer. It is
// called by the transport when a socket closes and is a no-op for connections
// that are not seated or were already replaced by a rejoin.
func (m *Manager) Disconnect(conn *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, ok := m.connRoom[conn.ID]
	if !ok {
		return
	}
	delete(m.connRoom, conn.ID)
	r, ok := m.rooms[code]
	if !ok {
		return
	}
	p := r.State.PlayerByConn(conn.ID)
	if p == nil || !p.Connected {
		return
	}

	delete(r.conns, p.ID)
	_ = r.State.MarkDisconnected(p.ID)

	playerID, connID := p.ID, conn.ID
	if pr, ok := r.pending[playerID]; ok {
		pr.timer.Stop()
	}
	r.pending[playerID] = &pendingRemoval{
		connID: connID,
		timer: m.clock.AfterFunc(m.grace, func() {
			m.expire(code, playerID, connID)
		}),
	}

	m.logger.WithFields(logrus.Fields{"room": code, "player": playerID, "grace": m.grace}).Info("player disconnected")
	name := p.Name
	m.broadcast(r, func(viewer uuid.UUID) Event {
		return Event{
			"type":         EventPlayerDisconnected,
			"playerId":     playerID,
			"name":         name,
			"graceSeconds": int(m.grace.Seconds()),
			"state":        r.State.ViewFor(viewer),
		}
	})
}

// expire runs when a grace timer fires. It only removes the player if they are
// still disconnected under the connection the timer was scheduled for.
func (m *Manager) expire(code string, playerID, connID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logger.WithFields(logrus.Fields{"room": code, "player": playerID})
	r, ok := m.rooms[code]
	if !ok {
		return
	}
	pr, ok := r.pending[playerID]
	if !ok || pr.connID != connID {
		log.Debug("stale grace timer ignored")
		return
	}
	p := r.State.Player(playerID)
	if p == nil || p.Connected || p.ConnID != connID {
		delete(r.pending, playerID)
		log.Debug("stale grace timer ignored")
		return
	}
	delete(r.pending, playerID)
	m.removeLocked(r, playerID, "grace_expired")
}

// Rejoin reattaches conn to a seat by room code and display name. The seat
// must belong to a disconnected player, or the request must carry a valid
// session token for exactly that player.
func (m *Manager) Rejoin(conn *Conn, req RejoinRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.connRoom[conn.ID]; ok {
		return game.ErrAlreadyInRoom
	}
	r, ok := m.rooms[NormalizeCode(req.RoomCode)]
	if !ok {
		return game.ErrRoomNotFound
	}
	p := r.State.PlayerByName(req.PlayerName)
	if p == nil {
		return game.ErrPlayerNotFound
	}
	log := m.logger.WithFields(logrus.Fields{"room": r.Code, "player": p.ID, "previous": req.PreviousID})

	if p.Connected {
		if !m.validToken(req.Token, r.Code, p.ID) {
			return game.ErrPlayerNotFound
		}
		if old, ok := r.conns[p.ID]; ok {
			delete(m.connRoom, old.ID)
			if old.Cancel != nil {
				old.Cancel()
			}
		}
		log.Info("seat taken over by token")
	}

	if pr, ok := r.pending[p.ID]; ok {
		pr.timer.Stop()
		delete(r.pending, p.ID)
	}
	if err := r.State.Reattach(p.ID, conn.ID); err != nil {
		return err
	}
	m.seatLocked(r, p.ID, conn)
	log.Info("player rejoined")

	conn.Write(Event{
		"type":     EventRejoinedRoom,
		"roomCode": r.Code,
		"playerId": p.ID,
		"token":    m.issueToken(r.Code, p.ID),
		"state":    r.State.ViewFor(p.ID),
	})
	name := p.Name
	m.broadcastExcept(r, p.ID, func(viewer uuid.UUID) Event {
		return Event{
			"type":     EventPlayerReconnected,
			"playerId": p.ID,
			"name":     name,
			"state":    r.State.ViewFor(viewer),
		}
	})
	return nil
}

func (m *Manager) validToken(token, code string, playerID uuid.UUID) bool {
	if token == "" || m.tokens == nil {
		return false
	}
	tokenRoom, tokenPlayer, err := m.tokens.Verify(token)
	if err != nil {
		m.logger.WithField("room", code).WithError(err).Debug("rejoin token rejected")
		return false
	}
	return tokenRoom == code && tokenPlayer == playerID
}
