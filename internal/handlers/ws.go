// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/palace/internal/game"
	"github.com/jason-s-yu/palace/internal/middleware"
	"github.com/jason-s-yu/palace/internal/models"
	"github.com/jason-s-yu/palace/internal/room"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 5 * time.Second
	readLimit    = 16 << 10
)

// Client to server message names.
const (
	MsgCreateRoom         = "createRoom"
	MsgJoinRoom           = "joinRoom"
	MsgPlayerReady        = "playerReady"
	MsgStartGame          = "startGame"
	MsgPlayCard           = "playCard"
	MsgTakeTableCards     = "takeTableCards"
	MsgRevealBlindCard    = "revealBlindCard"
	MsgPlayCard2WithBlind = "playCard2WithBlind"
	MsgRejoinRoom         = "rejoinRoom"
	MsgLeaveRoom          = "leaveRoom"
	MsgPing               = "ping"
)

// clientMessage is the union of every client payload. Fields a message type
// does not use are ignored.
type clientMessage struct {
	Type       string        `json:"type"`
	Name       string        `json:"name"`
	RoomCode   string        `json:"roomCode"`
	Ready      *bool         `json:"ready"`
	Card       *models.Card  `json:"card"`
	Cards      []models.Card `json:"cards"`
	BlindIndex *int          `json:"blindIndex"`
	Card2s     []models.Card `json:"card2s"`
	PlayerName string        `json:"playerName"`
	PlayerID   string        `json:"playerId"`
	Token      string        `json:"token"`
}

// WSHandler upgrades the request and runs one client connection until the
// socket closes. A closed socket hands the seat to the grace timer; an
// explicit leaveRoom is the only immediate removal.
func WSHandler(logger *logrus.Logger, m *room.Manager, originPatterns []string, buffer int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		c.SetReadLimit(readLimit)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// The manager calls the cancel func under its lock, so the close
		// handshake runs on its own goroutine.
		var takenOver atomic.Bool
		conn := room.NewConn(buffer, func() {
			if takenOver.CompareAndSwap(false, true) {
				go c.Close(StatusSeatTakenOver, "seat taken over by another connection")
			}
		}, logger)

		go writePump(ctx, c, conn, logger)
		readErr := readPump(ctx, c, m, conn, logger)

		m.Disconnect(conn)
		switch {
		case takenOver.Load():
			// already closing
		case r.Context().Err() != nil:
			c.Close(StatusServerShutdown, "server shutting down")
		default:
			c.Close(websocket.StatusNormalClosure, "")
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// readPump decodes client messages and applies them until the socket or ctx
// ends. It returns the read error for anything other than a clean close.
func readPump(ctx context.Context, c *websocket.Conn, m *room.Manager, conn *room.Conn, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			conn.WriteError(fmt.Errorf("%w: binary frames are not supported", game.ErrBadRequest))
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.WithField("conn", conn.ID).Debugf("invalid json: %v", err)
			conn.WriteError(fmt.Errorf("%w: invalid JSON", game.ErrBadRequest))
			continue
		}
		if err := handleMessage(m, conn, msg); err != nil {
			logger.WithFields(logrus.Fields{
				"conn": conn.ID,
				"type": msg.Type,
				"code": game.Code(err),
			}).Debug("command rejected")
			conn.WriteError(err)
		}
	}
}

// writePump drains conn's outbound queue onto the socket.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Conn, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-conn.OutChan:
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("failed to marshal %s event for conn %v: %v", ev.Type(), conn.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Warnf("failed to write to websocket for conn %v: %v", conn.ID, err)
				}
				return
			}
		}
	}
}

// handleMessage routes one decoded message to the room manager.
func handleMessage(m *room.Manager, conn *room.Conn, msg clientMessage) error {
	switch msg.Type {
	case MsgCreateRoom:
		_, err := m.CreateRoom(conn, msg.Name)
		return err
	case MsgJoinRoom:
		return m.JoinRoom(conn, msg.RoomCode, msg.Name)
	case MsgPlayerReady:
		ready := true
		if msg.Ready != nil {
			ready = *msg.Ready
		}
		return m.SetReady(conn, ready)
	case MsgStartGame:
		return m.StartGame(conn)
	case MsgPlayCard:
		cards := msg.Cards
		if msg.Card != nil {
			cards = append([]models.Card{*msg.Card}, cards...)
		}
		if len(cards) == 0 {
			return fmt.Errorf("%w: playCard needs card or cards", game.ErrBadRequest)
		}
		return m.PlayCards(conn, cards)
	case MsgTakeTableCards:
		return m.TakePile(conn)
	case MsgRevealBlindCard:
		if msg.BlindIndex == nil {
			return fmt.Errorf("%w: revealBlindCard needs blindIndex", game.ErrBadRequest)
		}
		return m.RevealBlind(conn, *msg.BlindIndex)
	case MsgPlayCard2WithBlind:
		if msg.BlindIndex == nil {
			return fmt.Errorf("%w: playCard2WithBlind needs blindIndex", game.ErrBadRequest)
		}
		return m.PlayTwosWithBlind(conn, msg.Card2s, *msg.BlindIndex)
	case MsgRejoinRoom:
		return m.Rejoin(conn, room.RejoinRequest{
			RoomCode:   msg.RoomCode,
			PlayerName: msg.PlayerName,
			PreviousID: msg.PlayerID,
			Token:      msg.Token,
		})
	case MsgLeaveRoom:
		return m.Leave(conn)
	case MsgPing:
		conn.Write(room.Event{"type": room.EventPong})
		return nil
	default:
		return fmt.Errorf("%w: unknown message type %q", game.ErrBadRequest, msg.Type)
	}
}
