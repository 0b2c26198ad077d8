// internal/room/conn.go
package room

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/palace/internal/game"
	"github.com/sirupsen/logrus"
)

// Conn is the room side of one client connection. Events queue on OutChan and
// are drained by the transport's writer goroutine.
type Conn struct {
	ID      uuid.UUID
	OutChan chan Event
	// Cancel tears down the transport, used when a rejoin takes the seat over.
	Cancel context.CancelFunc

	logger *logrus.Logger
}

// NewConn returns a connection handle with a fresh ID and an outbound buffer
// of the given size.
func NewConn(buffer int, cancel context.CancelFunc, logger *logrus.Logger) *Conn {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Conn{
		ID:      uuid.New(),
		OutChan: make(chan Event, buffer),
		Cancel:  cancel,
		logger:  logger,
	}
}

// Write queues ev without blocking. A full buffer drops the event.
func (c *Conn) Write(ev Event) {
	select {
	case c.OutChan <- ev:
	default:
		c.logger.WithFields(logrus.Fields{
			"conn": c.ID,
			"type": ev.Type(),
		}).Warn("outbound buffer full, dropped event")
	}
}

// WriteError sends a private error event for err.
func (c *Conn) WriteError(err error) {
	c.Write(Event{
		"type":    EventError,
		"code":    game.Code(err),
		"message": err.Error(),
	})
}
