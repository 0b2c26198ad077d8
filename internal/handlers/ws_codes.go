// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes sent by the room socket.
const (
	// StatusSeatTakenOver closes a socket whose seat was claimed by a rejoin
	// on another connection.
	StatusSeatTakenOver websocket.StatusCode = 3000
	// StatusServerShutdown closes every socket when the process stops.
	StatusServerShutdown websocket.StatusCode = 3001
)
