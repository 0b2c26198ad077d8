// internal/room/code.go
package room

import (
	"fmt"
	"io"
	"strings"
)

const (
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength      = 6
	maxCodeAttempts = 16
)

// randomCode reads codeLength bytes from src and maps each onto the alphabet.
// The alphabet has 32 symbols so the mapping is unbiased.
func randomCode(src io.Reader) (string, error) {
	buf := make([]byte, codeLength)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// NormalizeCode trims and upper-cases a code typed by a user.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// newCodeLocked returns a code not currently in use. Caller holds m.mu.
func (m *Manager) newCodeLocked() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := randomCode(m.codeSource)
		if err != nil {
			return "", err
		}
		if _, taken := m.rooms[code]; !taken {
			return code, nil
		}
		m.logger.WithField("room", code).Debug("room code collision, retrying")
	}
	return "", fmt.Errorf("no free room code after %d attempts", maxCodeAttempts)
}
