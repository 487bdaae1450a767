package session

import (
	"errors"

	"github.com/mtlprog/wallet/internal/store"
)

// BufferSize is the fixed capacity of a session's receive buffer.
const BufferSize = 2048

var ErrAlreadyLoggedIn = errors.New("this session already has a user logged in")

// Session is the authentication and buffering state bound to one client
// connection. It is owned exclusively by that connection's handler and never
// shared, so it needs no locking.
type Session struct {
	user    *store.User
	buf     []byte
	pending []byte
}

// New creates a fresh unauthenticated session.
func New() *Session {
	return &Session{buf: make([]byte, BufferSize)}
}

// Login binds the user to this session. A session holds at most one
// authenticated user; re-authentication requires a logout first.
func (s *Session) Login(user *store.User) error {
	if s.user != nil {
		return ErrAlreadyLoggedIn
	}
	s.user = user
	return nil
}

// Logout clears the authenticated user. It is idempotent.
func (s *Session) Logout() {
	s.user = nil
}

// LoggedIn reports whether a user is bound to the session.
func (s *Session) LoggedIn() bool {
	return s.user != nil
}

// User returns the authenticated user, or nil.
func (s *Session) User() *store.User {
	return s.user
}

// ReadBuffer returns the session's fixed-size receive buffer.
func (s *Session) ReadBuffer() []byte {
	return s.buf
}

// Feed appends freshly read bytes to the pending input and returns each
// complete newline-terminated request, stripped of its line ending.
func (s *Session) Feed(data []byte) []string {
	s.pending = append(s.pending, data...)

	var lines []string
	for {
		idx := -1
		for i, b := range s.pending {
			if b == '\n' {
				idx = i
				break
			}
		}
		if idx < 0 {
			return lines
		}
		line := string(s.pending[:idx])
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		s.pending = s.pending[idx+1:]
		lines = append(lines, line)
	}
}
