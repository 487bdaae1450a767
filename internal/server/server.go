package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/mtlprog/wallet/internal/command"
	"github.com/mtlprog/wallet/internal/session"
)

// stopWord is the sentinel line appended after every response body; clients
// read until they see it.
const stopWord = "STOP"

// connState tracks a connection through its lifecycle.
type connState int

const (
	stateAccepted connState = iota
	stateReadable
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateAccepted:
		return "accepted"
	case stateReadable:
		return "readable"
	default:
		return "closed"
	}
}

// Server accepts client connections and routes each newline-terminated
// request through the command pipeline. Connections are read concurrently,
// but dispatch is serialized by a single mutex so at most one command
// executes at a time, which is what makes every command atomic without
// per-command locking.
type Server struct {
	addr     string
	pipeline *command.Pipeline

	dispatchMu sync.Mutex
	closeOnce  sync.Once
	wg         sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	conns    map[string]net.Conn
	closed   bool
}

// New creates a server bound to the command pipeline.
func New(addr string, pipeline *command.Pipeline) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("server: nil command pipeline")
	}
	return &Server{
		addr:     addr,
		pipeline: pipeline,
		conns:    make(map[string]net.Conn),
	}, nil
}

// Serve listens on the configured address and blocks until the context is
// cancelled or Close is called. Every accepted connection gets a fresh
// session and its own reader goroutine.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()

	slog.Info("server listening", "addr", listener.Addr().String())

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		id := uuid.NewString()
		s.mu.Lock()
		s.conns[id] = conn
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(ctx, id, conn)
	}
}

// Addr returns the bound listen address, or empty before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops accepting and closes every live connection. Idempotent.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.listener != nil {
			s.listener.Close()
		}
		for _, conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
	})
}

func (s *Server) handleConn(ctx context.Context, id string, conn net.Conn) {
	defer s.wg.Done()

	state := stateAccepted
	sess := session.New()
	slog.Info("client connected", "conn", id, "remote", conn.RemoteAddr().String())

	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		slog.Info("client disconnected", "conn", id, "last_state", state.String())
	}()

	for {
		n, err := conn.Read(sess.ReadBuffer())
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				slog.Warn("read failed", "conn", id, "error", err)
			}
			return
		}
		state = stateReadable

		for _, line := range sess.Feed(sess.ReadBuffer()[:n]) {
			response := s.dispatch(ctx, id, line, sess)
			if err := s.respond(conn, response); err != nil {
				slog.Warn("write failed", "conn", id, "error", err)
				return
			}
		}
	}
}

// dispatch runs one request through the pipeline under the dispatch lock.
// Command-level failures never tear down the server; they become response
// strings and the loop keeps serving.
func (s *Server) dispatch(ctx context.Context, id, line string, sess *session.Session) string {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	cmd, err := command.Parse(line, sess)
	if err != nil {
		slog.Info("rejected request", "conn", id, "error", err)
		return err.Error()
	}

	response, err := s.pipeline.Execute(ctx, cmd)
	if err != nil {
		if command.IsValidationError(err) {
			slog.Info("rejected request", "conn", id, "command", cmd.Kind(), "error", err)
		} else {
			slog.Error("command failed", "conn", id, "command", cmd.Kind(), "error", err)
		}
		return err.Error()
	}
	return response
}

func (s *Server) respond(conn net.Conn, body string) error {
	_, err := fmt.Fprintf(conn, "%s\n%s\n", body, stopWord)
	return err
}
