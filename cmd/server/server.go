package main

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nickyhof/StrictDB"
	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/internal/logging"
)

// Server is a TCP SQL server that exposes the StrictDB engine.
type Server struct {
	listener   net.Listener
	instance   *StrictDB.Instance
	identity   core.Identity
	authConfig *AuthConfig
	tlsEnabled bool
	logger     *slog.Logger
	done       chan struct{}
	wg         sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a server whose commits are authored by identity.
func NewServer(instance *StrictDB.Instance, identity core.Identity) *Server {
	return &Server{
		instance: instance,
		identity: identity,
		logger:   logging.Discard(),
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
}

// NewServerWithAuth creates a server that authors each connection's commits with the
// identity from its JWT.
func NewServerWithAuth(instance *StrictDB.Instance, authConfig *AuthConfig) *Server {
	s := NewServer(instance, core.Identity{Name: "StrictDB Server", Email: "server@strictdb.local"})
	s.authConfig = authConfig
	return s
}

// SetLogger sets the logger for per-session events.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	log.Printf("SQL Server listening on %s", addr)

	go s.acceptLoop()
	return nil
}

// StartTLS begins listening for TLS connections using the given certificate pair.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.listener = listener
	s.tlsEnabled = true

	log.Printf("SQL Server listening on %s (TLS)", addr)

	go s.acceptLoop()
	return nil
}

// TLSEnabled reports whether the server was started with StartTLS.
func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

// Stop closes the listener and every open connection, then waits for their handlers.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) authRequired() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	state := &ConnectionState{session: uuid.NewString()}
	logger := s.logger.With("session", state.session, "remote", conn.RemoteAddr().String())
	logger.Info("client connected")

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		// One request per line
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				logger.Warn("read failed", "error", err)
			}
			logger.Info("client disconnected")
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			logger.Info("client disconnected")
			return
		}

		var response Response
		switch {
		case isAuthCommand(line):
			response = s.handleAuth(line, state)
		case s.authRequired() && !state.IsAuthenticated(time.Now()):
			if state.authenticated {
				response = Response{Success: false, Type: "auth", Error: "authentication expired: send AUTH again"}
			} else {
				response = Response{Success: false, Type: "auth", Error: "authentication required: send AUTH <token>"}
			}
		default:
			response = s.executeLine(line, state, logger)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			logger.Error("encode response failed", "error", err)
			continue
		}

		if _, err := conn.Write(data); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
	}
}

// executeLine runs a JSON {"query": ...} request or a bare SQL line.
func (s *Server) executeLine(line string, state *ConnectionState, logger *slog.Logger) Response {
	query := line
	if strings.HasPrefix(line, "{") {
		req, err := DecodeRequest([]byte(line))
		if err != nil {
			return Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}
		}
		query = req.Query
	}
	if strings.TrimSpace(query) == "" {
		return errorResponse(errors.New("empty query"))
	}

	identity := s.identity
	if id := state.Identity(); id != nil {
		identity = *id
	}

	// The persistence lock serializes writers across connections.
	result, err := s.instance.Engine(identity).Execute(query)
	if err != nil {
		logger.Debug("statement failed", "error", err)
		return errorResponse(err)
	}
	return resultResponse(result)
}
