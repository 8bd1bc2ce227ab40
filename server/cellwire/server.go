// Package cellwire exposes the engine over length-prefixed JSON frames, on a
// raw TCP socket or on a websocket. Every connection gets its own session;
// the engine serializes statement execution internally.
package cellwire

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/tuannm99/cellstore"
	"github.com/tuannm99/cellstore/internal/session"
)

// ServerConfig carries the listener settings.
type ServerConfig struct {
	Addr           string
	MaxConnections int
	// MaxFrame caps request/response payload bytes; 0 means DefaultMaxFrame.
	MaxFrame  uint32
	Websocket bool
}

// Server accepts connections and drives request/response frames against a
// shared engine.
type Server struct {
	engine *cellstore.Engine
	cfg    ServerConfig
	framer Framer
	pool   *ants.Pool
	log    *slog.Logger
}

// NewServer binds a server to an engine. MaxConnections bounds the handler
// pool; connections beyond it are refused rather than queued.
func NewServer(engine *cellstore.Engine, cfg ServerConfig) (*Server, error) {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 64
	}
	pool, err := ants.NewPool(cfg.MaxConnections, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("cellwire: handler pool: %w", err)
	}
	return &Server{
		engine: engine,
		cfg:    cfg,
		framer: Framer{MaxFrame: cfg.MaxFrame},
		pool:   pool,
		log:    slog.Default(),
	}, nil
}

// Run serves until SIGINT/SIGTERM. The websocket flag switches the transport;
// the frame protocol is identical on both.
func (s *Server) Run() error {
	defer s.pool.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.cfg.Websocket {
		return s.runWebsocket(ctx)
	}
	return s.runTCP(ctx)
}

func (s *Server) runTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("cellwire: listen: %w", err)
	}
	defer func() { _ = ln.Close() }()

	s.log.Info("tcp server listening", "addr", s.cfg.Addr)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.log.Error("accept failed", "err", err)
			continue
		}
		if err := s.pool.Submit(func() { s.handleConn(ctx, conn) }); err != nil {
			s.log.Warn("connection refused, pool exhausted", "remote", conn.RemoteAddr())
			_ = conn.Close()
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	// No global deadline; frames can be arbitrarily spaced.
	_ = conn.SetDeadline(time.Time{})

	sess := s.engine.NewSession()
	s.log.Debug("session opened", "session", sess.ID, "remote", conn.RemoteAddr())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var req ExecuteRequest
		if err := s.framer.Read(conn, &req); err != nil {
			// Client closed or bad frame.
			return
		}
		_ = s.framer.Write(conn, s.execute(sess, req))
	}
}

// execute runs one request batch and drains the row streams for transport.
func (s *Server) execute(sess *session.Session, req ExecuteRequest) ExecuteResponse {
	results, err := s.engine.Execute(sess, req.Stmt)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	wired, err := toWire(results)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return ExecuteResponse{ID: req.ID, Results: wired}
}
