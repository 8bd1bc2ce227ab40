package cellwire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The engine has its own access control story; the transport accepts any
	// origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) runWebsocket(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", s.handleWebsocket)

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("websocket server listening", "addr", s.cfg.Addr, "path", "/session")

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("cellwire: websocket serve: %w", err)
	}
	return nil
}

// handleWebsocket speaks the same request/response JSON as the TCP transport,
// one message per frame. Each websocket connection is one session.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	s.serveWebsocket(conn)
}

func (s *Server) serveWebsocket(conn *websocket.Conn) {
	// Same payload ceiling as the TCP framer.
	conn.SetReadLimit(int64(s.framer.limit()))

	sess := s.engine.NewSession()
	s.log.Debug("session opened", "session", sess.ID, "remote", conn.RemoteAddr())

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var req ExecuteRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			_ = conn.WriteJSON(ExecuteResponse{Error: "bad request json"})
			continue
		}
		if err := conn.WriteJSON(s.execute(sess, req)); err != nil {
			return
		}
	}
}
