// Package wsserver combines a static asset server with a WebSocket
// broadcaster: a single HTTP port serves a visualization page plus its
// assets, and streams throttled CaptureFrame JSON to every connected
// client.
package wsserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwbudde/steel-capture/steelcap"
)

// Server serves the visualization page and broadcasts CaptureFrames to
// connected WebSocket clients at a throttled rate, OR-accumulating
// attacks across frames it skips so a fast pick is never dropped.
type Server struct {
	addr      string
	targetFPS uint32
	assetDir  string

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	Logger *log.Logger
}

// NewServer configures a broadcaster listening on addr, serving static
// files from assetDir (visualization.html and its siblings), throttling
// broadcasts to targetFPS.
func NewServer(addr string, targetFPS uint32, assetDir string) *Server {
	return &Server{
		addr:      addr,
		targetFPS: targetFPS,
		assetDir:  assetDir,
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:   make(map[*websocket.Conn]struct{}),
		Logger:    log.Default(),
	}
}

// Run serves HTTP/WS on addr and drains frames into connected clients
// until frames is closed. Blocks the calling goroutine.
func (s *Server) Run(frames <-chan steelcap.CaptureFrame) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	mux.HandleFunc("/", s.handleIndexAndAssets)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Printf("server listening on http://%s", s.addr)
		s.Logger.Printf("  open http://%s in your browser", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	s.broadcastLoop(frames)

	srv.Close()
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleIndexAndAssets(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" || path == "/visualization.html" || path == "/index.html" {
		http.ServeFile(w, r, s.assetDir+"/visualization.html")
		return
	}
	http.FileServer(http.Dir(s.assetDir)).ServeHTTP(w, r)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Printf("ws upgrade failed: %v", err)
		return
	}
	s.Logger.Printf("websocket client connected")

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	// Drain inbound frames (pings/close) so the connection stays alive
	// until the client disconnects; this server never reads data frames.
	go func() {
		defer s.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) broadcastLoop(frames <-chan steelcap.CaptureFrame) {
	fps := s.targetFPS
	if fps == 0 {
		fps = 30
	}
	interval := time.Duration(1_000_000/fps) * time.Microsecond
	lastSend := time.Now().Add(-interval)
	var pendingAttacks [10]bool

	for frame := range frames {
		for i, attacked := range frame.StringAttacks {
			if attacked {
				pendingAttacks[i] = true
			}
		}

		now := time.Now()
		if now.Sub(lastSend) < interval {
			continue
		}
		lastSend = now

		sendFrame := frame
		for i, pending := range pendingAttacks {
			if pending {
				sendFrame.StringAttacks[i] = true
			}
		}
		pendingAttacks = [10]bool{}

		payload, err := json.Marshal(sendFrame.ToCompact())
		if err != nil {
			s.Logger.Printf("json marshal error: %v", err)
			continue
		}
		s.broadcast(payload)
	}
}

func (s *Server) broadcast(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}
