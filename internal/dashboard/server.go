// Package dashboard serves a live view of the local cache over WebSocket.
//
// Clients connect to /ws (optionally /ws?course=<id> to also receive the
// notes of one course). On connect a client receives the current snapshots;
// afterwards a fresh snapshot is pushed whenever the cache commits a change
// to the table behind it.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeSchedules carries the schedules of the signed-in user
	MessageTypeSchedules MessageType = "schedules"

	// MessageTypeReminders carries the reminders of the signed-in user
	MessageTypeReminders MessageType = "reminders"

	// MessageTypeNotes carries the notes of one course
	MessageTypeNotes MessageType = "notes"

	// MessageTypeStats carries cache row counts
	MessageTypeStats MessageType = "stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Course    string          `json:"course,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SnapshotFunc returns the messages a client subscribed to course should see
// right after connecting.
type SnapshotFunc func(ctx context.Context, course string) ([]Message, error)

type client struct {
	id     string
	course string

	// Until ready, broadcasts queue in pending while the snapshot is sent.
	ready   bool
	pending [][]byte
}

// Server manages WebSocket connections and broadcasts dashboard messages
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]*client
	clientsMu sync.RWMutex

	broadcast chan Message
	snapshot  SnapshotFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8080). Zero picks a free port.
	Port int

	// Snapshot supplies the initial messages for new clients
	Snapshot SnapshotFunc

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:   8080,
		Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
	}
}

// NewServer creates a new dashboard WebSocket server
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		clients:   make(map[*websocket.Conn]*client),
		broadcast: make(chan Message, 100),
		snapshot:  config.Snapshot,
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// SetSnapshot replaces the snapshot source. Call before Start.
func (s *Server) SetSnapshot(fn SnapshotFunc) {
	s.snapshot = fn
}

// Handler returns the HTTP routes without starting the broadcast loop.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	s.StartBroadcasting()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// StartBroadcasting runs the broadcast loop. Start calls it; use it directly
// when serving Handler from another server.
func (s *Server) StartBroadcasting() {
	s.wg.Add(1)
	go s.broadcastLoop()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast queues a message for every client. Notes messages only reach
// clients subscribed to their course.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.Lock()
			targets := make([]*websocket.Conn, 0, len(s.clients))
			for conn, c := range s.clients {
				if msg.Type == MessageTypeNotes && c.course != msg.Course {
					continue
				}
				if !c.ready {
					c.pending = append(c.pending, data)
					continue
				}
				targets = append(targets, conn)
			}
			s.clientsMu.Unlock()

			for _, conn := range targets {
				if err := s.write(conn, data); err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), course: r.URL.Query().Get("course")}

	// Registered before the snapshot is taken so that no commit is missed.
	s.clientsMu.Lock()
	s.clients[conn] = c
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client %s connected (course %q, total: %d)", c.id, c.course, clientCount)

	if s.snapshot != nil {
		msgs, err := s.snapshot(r.Context(), c.course)
		if err != nil {
			s.logger.Printf("Failed to build snapshot for %s: %v", c.id, err)
		}
		for _, msg := range msgs {
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := s.write(conn, data); err != nil {
				s.removeClient(conn)
				return
			}
		}
	}
	if err := s.flushPending(conn, c); err != nil {
		s.removeClient(conn)
		return
	}

	go s.readLoop(conn)
}

// flushPending sends the broadcasts queued for c during its snapshot, then
// marks it ready so later broadcasts are written directly.
func (s *Server) flushPending(conn *websocket.Conn, c *client) error {
	for {
		s.clientsMu.Lock()
		queued := c.pending
		c.pending = nil
		if len(queued) == 0 {
			c.ready = true
		}
		s.clientsMu.Unlock()

		if len(queued) == 0 {
			return nil
		}
		for _, data := range queued {
			if err := s.write(conn, data); err != nil {
				return err
			}
		}
	}
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	c, exists := s.clients[conn]
	if !exists {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, conn)
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Printf("Client %s disconnected (total: %d)", c.id, clientCount)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
		"courses": s.Courses(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>campusnote</title>
</head>
<body>
    <h1>campusnote dashboard</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws?course=&lt;id&gt;</code></p>
    <p>Health check: <a href="/health">/health</a></p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Courses returns the distinct non-empty course subscriptions, sorted.
func (s *Server) Courses() []string {
	s.clientsMu.RLock()
	seen := make(map[string]bool)
	for _, c := range s.clients {
		if c.course != "" {
			seen[c.course] = true
		}
	}
	s.clientsMu.RUnlock()

	courses := make([]string, 0, len(seen))
	for course := range seen {
		courses = append(courses, course)
	}
	sort.Strings(courses)
	return courses
}
