package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithLogger sets the bridge logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithCheckOrigin sets the websocket origin check. Default: allow all,
// which is only suitable when the bridge listens on localhost.
func WithCheckOrigin(fn func(r *http.Request) bool) BridgeOption {
	return func(b *Bridge) {
		b.upgrader.CheckOrigin = fn
	}
}

// Bridge exposes the registry to external inspectors.
type Bridge struct {
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

// NewBridge creates a Bridge.
func NewBridge(opts ...BridgeOption) *Bridge {
	b := &Bridge{
		clients: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/stores", b.handleList)
	r.Get("/stores/{name}", b.handleSnapshot)
	r.Get("/stores/{name}/events", b.handleEvents)
	b.router = r
	return b
}

// ServeHTTP implements http.Handler.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Bridge) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stores": Stores()})
}

func (b *Bridge) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	src, ok := Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found: " + name})
		return
	}
	writeJSON(w, http.StatusOK, Event{
		Store:       name,
		ChangedKeys: []string{},
		Snapshot:    src.Snapshot(),
		At:          time.Now(),
	})
}

// handleEvents streams events for one store. The first message is the
// current snapshot with no changed keys.
func (b *Bridge) handleEvents(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	src, ok := Lookup(name)
	if !ok {
		http.Error(w, "store not found: "+name, http.StatusNotFound)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Debug("devtools: upgrade failed", "store", name, "error", err)
		return
	}

	id := uuid.NewString()
	b.mu.Lock()
	b.clients[id] = conn
	b.mu.Unlock()
	b.logger.Debug("devtools: inspector connected", "store", name, "conn", id)

	// Events are queued so a slow inspector never blocks the store. When the
	// queue is full the connection is dropped.
	send := make(chan Event, sendBuffer)
	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() { closeOnce.Do(func() { close(done) }) }

	send <- Event{Store: name, ChangedKeys: []string{}, Snapshot: src.Snapshot(), At: time.Now()}
	cancel := src.OnChange(func(ev Event) {
		select {
		case send <- ev:
		case <-done:
		default:
			stop()
		}
	})

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				stop()
				return
			}
		}
	}()

	for {
		select {
		case ev := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				stop()
				continue
			}
		case <-done:
			cancel()
			b.mu.Lock()
			delete(b.clients, id)
			b.mu.Unlock()
			conn.Close()
			b.logger.Debug("devtools: inspector disconnected", "store", name, "conn", id)
			return
		}
	}
}

// ClientCount returns the number of connected inspectors.
func (b *Bridge) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close closes all inspector connections.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, conn := range b.clients {
		conn.Close()
		delete(b.clients, id)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
