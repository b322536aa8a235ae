// Package bridge exposes a small local HTTP surface over the engine:
// status and transport control for tooling, a WebSocket event feed, and
// Prometheus metrics. It is transport for events and triggers, not a UI.
package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	logging "github.com/ipfs/go-log/v2"
	"nhooyr.io/websocket"

	"github.com/slimwire/slimwire/control"
	"github.com/slimwire/slimwire/engine"
)

var log = logging.Logger("slimwire.bridge")

// Options wires a Bridge to its collaborators.
type Options struct {
	Addr     string
	PlayerID string
	Engine   *engine.Engine
	Control  *control.Client

	// Metrics serves GET /metrics when non-nil (promhttp handler).
	Metrics http.Handler
}

// Bridge is the local HTTP server plus WebSocket event hub.
type Bridge struct {
	opts Options

	mu      sync.Mutex
	clients map[*wsClient]bool
}

// New creates a bridge; call Serve to start it and Publish to feed it
// engine events.
func New(opts Options) *Bridge {
	return &Bridge{
		opts:    opts,
		clients: make(map[*wsClient]bool),
	}
}

// Router builds the HTTP routes.
func (b *Bridge) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/status", b.handleStatus)
	r.Post("/api/control/{action}", b.handleControl)
	r.Get("/ws", b.handleWS)
	if b.opts.Metrics != nil {
		r.Get("/metrics", b.opts.Metrics.ServeHTTP)
	}

	return r
}

// Serve runs the HTTP server until ctx is cancelled.
func (b *Bridge) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    b.opts.Addr,
		Handler: b.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("bridge listening", "addr", b.opts.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP handlers
// ---------------------------------------------------------------------------

type statusResponse struct {
	Connection string  `json:"connection"`
	Mode       string  `json:"mode"`
	Time       float64 `json:"time"`
	Duration   float64 `json:"duration"`
	Title      string  `json:"title,omitempty"`
	Artist     string  `json:"artist,omitempty"`
	Album      string  `json:"album,omitempty"`
}

func (b *Bridge) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Connection: b.opts.Engine.State().String(),
		Mode:       "stop",
	}

	if st, err := b.opts.Control.Status(r.Context(), b.opts.PlayerID); err == nil {
		resp.Mode = st.Mode
		resp.Time = st.Time
		resp.Duration = st.Duration
		resp.Title = st.Title
		resp.Artist = st.Artist
		resp.Album = st.Album
	} else {
		log.Debugw("status query failed", "err", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleControl forwards a transport trigger to the server's control API;
// the server then drives this player back over the protocol connection.
func (b *Bridge) handleControl(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playerID := b.opts.PlayerID

	var err error
	switch action := chi.URLParam(r, "action"); action {
	case "play":
		err = b.opts.Control.Play(ctx, playerID)
	case "pause":
		err = b.opts.Control.Pause(ctx, playerID)
	case "stop":
		err = b.opts.Control.Stop(ctx, playerID)
	case "next":
		err = b.opts.Control.NextTrack(ctx, playerID)
	case "previous":
		err = b.opts.Control.PreviousTrack(ctx, playerID)
	case "volume":
		level, convErr := strconv.Atoi(r.URL.Query().Get("level"))
		if convErr != nil || level < 0 || level > 100 {
			http.Error(w, "volume requires level=0..100", http.StatusBadRequest)
			return
		}
		err = b.opts.Control.SetVolume(ctx, playerID, level)
	default:
		http.Error(w, "unknown action "+action, http.StatusBadRequest)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ---------------------------------------------------------------------------
// WebSocket event feed
// ---------------------------------------------------------------------------

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writePump() {
	defer c.conn.Close(websocket.StatusNormalClosure, "")
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Debugw("websocket accept failed", "err", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 64)}
	go c.writePump()

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	// Snapshot on join so a client never starts blind.
	snapshot, _ := json.Marshal(map[string]string{
		"type":       "snapshot",
		"connection": b.opts.Engine.State().String(),
	})
	c.send <- snapshot

	// Reads are only consumed to learn about disconnection.
	go func() {
		defer b.removeClient(c)
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
		}
	}()
}

func (b *Bridge) removeClient(c *wsClient) {
	b.mu.Lock()
	if b.clients[c] {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

// Publish fans an engine event out to every connected client. Slow clients
// drop messages rather than stalling the publisher.
func (b *Bridge) Publish(ev engine.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}
