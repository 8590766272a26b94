package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pkt.systems/voxsync/internal/logx"
	"pkt.systems/voxsync/schema"
)

// Config defines relay server settings.
type Config struct {
	Addr string
	// QueueDepth bounds each connection's outbound queue.
	QueueDepth int
}

const defaultQueueDepth = 64

// Server serves the sync WebSocket endpoint and the health probe.
type Server struct {
	cfg      Config
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer constructs a relay server around the hub.
func NewServer(cfg Config, hub *Hub) *Server {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	return &Server{
		cfg: cfg,
		hub: hub,
		upgrader: websocket.Upgrader{
			// Endpoints pair over LAN/USB with no auth layer; accept any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/sync", s.handleSync)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(schema.HealthResponse{
		Status:          "ok",
		ConnectionCount: s.hub.ConnectionCount(),
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.Ctx(r.Context()).Warn("relay upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}

	id := schema.ConnID(uuid.NewString())
	ctx := logx.ContextWithConnLogger(r.Context(), logx.WithConn(r.Context(), id), id)
	peer := newWSPeer(conn, s.cfg.QueueDepth)
	go peer.writeLoop(ctx, id)

	s.hub.Connect(ctx, id, peer)
	defer func() {
		s.hub.Disconnect(ctx, id)
		peer.close()
	}()

	log := logx.WithConn(ctx, id)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("relay read failed", "err", err)
			}
			return
		}
		var env schema.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Debug("relay frame dropped", "err", err)
			continue
		}
		s.hub.HandleEvent(ctx, id, env)
	}
}

// wsPeer serializes writes to one websocket connection through a bounded
// queue so a slow recipient never blocks the hub's broadcast turn.
type wsPeer struct {
	conn *websocket.Conn
	send chan schema.Envelope
	done chan struct{}
}

func newWSPeer(conn *websocket.Conn, depth int) *wsPeer {
	return &wsPeer{
		conn: conn,
		send: make(chan schema.Envelope, depth),
		done: make(chan struct{}),
	}
}

// TrySend implements Peer. Returns false when the queue is full or the
// connection is closing; the event is dropped for this recipient only.
func (p *wsPeer) TrySend(env schema.Envelope) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- env:
		return true
	default:
		return false
	}
}

func (p *wsPeer) writeLoop(ctx context.Context, id schema.ConnID) {
	log := logx.WithConn(ctx, id)
	for {
		select {
		case <-p.done:
			return
		case env := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := p.conn.WriteJSON(env); err != nil {
				log.Debug("relay write failed", "err", err)
				return
			}
		}
	}
}

func (p *wsPeer) close() {
	select {
	case <-p.done:
		return
	default:
		close(p.done)
	}
	_ = p.conn.Close()
}
