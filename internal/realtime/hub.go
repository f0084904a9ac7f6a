package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/offolaunch/launchtrack/internal/ids"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Identity is the authenticated user behind a connection.
type Identity struct {
	ID     string `json:"userId"`
	Name   string `json:"userName"`
	Avatar string `json:"userAvatar,omitempty"`
}

// Authenticator verifies the handshake request before the upgrade.
type Authenticator func(r *http.Request) (Identity, error)

// ProjectAccess decides whether a user may join a project's room.
type ProjectAccess func(ctx context.Context, userID, projectID string) error

// Envelope is every frame sent to clients.
type Envelope struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type HubOptions struct {
	AllowedOrigins []string
	Authenticate   Authenticator
	CanJoin        ProjectAccess
}

// Hub tracks live connections and the rooms they joined. Nothing is
// persisted: a client that was not connected when an event fired never sees it.
type Hub struct {
	lg       *zap.SugaredLogger
	upgrader websocket.Upgrader
	auth     Authenticator
	canJoin  ProjectAccess

	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
}

func NewHub(lg *zap.SugaredLogger, opts HubOptions) *Hub {
	h := &Hub{
		lg:      lg,
		auth:    opts.Authenticate,
		canJoin: opts.CanJoin,
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(opts.AllowedOrigins, origin)
		},
	}
	return h
}

// ServeWS authenticates the request and upgrades it. Unauthenticated requests
// get a 401 and never reach a room.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth(r)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Authentication failed"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Warnw("websocket upgrade failed", "err", err)
		return
	}

	c := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		user:  identity,
		rooms: make(map[string]struct{}),
	}

	h.register(c)
	h.lg.Infow("client connected", "user_id", identity.ID)

	c.emit(EventConnected, map[string]string{"userId": identity.ID})

	go c.writePump()
	go c.readPump()
}

// TokenFromRequest reads a bearer token from the Authorization header or the
// token query parameter, for browsers that cannot set headers on upgrade.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, UserRoom(c.user.ID))
}

func (h *Hub) unregister(c *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return nil
	}
	delete(h.clients, c)

	var projects []string
	for room := range c.rooms {
		if strings.HasPrefix(room, "project:") {
			projects = append(projects, room)
		}
		h.leaveLocked(c, room)
	}
	close(c.send)
	return projects
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(c, room)
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) inRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// broadcast sends one frame to every member of room except skip.
// Clients whose queue is full are disconnected.
func (h *Hub) broadcast(room, event string, data any, skip *Client) {
	frame, err := encode(event, data)
	if err != nil {
		h.lg.Errorw("encode realtime event", "event", event, "err", err)
		return
	}

	var slow []*Client

	h.mu.RLock()
	for c := range h.rooms[room] {
		if c == skip {
			continue
		}
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.lg.Warnw("dropping slow client", "user_id", c.user.ID, "room", room)
		c.close()
	}
}

// ToProject emits an event to everyone viewing a project.
func (h *Hub) ToProject(projectID, event string, data any) {
	h.broadcast(ProjectRoom(projectID), event, data, nil)
}

// ToUser emits an event to every connection of one user.
func (h *Hub) ToUser(userID, event string, data any) {
	h.broadcast(UserRoom(userID), event, data, nil)
}

type Stats struct {
	Clients int            `json:"clients"`
	Rooms   int            `json:"rooms"`
	ByRoom  map[string]int `json:"byRoom"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Stats{Clients: len(h.clients), Rooms: len(h.rooms), ByRoom: make(map[string]int)}
	for room, members := range h.rooms {
		if strings.HasPrefix(room, "project:") {
			s.ByRoom[room] = len(members)
		}
	}
	return s
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(Envelope{ID: ids.New(), Event: event, Data: data})
}
