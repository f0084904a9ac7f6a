package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/offolaunch/launchtrack/internal/ids"
)

const joinCheckTimeout = 5 * time.Second

// Client is one websocket connection. rooms is guarded by hub.mu.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	user  Identity
	rooms map[string]struct{}

	closeOnce sync.Once
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type projectRef struct {
	ProjectID string `json:"projectId"`
}

type commentIn struct {
	PermitID  string `json:"permitId"`
	ProjectID string `json:"projectId"`
	Comment   string `json:"comment"`
}

type typingIn struct {
	PermitID  string `json:"permitId"`
	ProjectID string `json:"projectId"`
	IsTyping  bool   `json:"isTyping"`
}

func (c *Client) close() {
	c.closeOnce.Do(func() { _ = c.conn.Close() })
}

// emit queues a frame for this connection only.
func (c *Client) emit(event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *Client) fail(event, message string) {
	c.emit(EventError, map[string]string{"event": event, "message": message})
}

func (c *Client) readPump() {
	defer func() {
		rooms := c.hub.unregister(c)
		for _, room := range rooms {
			c.hub.broadcast(room, EventUserLeft, map[string]any{
				"userId":    c.user.ID,
				"userName":  c.user.Name,
				"timestamp": time.Now().UTC(),
			}, nil)
		}
		c.close()
		c.hub.lg.Infow("client disconnected", "user_id", c.user.ID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.lg.Warnw("websocket read error", "user_id", c.user.ID, "err", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			c.fail("", "malformed message")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Event {
	case EventProjectJoin:
		projectID, err := parseProjectID(msg.Data)
		if err != nil {
			c.fail(msg.Event, err.Error())
			return
		}
		c.joinProject(projectID)

	case EventProjectLeave:
		projectID, err := parseProjectID(msg.Data)
		if err != nil {
			c.fail(msg.Event, err.Error())
			return
		}
		c.hub.leave(c, ProjectRoom(projectID))
		c.emit(EventProjectLeft, projectRef{ProjectID: projectID})

	case EventPermitComment:
		var in commentIn
		if err := json.Unmarshal(msg.Data, &in); err != nil || in.ProjectID == "" || in.Comment == "" {
			c.fail(msg.Event, "projectId and comment are required")
			return
		}
		if !c.hub.inRoom(c, ProjectRoom(in.ProjectID)) {
			c.fail(msg.Event, "join the project first")
			return
		}
		c.hub.ToProject(in.ProjectID, EventPermitCommentNew, map[string]any{
			"id":         ids.New(),
			"permitId":   in.PermitID,
			"userId":     c.user.ID,
			"userName":   c.user.Name,
			"userAvatar": c.user.Avatar,
			"comment":    in.Comment,
			"timestamp":  time.Now().UTC(),
		})

	case EventPermitTyping:
		var in typingIn
		if err := json.Unmarshal(msg.Data, &in); err != nil || in.ProjectID == "" {
			c.fail(msg.Event, "projectId is required")
			return
		}
		room := ProjectRoom(in.ProjectID)
		if !c.hub.inRoom(c, room) {
			c.fail(msg.Event, "join the project first")
			return
		}
		c.hub.broadcast(room, EventPermitTypingUpdate, map[string]any{
			"permitId": in.PermitID,
			"userId":   c.user.ID,
			"userName": c.user.Name,
			"isTyping": in.IsTyping,
		}, c)

	case EventProjectPresence:
		projectID, err := parseProjectID(msg.Data)
		if err != nil {
			c.fail(msg.Event, err.Error())
			return
		}
		if !c.hub.inRoom(c, ProjectRoom(projectID)) {
			c.fail(msg.Event, "join the project first")
			return
		}
		c.hub.ToProject(projectID, EventUserJoined, map[string]any{
			"userId":     c.user.ID,
			"userName":   c.user.Name,
			"userAvatar": c.user.Avatar,
			"timestamp":  time.Now().UTC(),
		})

	default:
		c.fail(msg.Event, "unknown event")
	}
}

func (c *Client) joinProject(projectID string) {
	if c.hub.canJoin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), joinCheckTimeout)
		err := c.hub.canJoin(ctx, c.user.ID, projectID)
		cancel()
		if err != nil {
			c.fail(EventProjectJoin, "access denied")
			return
		}
	}
	c.hub.join(c, ProjectRoom(projectID))
	c.emit(EventProjectJoined, projectRef{ProjectID: projectID})
}

// parseProjectID accepts either "id" or {"projectId": "id"}.
func parseProjectID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil && id != "" {
		return id, nil
	}
	var ref projectRef
	if err := json.Unmarshal(data, &ref); err == nil && ref.ProjectID != "" {
		return ref.ProjectID, nil
	}
	return "", errors.New("projectId is required")
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
