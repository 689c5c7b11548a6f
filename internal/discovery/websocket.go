package discovery

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Configure origin checking in production
		return true
	},
}

// Hub delivers match events to connected clients. It is the in-app "it's a
// match" signal, not a chat transport: the only event type is new_match.
type Hub struct {
	clients    map[int64]*wsClient
	broadcast  chan Event
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
}

type wsClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Event
	userID int64
}

// Event is one message on the feed
type Event struct {
	Type   string      `json:"type"`
	UserID int64       `json:"-"`
	Data   interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]*wsClient),
		broadcast:  make(chan Event),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.userID] = client

		case client := <-h.unregister:
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
			}

		case event := <-h.broadcast:
			if client, ok := h.clients[event.UserID]; ok {
				select {
				case client.send <- event:
				default:
					close(client.send)
					delete(h.clients, client.userID)
				}
			}

		case <-h.done:
			for userID, client := range h.clients {
				close(client.send)
				delete(h.clients, userID)
			}
			return
		}
	}
}

// Shutdown disconnects all clients and stops the hub loop
func (h *Hub) Shutdown() {
	close(h.done)
}

// NotifyMatch pushes the new match to both participants. Implements
// MatchNotifier for the swipe resolver.
func (h *Hub) NotifyMatch(user1ID, user2ID int64, match *Match) {
	for _, userID := range []int64{user1ID, user2ID} {
		select {
		case h.broadcast <- Event{Type: "new_match", UserID: userID, Data: match}:
		case <-h.done:
			return
		}
	}
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		hub:    h,
		conn:   conn,
		send:   make(chan Event, 16),
		userID: userID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		// Hub is gone; nobody will ever drain register
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		// Clients send nothing meaningful; reads only detect disconnects
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
