package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // En développement, toutes les origines sont acceptées
	},
}

// GlobalHub est l'unique hub de notifications de l'application.
var GlobalHub = NewHub()

// Notification est un événement poussé au navigateur: avancement d'un scan,
// tâche attribuée, commission validée.
type Notification struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type wsClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// Hub distribue les notifications aux utilisateurs connectés.
type Hub struct {
	clients    map[uint]*wsClient
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		clients:    make(map[uint]*wsClient),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("Abonné notifications connecté", "userID", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("Abonné notifications déconnecté", "userID", client.userID)
		}
	}
}

// NotifyUser pousse une notification à un utilisateur s'il est en ligne.
// Silencieux sinon: les notifications sont un confort, pas un canal fiable.
func (h *Hub) NotifyUser(userID uint, notificationType string, payload interface{}) {
	data, err := json.Marshal(Notification{Type: notificationType, Payload: payload})
	if err != nil {
		slog.Error("Sérialisation de notification en échec", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[userID]; ok {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, userID)
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// Le canal est unidirectionnel serveur vers client: on ne lit que
		// pour détecter la fermeture.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Fermeture websocket inattendue", "error", err)
			}
			break
		}
	}
}

func (c *wsClient) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Error("Écriture websocket en échec", "error", err)
			return
		}
	}
}

// NotificationsWSEndpoint ouvre le canal de notifications de l'utilisateur
// authentifié.
func NotificationsWSEndpoint(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Passage en WebSocket en échec", "error", err)
		return
	}

	client := &wsClient{
		hub:    GlobalHub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID.(uint),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
