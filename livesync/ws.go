package livesync

import (
	"context"
	"log"
	"net/http"
	"time"

	"lifeassistant/middleware"
	"lifeassistant/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// NewUpgrader accepts the listed origins; an empty list or "*" accepts any.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
	}}
}

// WebSocketHandler serves GET /api/sync/ws. Browsers cannot set headers on the
// upgrade request, so the token may also come as the "token" query parameter.
func WebSocketHandler(hub *Hub, auth *middleware.Auth, upgrader *websocket.Upgrader) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		token := r.URL.Query().Get("token")
		if token == "" {
			token, _ = middleware.BearerToken(r)
		}
		claims, err := auth.ParseToken(r.Context(), token)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[Sync] upgrade: %v", err)
			return
		}
		client := &Client{
			Conn: conn,
			Send: make(chan []byte, 256),
			Room: claims.UserID,
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		if err := hub.Join(ctx, client); err != nil {
			log.Printf("[Sync] join %s: %v", claims.UserID, err)
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "sync unavailable"))
			conn.Close()
			return
		}
		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the connection going away; clients write through
// the REST routes.
func readPump(c *Client, hub *Hub) {
	defer func() {
		hub.Leave(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}
