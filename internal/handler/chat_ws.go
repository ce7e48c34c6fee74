package handler

import (
	"net/http"
	"strconv"
	"time"

	"ecodesk/config"
	"ecodesk/internal/auth"
	"ecodesk/internal/domain"
	"ecodesk/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UpgradeChatWS upgrades to a WebSocket scoped to one conversation; query:
// token, conversation_id. Membership is authorized before the connection
// joins the group; a denied or failed connect closes the socket without
// leaking history.
func UpgradeChatWS(cfg *config.Config, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		convStr := c.Query("conversation_id")
		if token == "" || convStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token and conversation_id required"})
			return
		}
		claims, err := auth.ParseToken(&cfg.JWT, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		convID, err := strconv.ParseUint(convStr, 10, 64)
		if err != nil || convID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation_id"})
			return
		}

		conn, err := chatUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		connID := uuid.New().String()
		client, err := hub.Connect(connID, claims.UserID, claims.Username, claims.IsStaff, uint(convID))
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, ws.EncodeError(err.Error(), domain.IsStorage(err)))
			return
		}
		defer hub.Disconnect(connID)

		pongWait := cfg.Presence.PongWait
		writeWait := cfg.Presence.WriteWait
		pingPeriod := pongWait * 9 / 10

		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			hub.Heartbeat(connID)
			return nil
		})

		go writePump(conn, client, writeWait, pingPeriod)

		// Read loop: an idle timeout, protocol close or hub-side teardown
		// lands here, and the deferred Disconnect handles group removal plus
		// presence.
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			frame, err := ws.DecodeFrame(raw)
			if err != nil {
				client.TrySend(ws.EncodeError(err.Error(), false))
				continue
			}
			switch f := frame.(type) {
			case ws.MessageFrame:
				if err := hub.SendMessage(connID, f.Text, f.Attachment); err != nil {
					client.TrySend(ws.EncodeError(err.Error(), domain.IsStorage(err)))
				}
			case ws.TypingFrame:
				hub.SendTyping(connID, f.IsTyping)
			case ws.ReadFrame:
				if err := hub.MarkRead(connID, f.MessageIDs); err != nil {
					client.TrySend(ws.EncodeError(err.Error(), domain.IsStorage(err)))
				}
			}
		}
	}
}

// writePump drains the client's outbound queue onto the socket and keeps the
// connection alive with pings. When the hub closes the client, the queue
// closes; the pump then sends a close frame and tears the transport down so
// the peer's read side exits right away instead of idling out on the pong
// deadline.
func writePump(conn *websocket.Conn, client *ws.Client, writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-client.Outbound():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				conn.Close()
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
