package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades GET /ws to the realtime protocol. The endpoint itself
// is public: the browser WebSocket API cannot set headers, so the
// credential travels in the first connect event, not on the upgrade.
func (h *Hub) HandleWS(c *gin.Context) {
	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConn(h, sock)
	h.addConn(conn)

	go conn.writePump()
	conn.readPump()
}
