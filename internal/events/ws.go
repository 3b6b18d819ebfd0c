package events

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // cache serves localhost consumers only
	},
}

func WSHandler(hub *Hub, epoch func() int64) gin.HandlerFunc {
	if epoch == nil {
		epoch = func() int64 { return 0 }
	}
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		hub.AddWS(ws)
		log.Println("[ws] client connected")

		welcome := fmt.Sprintf(`{"type":"welcome","transport":"websocket","epoch":%d}`+"\n", epoch())
		_ = ws.WriteMessage(websocket.TextMessage, []byte(welcome))

		// Keep connection alive (ignore incoming messages)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		log.Println("[ws] client disconnected")
	}
}
