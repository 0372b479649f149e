package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type RealtimeController struct {
	Hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewRealtimeController accepts any origin when origins is empty or holds "*".
func NewRealtimeController(hub *realtime.Hub, origins []string) *RealtimeController {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &RealtimeController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 || allowed["*"] {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Subscribe -> GET /ws/:restaurantId/:category
func (rc *RealtimeController) Subscribe(c *gin.Context) {
	restaurantID := c.Param("restaurantId")
	category := c.Param("category")
	if !realtime.ValidCategory(category) {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown category %q", category))
		return
	}

	ws, err := rc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	topic := realtime.Topic(restaurantID, category)
	sub := rc.Hub.Connect(topic, ws)
	defer rc.Hub.Disconnect(sub)

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			break
		}
		rc.Hub.RelayClientMessage(topic, frame)
	}
}
