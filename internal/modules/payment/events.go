package payment

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"subpay/internal/domain"
	"subpay/internal/pkg/jwt"
)

// StatusEvent is pushed to a user's dashboard when one of their payments
// transitions state.
type StatusEvent struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Status         string `json:"status"`
	Plan           string `json:"plan"`
}

// EventsHub keeps one websocket connection per user and delivers their
// payment status transitions. Delivery is best effort; the database remains
// the source of truth.
type EventsHub struct {
	connections map[int64]*websocket.Conn
	mutex       sync.RWMutex
}

func NewEventsHub() *EventsHub {
	return &EventsHub{connections: make(map[int64]*websocket.Conn)}
}

func (h *EventsHub) Register(userID int64, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if old, exists := h.connections[userID]; exists && old != nil {
		_ = old.Close()
	}
	h.connections[userID] = conn
}

func (h *EventsHub) Unregister(userID int64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if conn, exists := h.connections[userID]; exists && conn != nil {
		_ = conn.Close()
		delete(h.connections, userID)
	}
}

// PublishStatus implements the service's event publisher.
func (h *EventsHub) PublishStatus(userID int64, gatewayOrderID string, status domain.PaymentStatus, plan domain.Plan) {
	h.mutex.RLock()
	conn, exists := h.connections[userID]
	h.mutex.RUnlock()

	if !exists || conn == nil {
		return
	}
	event := StatusEvent{GatewayOrderID: gatewayOrderID, Status: string(status), Plan: string(plan)}
	if err := conn.WriteJSON(event); err != nil {
		h.Unregister(userID)
	}
}

func (h *EventsHub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for userID, conn := range h.connections {
		if conn != nil {
			_ = conn.Close()
		}
		delete(h.connections, userID)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades dashboard clients onto the events hub.
type WSHandler struct {
	hub        *EventsHub
	jwtService *jwt.Service
}

func NewWSHandler(hub *EventsHub, jwtService *jwt.Service) *WSHandler {
	return &WSHandler{hub: hub, jwtService: jwtService}
}

// HandleEvents godoc
// @Summary      Live payment status feed
// @Description  Websocket endpoint; authenticate with ?token=JWT since websockets cannot send headers
// @Tags         Payments
// @Router       /payments/events/ws [get]
func (h *WSHandler) HandleEvents(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required. Use ?token=YOUR_JWT_TOKEN"})
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	h.hub.Register(claims.UserID, conn)

	// Reads are discarded; the socket exists for server pushes only. The
	// read loop detects disconnects.
	go func() {
		defer h.hub.Unregister(claims.UserID)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WSHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/payments/events/ws", h.HandleEvents)
}
