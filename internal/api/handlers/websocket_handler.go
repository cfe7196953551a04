package handlers

import (
	"auction-engine/internal/infrastructure/websocket"
	"auction-engine/pkg/logger"
	"net/http"

	"github.com/gorilla/mux"
)

type WebSocketHandlers struct {
	wsHandler *websocket.WebSocketHandler
}

func NewWebSocketHandlers(connManager *websocket.ConnectionManager, log logger.Logger) *WebSocketHandlers {
	return &WebSocketHandlers{
		wsHandler: websocket.NewWebSocketHandler(connManager, log),
	}
}

func (h *WebSocketHandlers) HandleConnection(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleConnection(w, r)
}

// Router exposes /ws/{identity} plus a health check for the notification gateway.
func (h *WebSocketHandlers) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws/{identity}", h.HandleConnection)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")
	return router
}
