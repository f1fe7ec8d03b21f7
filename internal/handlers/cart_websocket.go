package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsPingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Le filtrage des origines est fait par le middleware CORS
		return true
	},
}

// CartWebSocket pousse le panier de la session à chaque modification.
func (h *Handler) CartWebSocket(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Synchronisation temps réel indisponible"})
		return
	}
	s, ok := currentSession(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	pubsub := h.events.Subscribe(ctx, s.ID)
	defer pubsub.Close()
	// Attendre la confirmation d'abonnement avant d'annoncer la connexion
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("❌ Abonnement panier %s: %v", s.ID, err)
		return
	}
	ch := pubsub.Channel()

	// Lecture en tâche de fond pour détecter la fermeture côté client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := func(kind string) error {
		ct, err := h.carts.Get(ctx, s.ID)
		if err != nil {
			return err
		}
		msg := cartResponse(ct)
		msg["type"] = kind
		return conn.WriteJSON(msg)
	}

	if err := push("connected"); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := push("cart_updated"); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
