package handlers

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"LiveChat/server/internal/appMiddleware"
	"LiveChat/server/internal/pubsub"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// WebSocket is the subscription endpoint: one connection consumes all three
// topics through the per-user filter. The token is optional; a connection
// without one stays open but the filter delivers it nothing.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := 0
	if tokenStr := r.URL.Query().Get("token"); tokenStr != "" {
		id, err := appMiddleware.ParseToken(h.jwtSecret, tokenStr)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		userID = id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("User %d connected to WebSocket", userID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	topics := []pubsub.Topic{pubsub.TopicMessageAdded, pubsub.TopicChatAdded, pubsub.TopicChatRemoved}

	events := make(chan wsEvent)
	var wg sync.WaitGroup
	for _, topic := range topics {
		sub := h.broker.Subscribe(topic)
		defer sub.Close()

		wg.Add(1)
		go func(sub *pubsub.Subscription) {
			defer wg.Done()
			for event := range h.filter.Stream(ctx, sub, userID) {
				select {
				case events <- wsEvent{Event: string(sub.Topic()), Data: event}:
				case <-ctx.Done():
					return
				}
			}
		}(sub)
	}
	go func() {
		wg.Wait()
		close(events)
	}()

	// all subscriptions are registered once the client sees this frame
	if err := conn.WriteJSON(wsEvent{Event: "connected"}); err != nil {
		log.Printf("Error sending connected frame to user %d: %v", userID, err)
		return
	}

	// the read loop only notices the peer going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("Error sending event to user %d: %v", userID, err)
			cancel()
		}
	}

	log.Printf("User %d disconnected from WebSocket", userID)
}
