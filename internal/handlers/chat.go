package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"LiveChat/server/internal/appMiddleware"
	"LiveChat/server/internal/db"
	"LiveChat/server/internal/models"
	"LiveChat/server/internal/pubsub"
)

// viewForChat derives the per-viewer fields: name and picture come from the
// other participant, the picture falling back to a random photo. A failing
// photo lookup is logged and surfaces as a null picture, never as an error.
func (h *Handler) viewForChat(ctx context.Context, q db.Querier, chat models.Chat, viewerID int) (models.ChatView, error) {
	view := models.ChatView{Chat: chat}

	other, err := h.chats.GetOtherParticipant(ctx, q, chat.ID, viewerID)
	if err != nil {
		return view, err
	}
	if other != nil {
		view.Name = lo.ToPtr(other.Name)
		if other.Picture != nil {
			view.Picture = other.Picture
		} else {
			url, err := h.photos.Random(ctx, "portrait", "squarish")
			if err != nil {
				log.Printf("Cannot retrieve random photo: %v", err)
			} else {
				view.Picture = &url
			}
		}
	}

	view.LastMessage, err = h.chats.GetLastMessage(ctx, q, chat.ID)
	if err != nil {
		return view, err
	}

	return view, nil
}

func (h *Handler) GetChats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := appMiddleware.UserID(ctx)

	views := []models.ChatView{}
	err := db.WithConn(ctx, h.store, func(conn db.Conn) error {
		chats, err := h.chats.GetChatsByUserID(ctx, conn, userID)
		if err != nil {
			return err
		}
		for _, chat := range chats {
			view, err := h.viewForChat(ctx, conn, chat, userID)
			if err != nil {
				return err
			}
			views = append(views, view)
		}
		return nil
	})
	if err != nil {
		log.Printf("Error getting chats for user %d: %v", userID, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := appMiddleware.UserID(ctx)

	chatID, err := strconv.Atoi(chi.URLParam(r, "chat_id"))
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	var view *models.ChatView
	var messages []models.Message
	err = db.WithConn(ctx, h.store, func(conn db.Conn) error {
		chat, err := h.chats.GetChatByID(ctx, conn, chatID, userID)
		if err != nil || chat == nil {
			return err
		}

		v, err := h.viewForChat(ctx, conn, *chat, userID)
		if err != nil {
			return err
		}
		view = &v

		messages, err = h.chats.GetMessagesByChatID(ctx, conn, chatID)
		return err
	})
	if err != nil {
		log.Printf("Error getting chat %d for user %d: %v", chatID, userID, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// absent and unauthorized look identical
	if view == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chat":     view,
		"messages": messages,
	})
}

func (h *Handler) AddChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := appMiddleware.UserID(ctx)

	var req struct {
		RecipientID int `json:"recipient_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecipientID == 0 {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var chat *models.Chat
	var created bool
	var view models.ChatView
	err := db.WithConn(ctx, h.store, func(conn db.Conn) error {
		var err error
		chat, created, err = h.chats.CreateChat(ctx, conn, userID, req.RecipientID)
		if err != nil || chat == nil {
			return err
		}
		view, err = h.viewForChat(ctx, conn, *chat, userID)
		return err
	})
	if err != nil {
		log.Printf("Error creating chat between users %d and %d: %v", userID, req.RecipientID, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if chat == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	// only a freshly created chat produces an event, a duplicate call returns
	// the existing chat silently
	if created {
		h.broker.Publish(pubsub.TopicChatAdded, models.ChatAdded{Chat: *chat})
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) RemoveChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := appMiddleware.UserID(ctx)

	chatID, err := strconv.Atoi(chi.URLParam(r, "chat_id"))
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	var removed *models.Chat
	var participantIDs []int
	err = db.WithConn(ctx, h.store, func(conn db.Conn) error {
		var err error
		removed, participantIDs, err = h.chats.RemoveChat(ctx, conn, userID, chatID)
		return err
	})
	if err != nil {
		log.Printf("Error removing chat %d for user %d: %v", chatID, userID, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// nil covers both "no such chat" and "not yours to remove"
	if removed == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	// the delete is committed by now; subscribers authorize against the
	// snapshot in the payload
	h.broker.Publish(pubsub.TopicChatRemoved, models.ChatRemoved{
		ChatID:         removed.ID,
		Chat:           *removed,
		ParticipantIDs: participantIDs,
	})

	writeJSON(w, http.StatusOK, map[string]int{"chat_id": removed.ID})
}

func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := appMiddleware.UserID(ctx)

	chatID, err := strconv.Atoi(chi.URLParam(r, "chat_id"))
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var message *models.Message
	err = db.WithConn(ctx, h.store, func(conn db.Conn) error {
		var err error
		message, err = h.chats.AddMessage(ctx, conn, userID, chatID, req.Content)
		return err
	})
	if err != nil {
		log.Printf("Error adding message to chat %d: %v", chatID, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if message == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	h.broker.Publish(pubsub.TopicMessageAdded, models.MessageAdded{Message: *message})

	writeJSON(w, http.StatusOK, message)
}
