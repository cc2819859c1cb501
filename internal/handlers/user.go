package handlers

import (
	"log"
	"net/http"

	"LiveChat/server/internal/appMiddleware"
	"LiveChat/server/internal/db"
	"LiveChat/server/internal/models"
)

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := appMiddleware.UserID(ctx)

	var user *models.User
	err := db.WithConn(ctx, h.store, func(conn db.Conn) error {
		var err error
		user, err = h.users.GetUserByID(ctx, conn, userID)
		return err
	})
	if err != nil {
		log.Printf("Error getting user %d: %v", userID, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := appMiddleware.UserID(ctx)

	var users []models.User
	err := db.WithConn(ctx, h.store, func(conn db.Conn) error {
		var err error
		users, err = h.users.GetOtherUsers(ctx, conn, userID)
		return err
	})
	if err != nil {
		log.Printf("Error listing users for user %d: %v", userID, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
