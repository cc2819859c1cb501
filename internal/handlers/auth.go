package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"LiveChat/server/internal/db"
	"LiveChat/server/internal/models"
	"LiveChat/server/internal/utils"
)

type signUpRequest struct {
	Name            string `json:"name" validate:"required,min=3,max=50"`
	Username        string `json:"username" validate:"required,min=3,max=18"`
	Password        string `json:"password" validate:"required,min=8,max=30,password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required"`
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Printf("Invalid sign-up request: %v", err)
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Password != req.PasswordConfirm {
		writeMessage(w, http.StatusBadRequest, models.ErrPasswordConfirm.Error())
		return
	}

	ctx := r.Context()
	var user *models.User
	err := db.WithConn(ctx, h.store, func(conn db.Conn) error {
		exists, err := h.users.CheckUserExists(ctx, conn, req.Username)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrUsernameTaken
		}

		user, err = h.users.CreateUser(ctx, conn, req.Name, req.Username, req.Password)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrUsernameTaken) {
			writeMessage(w, http.StatusConflict, err.Error())
			return
		}
		log.Printf("Error signing up %s: %v", req.Username, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var user *models.User
	err := db.WithConn(ctx, h.store, func(conn db.Conn) error {
		var err error
		user, err = h.users.GetUserByUsername(ctx, conn, req.Username)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		log.Printf("Error fetching user %s: %v", req.Username, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := utils.CheckPasswordHash(req.Password, user.PasswordHash); err != nil {
		log.Printf("Password verification failed for user %d", user.ID)
		writeMessage(w, http.StatusUnauthorized, models.ErrWrongPassword.Error())
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(h.jwtTTL).Unix(),
	})

	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		log.Printf("Error creating token for user %d: %v", user.ID, err)
		writeMessage(w, http.StatusInternalServerError, "Token creation error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": tokenString,
		"user":  user,
	})
}
