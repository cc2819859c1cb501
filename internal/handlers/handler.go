package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"LiveChat/server/internal/appMiddleware"
	"LiveChat/server/internal/db"
	"LiveChat/server/internal/photos"
	"LiveChat/server/internal/pubsub"
	"LiveChat/server/internal/services"
	"LiveChat/server/internal/subscriptions"
)

type Handler struct {
	store     db.Store
	users     *services.UserService
	chats     *services.ChatService
	broker    *pubsub.Broker
	filter    *subscriptions.Filter
	photos    *photos.Client
	validate  *validator.Validate
	jwtSecret string
	jwtTTL    time.Duration
}

func New(store db.Store, broker *pubsub.Broker, filter *subscriptions.Filter, photosClient *photos.Client, jwtSecret string, jwtTTL time.Duration) *Handler {
	return &Handler{
		store:     store,
		users:     services.NewUserService(),
		chats:     services.NewChatService(),
		broker:    broker,
		filter:    filter,
		photos:    photosClient,
		validate:  newValidator(),
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// only fails for a nil function or an empty tag name
	if err := v.RegisterValidation("password", passwordRule); err != nil {
		panic(err)
	}
	return v
}

// passwordRule requires an english letter, a digit and a special character.
// Length bounds stay on the field tag.
func passwordRule(fl validator.FieldLevel) bool {
	var letter, digit, special bool
	for _, r := range fl.Field().String() {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	return letter && digit && special
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(appMiddleware.Cors)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/signup", h.SignUp)
	r.Post("/signin", h.SignIn)

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(h.jwtSecret))
		r.Get("/api/me", h.Me)
		r.Get("/api/users", h.GetUsers)
		r.Get("/api/chats", h.GetChats)
		r.Post("/api/chats", h.AddChat)
		r.Get("/api/chat/{chat_id}", h.GetChat)
		r.Delete("/api/chat/{chat_id}", h.RemoveChat)
		r.Post("/api/chat/{chat_id}/messages", h.AddMessage)
	})

	r.Get("/ws", h.WebSocket)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
