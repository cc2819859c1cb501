package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"LiveChat/server/internal/models"
)

func TestMe(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")

	status, raw := e.do(t, http.MethodGet, "/api/me", tokenFor(t, alice.ID), nil)
	req.Equal(http.StatusOK, status)

	var user models.User
	req.NoError(json.Unmarshal(raw, &user))
	req.Equal(alice.ID, user.ID)

	status, _ = e.do(t, http.MethodGet, "/api/me", "", nil)
	req.Equal(http.StatusUnauthorized, status)
}

func TestGetUsers_ExcludesSelf(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	e.fake.SeedUser("bob", "Bob", "hash")

	status, raw := e.do(t, http.MethodGet, "/api/users", tokenFor(t, alice.ID), nil)
	req.Equal(http.StatusOK, status)

	var users []models.User
	req.NoError(json.Unmarshal(raw, &users))
	req.Len(users, 1)
	req.Equal("bob", users[0].Username)
}

func TestGetChats_DerivesViewFromOtherParticipant(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	bob := e.fake.SeedUser("bob", "Bob", "hash")
	chat := e.fake.SeedChat(alice.ID, bob.ID)

	status, raw := e.do(t, http.MethodGet, "/api/chats", tokenFor(t, alice.ID), nil)
	req.Equal(http.StatusOK, status)

	var views []models.ChatView
	req.NoError(json.Unmarshal(raw, &views))
	req.Len(views, 1)
	req.Equal(chat.ID, views[0].ID)
	req.NotNil(views[0].Name)
	req.Equal("Bob", *views[0].Name)
	// photo lookup is not configured: picture degrades to null
	req.Nil(views[0].Picture)
}

func TestGetChat_OpaqueForNonParticipants(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	bob := e.fake.SeedUser("bob", "Bob", "hash")
	carol := e.fake.SeedUser("carol", "Carol", "hash")
	chat := e.fake.SeedChat(alice.ID, bob.ID)

	status, raw := e.do(t, http.MethodGet, fmt.Sprintf("/api/chat/%d", chat.ID), tokenFor(t, alice.ID), nil)
	req.Equal(http.StatusOK, status)
	var resp struct {
		Chat models.ChatView `json:"chat"`
	}
	req.NoError(json.Unmarshal(raw, &resp))
	req.Equal(chat.ID, resp.Chat.ID)

	// non-participant and nonexistent chat look the same
	status, raw = e.do(t, http.MethodGet, fmt.Sprintf("/api/chat/%d", chat.ID), tokenFor(t, carol.ID), nil)
	req.Equal(http.StatusOK, status)
	req.JSONEq("null", string(raw))

	status, raw = e.do(t, http.MethodGet, "/api/chat/999", tokenFor(t, alice.ID), nil)
	req.Equal(http.StatusOK, status)
	req.JSONEq("null", string(raw))
}

func TestGetChat_IncludesMessages(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	bob := e.fake.SeedUser("bob", "Bob", "hash")
	chat := e.fake.SeedChat(alice.ID, bob.ID)

	status, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/chat/%d/messages", chat.ID), tokenFor(t, alice.ID), map[string]string{"content": "hi"})
	req.Equal(http.StatusOK, status)

	status, raw := e.do(t, http.MethodGet, fmt.Sprintf("/api/chat/%d", chat.ID), tokenFor(t, bob.ID), nil)
	req.Equal(http.StatusOK, status)

	var resp struct {
		Chat     models.ChatView  `json:"chat"`
		Messages []models.Message `json:"messages"`
	}
	req.NoError(json.Unmarshal(raw, &resp))
	req.Equal(chat.ID, resp.Chat.ID)
	req.Len(resp.Messages, 1)
	req.Equal("hi", resp.Messages[0].Content)
	req.NotNil(resp.Chat.LastMessage)
	req.Equal("hi", resp.Chat.LastMessage.Content)
}
