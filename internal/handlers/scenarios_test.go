package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"LiveChat/server/internal/models"
)

// End-to-end paths: mutation over HTTP, events out over live websocket
// subscriptions, visibility decided per subscriber.

func TestScenario_AddChatNotifiesOnlyParticipants(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	bob := e.fake.SeedUser("bob", "Bob", "hash")
	carol := e.fake.SeedUser("carol", "Carol", "hash")

	bobWS := e.dialWS(t, tokenFor(t, bob.ID))
	carolWS := e.dialWS(t, tokenFor(t, carol.ID))

	status, raw := e.do(t, http.MethodPost, "/api/chats", tokenFor(t, alice.ID), map[string]int{"recipient_id": bob.ID})
	req.Equal(http.StatusOK, status)

	var view models.ChatView
	req.NoError(json.Unmarshal(raw, &view))
	req.NotZero(view.ID)
	req.NotNil(view.Name)
	req.Equal("Bob", *view.Name)
	req.ElementsMatch([]int{alice.ID, bob.ID}, e.fake.MemberIDs(view.ID))

	frame := readFrame(t, bobWS)
	req.Equal("chatAdded", frame.Event)
	var added models.ChatAdded
	req.NoError(json.Unmarshal(frame.Data, &added))
	req.Equal(view.ID, added.Chat.ID)

	// carol is not a participant and must stay silent
	expectNoFrame(t, carolWS)
}

func TestScenario_DuplicateAddChatPublishesNothing(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	bob := e.fake.SeedUser("bob", "Bob", "hash")

	bobWS := e.dialWS(t, tokenFor(t, bob.ID))

	status, raw := e.do(t, http.MethodPost, "/api/chats", tokenFor(t, alice.ID), map[string]int{"recipient_id": bob.ID})
	req.Equal(http.StatusOK, status)
	var first models.ChatView
	req.NoError(json.Unmarshal(raw, &first))

	frame := readFrame(t, bobWS)
	req.Equal("chatAdded", frame.Event)

	// second call returns the same chat and stays silent
	status, raw = e.do(t, http.MethodPost, "/api/chats", tokenFor(t, alice.ID), map[string]int{"recipient_id": bob.ID})
	req.Equal(http.StatusOK, status)
	var second models.ChatView
	req.NoError(json.Unmarshal(raw, &second))
	req.Equal(first.ID, second.ID)
	req.Len(e.fake.Chats(), 1)

	expectNoFrame(t, bobWS)
}

func TestScenario_AddMessageReachesParticipantNotAnonymous(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	bob := e.fake.SeedUser("bob", "Bob", "hash")
	chat := e.fake.SeedChat(alice.ID, bob.ID)

	bobWS := e.dialWS(t, tokenFor(t, bob.ID))
	anonWS := e.dialWS(t, "")

	status, raw := e.do(t, http.MethodPost, fmt.Sprintf("/api/chat/%d/messages", chat.ID), tokenFor(t, alice.ID), map[string]string{"content": "hi"})
	req.Equal(http.StatusOK, status)

	var message models.Message
	req.NoError(json.Unmarshal(raw, &message))
	req.Equal(alice.ID, message.SenderUserID)

	frame := readFrame(t, bobWS)
	req.Equal("messageAdded", frame.Event)
	var added models.MessageAdded
	req.NoError(json.Unmarshal(frame.Data, &added))
	req.Equal("hi", added.Message.Content)
	req.Equal(chat.ID, added.Message.ChatID)

	expectNoFrame(t, anonWS)
}

func TestScenario_RemoveChatNotifiesOtherParticipantOnly(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	bob := e.fake.SeedUser("bob", "Bob", "hash")
	carol := e.fake.SeedUser("carol", "Carol", "hash")
	chat := e.fake.SeedChat(alice.ID, bob.ID)

	bobWS := e.dialWS(t, tokenFor(t, bob.ID))
	carolWS := e.dialWS(t, tokenFor(t, carol.ID))

	status, raw := e.do(t, http.MethodDelete, fmt.Sprintf("/api/chat/%d", chat.ID), tokenFor(t, alice.ID), nil)
	req.Equal(http.StatusOK, status)
	req.Contains(string(raw), "chat_id")

	req.Empty(e.fake.Chats())
	req.Empty(e.fake.MemberIDs(chat.ID))

	frame := readFrame(t, bobWS)
	req.Equal("chatRemoved", frame.Event)
	var removed models.ChatRemoved
	req.NoError(json.Unmarshal(frame.Data, &removed))
	req.Equal(chat.ID, removed.ChatID)

	expectNoFrame(t, carolWS)
}

func TestScenario_RemoveChatIsOpaqueToNonParticipants(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	bob := e.fake.SeedUser("bob", "Bob", "hash")
	carol := e.fake.SeedUser("carol", "Carol", "hash")
	chat := e.fake.SeedChat(alice.ID, bob.ID)

	status, raw := e.do(t, http.MethodDelete, fmt.Sprintf("/api/chat/%d", chat.ID), tokenFor(t, carol.ID), nil)
	req.Equal(http.StatusOK, status)
	req.JSONEq("null", string(raw))
	req.Len(e.fake.Chats(), 1)
}

func TestScenario_MessagesArriveInSendOrder(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.fake.SeedUser("alice", "Alice", "hash")
	bob := e.fake.SeedUser("bob", "Bob", "hash")
	chat := e.fake.SeedChat(alice.ID, bob.ID)

	bobWS := e.dialWS(t, tokenFor(t, bob.ID))

	const n = 10
	for i := 0; i < n; i++ {
		status, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/chat/%d/messages", chat.ID), tokenFor(t, alice.ID), map[string]string{
			"content": fmt.Sprintf("message %d", i),
		})
		req.Equal(http.StatusOK, status)
	}

	for i := 0; i < n; i++ {
		frame := readFrame(t, bobWS)
		req.Equal("messageAdded", frame.Event)
		var added models.MessageAdded
		req.NoError(json.Unmarshal(frame.Data, &added))
		req.Equal(fmt.Sprintf("message %d", i), added.Message.Content)
	}
}
