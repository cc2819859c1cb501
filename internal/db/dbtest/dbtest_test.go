package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// The single-chat lookup and the chat list render the same join clause, so a
// naive substring match can send the list query (one argument) into the
// scoped case (two arguments). Both shapes below are squirrel's exact output.
func TestDispatch_DisambiguatesChatQueries(t *testing.T) {
	req := require.New(t)
	fake := New()
	alice := fake.SeedUser("alice", "Alice", "x")
	bob := fake.SeedUser("bob", "Bob", "x")
	carol := fake.SeedUser("carol", "Carol", "x")
	first := fake.SeedChat(alice.ID, bob.ID)
	second := fake.SeedChat(alice.ID, carol.ID)

	scoped := "SELECT chats.id, chats.created_at FROM chats JOIN chats_users ON chats.id = chats_users.chat_id WHERE (chats.id = $1 AND chats_users.user_id = $2)"
	var chatID int
	var createdAt time.Time
	err := fake.QueryRow(context.Background(), scoped, first.ID, alice.ID).Scan(&chatID, &createdAt)
	req.NoError(err)
	req.Equal(first.ID, chatID)

	list := "SELECT chats.id, chats.created_at FROM chats JOIN chats_users ON chats.id = chats_users.chat_id WHERE chats_users.user_id = $1 ORDER BY chats.created_at ASC"
	rows, err := fake.Query(context.Background(), list, alice.ID)
	req.NoError(err)
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		var created time.Time
		req.NoError(rows.Scan(&id, &created))
		ids = append(ids, id)
	}
	req.ElementsMatch([]int{first.ID, second.ID}, ids)
}
