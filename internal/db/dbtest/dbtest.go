// Package dbtest is an in-memory stand-in for the Postgres pool, used by
// service and handler tests. It recognizes the statement shapes the services
// issue and keeps users, chats, chats_users and messages as plain slices,
// with snapshot-based transactions and per-statement failure injection.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"LiveChat/server/internal/db"
	"LiveChat/server/internal/models"
)

type state struct {
	nextUserID    int
	nextChatID    int
	nextMessageID int
	users         []models.User
	chats         []models.Chat
	members       []models.ChatParticipant
	messages      []models.Message
}

func (s state) clone() state {
	c := s
	c.users = append([]models.User(nil), s.users...)
	c.chats = append([]models.Chat(nil), s.chats...)
	c.members = append([]models.ChatParticipant(nil), s.members...)
	c.messages = append([]models.Message(nil), s.messages...)
	return c
}

type DB struct {
	mu sync.Mutex
	st state

	// FailOn, when set, is consulted with every statement before it runs; a
	// non-nil result aborts that statement with the returned error.
	FailOn func(sql string) error

	Acquired int
	Released int
}

func New() *DB {
	return &DB{st: state{nextUserID: 1, nextChatID: 1, nextMessageID: 1}}
}

// Seed helpers bypass the SQL dispatch entirely.

func (f *DB) SeedUser(username, name, passwordHash string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := models.User{ID: f.st.nextUserID, Username: username, Name: name, PasswordHash: passwordHash}
	f.st.nextUserID++
	f.st.users = append(f.st.users, user)
	return user
}

func (f *DB) SeedChat(userIDs ...int) models.Chat {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat := models.Chat{ID: f.st.nextChatID, CreatedAt: time.Now()}
	f.st.nextChatID++
	f.st.chats = append(f.st.chats, chat)
	for _, userID := range userIDs {
		f.st.members = append(f.st.members, models.ChatParticipant{ChatID: chat.ID, UserID: userID})
	}
	return chat
}

// Inspection helpers for assertions.

func (f *DB) Chats() []models.Chat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Chat(nil), f.st.chats...)
}

func (f *DB) MemberIDs(chatID int) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int
	for _, m := range f.st.members {
		if m.ChatID == chatID {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

func (f *DB) MessagesIn(chatID int) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var msgs []models.Message
	for _, m := range f.st.messages {
		if m.ChatID == chatID {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// db.Store implementation.

func (f *DB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.run(sql, args); err != nil {
		return nil, err
	}
	return pgconn.CommandTag("OK"), nil
}

func (f *DB) Query(_ context.Context, sql string, args ...interface{}) (db.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows, err := f.run(sql, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: rows}, nil
}

func (f *DB) QueryRow(_ context.Context, sql string, args ...interface{}) db.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows, err := f.run(sql, args)
	if err != nil {
		return &fakeRow{err: err}
	}
	if len(rows) == 0 {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	return &fakeRow{vals: rows[0]}
}

func (f *DB) Begin(context.Context) (db.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &fakeTx{f: f, snapshot: f.st.clone()}, nil
}

func (f *DB) Acquire(context.Context) (db.Conn, error) {
	f.mu.Lock()
	f.Acquired++
	f.mu.Unlock()
	return &fakeConn{f: f}, nil
}

// run dispatches one statement against the table state. The caller holds the
// lock.
func (f *DB) run(sql string, args []interface{}) ([][]interface{}, error) {
	if f.FailOn != nil {
		if err := f.FailOn(sql); err != nil {
			return nil, err
		}
	}

	st := &f.st
	switch {
	case strings.Contains(sql, "SELECT EXISTS") && strings.Contains(sql, "chats_users"):
		chatID, userID := args[0].(int), args[1].(int)
		exists := false
		for _, m := range st.members {
			if m.ChatID == chatID && m.UserID == userID {
				exists = true
			}
		}
		return [][]interface{}{{exists}}, nil

	case strings.Contains(sql, "FROM chats_users"):
		chatID := args[0].(int)
		var rows [][]interface{}
		for _, m := range st.members {
			if m.ChatID == chatID {
				rows = append(rows, []interface{}{m.UserID})
			}
		}
		return rows, nil

	case strings.HasPrefix(sql, "INSERT INTO users"):
		username := args[0].(string)
		for _, u := range st.users {
			if u.Username == username {
				return nil, fmt.Errorf("duplicate key value violates unique constraint %q", "users_username_key")
			}
		}
		user := models.User{ID: st.nextUserID, Username: username, Name: args[1].(string), PasswordHash: args[2].(string)}
		st.nextUserID++
		st.users = append(st.users, user)
		return [][]interface{}{{user.ID}}, nil

	case strings.HasPrefix(sql, "INSERT INTO chats_users"):
		st.members = append(st.members, models.ChatParticipant{ChatID: args[0].(int), UserID: args[1].(int)})
		return nil, nil

	case strings.HasPrefix(sql, "INSERT INTO chats"):
		chat := models.Chat{ID: st.nextChatID, CreatedAt: time.Now()}
		st.nextChatID++
		st.chats = append(st.chats, chat)
		return [][]interface{}{{chat.ID, chat.CreatedAt}}, nil

	case strings.HasPrefix(sql, "INSERT INTO messages"):
		msg := models.Message{
			ID:           st.nextMessageID,
			ChatID:       args[0].(int),
			SenderUserID: args[1].(int),
			Content:      args[2].(string),
			CreatedAt:    time.Now(),
		}
		st.nextMessageID++
		st.messages = append(st.messages, msg)
		return [][]interface{}{{msg.ID, msg.CreatedAt}}, nil

	case strings.HasPrefix(sql, "DELETE FROM chats"):
		chatID := args[0].(int)
		var chats []models.Chat
		for _, c := range st.chats {
			if c.ID != chatID {
				chats = append(chats, c)
			}
		}
		st.chats = chats
		// cascade, as the schema declares
		var members []models.ChatParticipant
		for _, m := range st.members {
			if m.ChatID != chatID {
				members = append(members, m)
			}
		}
		st.members = members
		var messages []models.Message
		for _, m := range st.messages {
			if m.ChatID != chatID {
				messages = append(messages, m)
			}
		}
		st.messages = messages
		return nil, nil

	case strings.Contains(sql, "COUNT(*)") && strings.Contains(sql, "FROM users"):
		username := args[0].(string)
		count := 0
		for _, u := range st.users {
			if u.Username == username {
				count++
			}
		}
		return [][]interface{}{{count}}, nil

	case strings.Contains(sql, "FROM users JOIN chats_users"):
		chatID, viewerID := args[0].(int), args[1].(int)
		var rows [][]interface{}
		for _, m := range st.members {
			if m.ChatID != chatID || m.UserID == viewerID {
				continue
			}
			if u, ok := f.userByID(m.UserID); ok {
				rows = append(rows, []interface{}{u.ID, u.Username, u.Name, u.Picture})
			}
		}
		return rows, nil

	case strings.Contains(sql, "FROM users") && strings.Contains(sql, "username ="):
		username := args[0].(string)
		for _, u := range st.users {
			if u.Username == username {
				return [][]interface{}{{u.ID, u.Username, u.Name, u.PasswordHash, u.Picture}}, nil
			}
		}
		return nil, nil

	case strings.Contains(sql, "FROM users") && strings.Contains(sql, "id <>"):
		viewerID := args[0].(int)
		var rows [][]interface{}
		for _, u := range st.users {
			if u.ID != viewerID {
				rows = append(rows, []interface{}{u.ID, u.Username, u.Name, u.Picture})
			}
		}
		return rows, nil

	case strings.Contains(sql, "FROM users"):
		userID := args[0].(int)
		if u, ok := f.userByID(userID); ok {
			return [][]interface{}{{u.ID, u.Username, u.Name, u.PasswordHash, u.Picture}}, nil
		}
		return nil, nil

	case strings.Contains(sql, "cu2.user_id"):
		userID, otherID := args[0].(int), args[1].(int)
		for _, c := range st.chats {
			if f.isMember(c.ID, userID) && f.isMember(c.ID, otherID) {
				return [][]interface{}{{c.ID, c.CreatedAt}}, nil
			}
		}
		return nil, nil

	// both chats queries share the join clause "ON chats.id = chats_users.chat_id",
	// so they are told apart by their full WHERE shape, not by "chats.id ="
	case strings.Contains(sql, "WHERE (chats.id ="):
		chatID, userID := args[0].(int), args[1].(int)
		for _, c := range st.chats {
			if c.ID == chatID && f.isMember(c.ID, userID) {
				return [][]interface{}{{c.ID, c.CreatedAt}}, nil
			}
		}
		return nil, nil

	case strings.Contains(sql, "WHERE chats_users.user_id ="):
		userID := args[0].(int)
		var rows [][]interface{}
		for _, c := range st.chats {
			if f.isMember(c.ID, userID) {
				rows = append(rows, []interface{}{c.ID, c.CreatedAt})
			}
		}
		return rows, nil

	case strings.Contains(sql, "FROM messages") && strings.Contains(sql, "LIMIT 1"):
		chatID := args[0].(int)
		var last *models.Message
		for i := range st.messages {
			if st.messages[i].ChatID == chatID {
				last = &st.messages[i]
			}
		}
		if last == nil {
			return nil, nil
		}
		return [][]interface{}{{last.ID, last.ChatID, last.SenderUserID, last.Content, last.CreatedAt}}, nil

	case strings.Contains(sql, "FROM messages"):
		chatID := args[0].(int)
		var rows [][]interface{}
		for _, m := range st.messages {
			if m.ChatID == chatID {
				rows = append(rows, []interface{}{m.ID, m.ChatID, m.SenderUserID, m.Content, m.CreatedAt})
			}
		}
		return rows, nil
	}

	return nil, fmt.Errorf("dbtest: unrecognized statement: %s", sql)
}

func (f *DB) userByID(id int) (models.User, bool) {
	for _, u := range f.st.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

func (f *DB) isMember(chatID, userID int) bool {
	for _, m := range f.st.members {
		if m.ChatID == chatID && m.UserID == userID {
			return true
		}
	}
	return false
}

// fakeTx applies statements to the shared state immediately and restores the
// Begin-time snapshot on rollback.
type fakeTx struct {
	f        *DB
	snapshot state
	done     bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return t.f.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...interface{}) (db.Rows, error) {
	return t.f.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...interface{}) db.Row {
	return t.f.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.done = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.f.mu.Lock()
	t.f.st = t.snapshot
	t.f.mu.Unlock()
	return nil
}

type fakeConn struct {
	f *DB
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return c.f.Exec(ctx, sql, args...)
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...interface{}) (db.Rows, error) {
	return c.f.Query(ctx, sql, args...)
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...interface{}) db.Row {
	return c.f.QueryRow(ctx, sql, args...)
}

func (c *fakeConn) Begin(ctx context.Context) (db.Tx, error) {
	return c.f.Begin(ctx)
}

func (c *fakeConn) Release() {
	c.f.mu.Lock()
	c.f.Released++
	c.f.mu.Unlock()
}

type fakeRow struct {
	vals []interface{}
	err  error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

type fakeRows struct {
	rows [][]interface{}
	idx  int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	return scanInto(r.rows[r.idx-1], dest)
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

func scanInto(vals []interface{}, dest []interface{}) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("dbtest: scan expected %d destinations, got %d", len(vals), len(dest))
	}
	for i, v := range vals {
		switch d := dest[i].(type) {
		case *int:
			*d = v.(int)
		case *string:
			*d = v.(string)
		case **string:
			if v == nil {
				*d = nil
			} else {
				*d = v.(*string)
			}
		case *bool:
			*d = v.(bool)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("dbtest: unsupported scan destination %T", dest[i])
		}
	}
	return nil
}
