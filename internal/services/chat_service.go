package services

import (
	"context"
	"errors"
	"log"

	"LiveChat/server/internal/db"
	"LiveChat/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

type ChatService struct{}

func NewChatService() *ChatService {
	return &ChatService{}
}

// CreateChat returns the chat between the two users, creating it when none
// exists. The duplicate check is a best-effort read before the transaction;
// two concurrent calls for the same pair can still race (no uniqueness
// constraint on the participant pair). The boolean reports whether a new chat
// row was written, so the caller knows whether to publish chatAdded.
//
// Chat and both participant rows are written in one transaction: on any
// failure after BEGIN everything is rolled back and a chat never exists
// without both participants.
func (cs *ChatService) CreateChat(ctx context.Context, q db.DB, currentUserID, recipientID int) (*models.Chat, bool, error) {
	if currentUserID == 0 {
		return nil, false, nil
	}

	existing, err := cs.FindChatBetween(ctx, q, currentUserID, recipientID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		log.Printf("Chat %d already exists between users %d and %d", existing.ID, currentUserID, recipientID)
		return existing, false, nil
	}

	tx, err := q.Begin(ctx)
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		return nil, false, err
	}

	var chat models.Chat
	err = tx.QueryRow(ctx, `INSERT INTO chats DEFAULT VALUES RETURNING id, created_at`).Scan(&chat.ID, &chat.CreatedAt)
	if err != nil {
		log.Printf("Error inserting chat: %v", err)
		tx.Rollback(ctx)
		return nil, false, err
	}

	for _, userID := range []int{currentUserID, recipientID} {
		query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
			Insert("chats_users").
			Columns("chat_id", "user_id").
			Values(chat.ID, userID)

		sqlStr, args, err := query.ToSql()
		if err != nil {
			log.Printf("Failed to build SQL query: %v", err)
			tx.Rollback(ctx)
			return nil, false, err
		}

		if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
			log.Printf("Error adding participant %d to chat %d: %v", userID, chat.ID, err)
			tx.Rollback(ctx)
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing chat creation: %v", err)
		tx.Rollback(ctx)
		return nil, false, err
	}

	log.Printf("Chat %d created between users %d and %d", chat.ID, currentUserID, recipientID)
	return &chat, true, nil
}

// RemoveChat deletes the chat and, through the cascade on chats_users and
// messages, everything in it. A chat the current user does not participate in
// comes back as (nil, nil, nil), the same shape as a chat that does not exist,
// so callers cannot probe for other people's chats. The returned chat and
// participant snapshot are what the caller publishes after the delete commits:
// by then the rows are gone and the event is the only record of who may see it.
func (cs *ChatService) RemoveChat(ctx context.Context, q db.DB, currentUserID, chatID int) (*models.Chat, []int, error) {
	if currentUserID == 0 {
		return nil, nil, nil
	}

	tx, err := q.Begin(ctx)
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		return nil, nil, err
	}

	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("chats.id", "chats.created_at").
		From("chats").
		Join("chats_users ON chats.id = chats_users.chat_id").
		Where(squirrel.And{
			squirrel.Eq{"chats.id": chatID},
			squirrel.Eq{"chats_users.user_id": currentUserID},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		tx.Rollback(ctx)
		return nil, nil, err
	}

	var chat models.Chat
	err = tx.QueryRow(ctx, sqlStr, args...).Scan(&chat.ID, &chat.CreatedAt)
	if err != nil {
		tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		log.Printf("Error reading chat %d for removal: %v", chatID, err)
		return nil, nil, err
	}

	participantIDs, err := cs.getParticipantIDs(ctx, tx, chatID)
	if err != nil {
		tx.Rollback(ctx)
		return nil, nil, err
	}

	deleteQuery := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Delete("chats").
		Where(squirrel.Eq{"id": chatID})

	sqlStr, args, err = deleteQuery.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		tx.Rollback(ctx)
		return nil, nil, err
	}

	if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error deleting chat %d: %v", chatID, err)
		tx.Rollback(ctx)
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing chat removal: %v", err)
		tx.Rollback(ctx)
		return nil, nil, err
	}

	log.Printf("Chat %d removed by user %d", chatID, currentUserID)
	return &chat, participantIDs, nil
}

func (cs *ChatService) getParticipantIDs(ctx context.Context, q db.Querier, chatID int) ([]int, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("user_id").
		From("chats_users").
		Where(squirrel.Eq{"chat_id": chatID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error getting participants of chat %d: %v", chatID, err)
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			log.Printf("Error scanning participant row: %v", err)
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		log.Printf("Error iterating participant rows: %v", err)
		return nil, err
	}

	return ids, nil
}

// AddMessage inserts one message row. Unauthenticated callers get (nil, nil).
func (cs *ChatService) AddMessage(ctx context.Context, q db.Querier, currentUserID, chatID int, content string) (*models.Message, error) {
	if currentUserID == 0 {
		return nil, nil
	}

	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert("messages").
		Columns("chat_id", "sender_user_id", "content").
		Values(chatID, currentUserID, content).
		Suffix("RETURNING id, created_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	message := &models.Message{
		ChatID:       chatID,
		SenderUserID: currentUserID,
		Content:      content,
	}
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		log.Printf("Error saving message to chat %d: %v", chatID, err)
		return nil, err
	}

	log.Printf("Message %d saved to chat %d by user %d", message.ID, chatID, currentUserID)
	return message, nil
}

// FindChatBetween is the duplicate check for CreateChat: the chat both users
// participate in, or nil.
func (cs *ChatService) FindChatBetween(ctx context.Context, q db.Querier, userID, otherUserID int) (*models.Chat, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("chats.id", "chats.created_at").
		From("chats").
		Join("chats_users cu1 ON chats.id = cu1.chat_id").
		Join("chats_users cu2 ON chats.id = cu2.chat_id").
		Where(squirrel.And{
			squirrel.Eq{"cu1.user_id": userID},
			squirrel.Eq{"cu2.user_id": otherUserID},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	var chat models.Chat
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&chat.ID, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		log.Printf("Error looking up chat between users %d and %d: %v", userID, otherUserID, err)
		return nil, err
	}

	return &chat, nil
}

func (cs *ChatService) GetChatsByUserID(ctx context.Context, q db.Querier, userID int) ([]models.Chat, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("chats.id", "chats.created_at").
		From("chats").
		Join("chats_users ON chats.id = chats_users.chat_id").
		Where(squirrel.Eq{"chats_users.user_id": userID}).
		OrderBy("chats.created_at ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error getting chats for user %d: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.CreatedAt); err != nil {
			log.Printf("Error scanning chat row: %v", err)
			return nil, err
		}
		chats = append(chats, chat)
	}

	if err := rows.Err(); err != nil {
		log.Printf("Error iterating chat rows: %v", err)
		return nil, err
	}

	return chats, nil
}

// GetChatByID is membership-scoped: a chat the user does not participate in
// comes back as (nil, nil).
func (cs *ChatService) GetChatByID(ctx context.Context, q db.Querier, chatID, userID int) (*models.Chat, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("chats.id", "chats.created_at").
		From("chats").
		Join("chats_users ON chats.id = chats_users.chat_id").
		Where(squirrel.And{
			squirrel.Eq{"chats.id": chatID},
			squirrel.Eq{"chats_users.user_id": userID},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	var chat models.Chat
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&chat.ID, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		log.Printf("Error getting chat %d: %v", chatID, err)
		return nil, err
	}

	return &chat, nil
}

// GetOtherParticipant resolves the participant that is not the viewer, which
// is where a direct chat's display name and picture come from.
func (cs *ChatService) GetOtherParticipant(ctx context.Context, q db.Querier, chatID, viewerID int) (*models.User, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("users.id", "users.username", "users.name", "users.picture").
		From("users").
		Join("chats_users ON users.id = chats_users.user_id").
		Where(squirrel.And{
			squirrel.Eq{"chats_users.chat_id": chatID},
			squirrel.NotEq{"chats_users.user_id": viewerID},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	var user models.User
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&user.ID, &user.Username, &user.Name, &user.Picture)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		log.Printf("Error getting other participant of chat %d: %v", chatID, err)
		return nil, err
	}

	return &user, nil
}

func (cs *ChatService) GetMessagesByChatID(ctx context.Context, q db.Querier, chatID int) ([]models.Message, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "chat_id", "sender_user_id", "content", "created_at").
		From("messages").
		Where(squirrel.Eq{"chat_id": chatID}).
		OrderBy("created_at ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error getting messages for chat %d: %v", chatID, err)
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderUserID, &msg.Content, &msg.CreatedAt); err != nil {
			log.Printf("Error scanning message row: %v", err)
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		log.Printf("Error iterating message rows: %v", err)
		return nil, err
	}

	return messages, nil
}

func (cs *ChatService) GetLastMessage(ctx context.Context, q db.Querier, chatID int) (*models.Message, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "chat_id", "sender_user_id", "content", "created_at").
		From("messages").
		Where(squirrel.Eq{"chat_id": chatID}).
		OrderBy("created_at DESC").
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	var msg models.Message
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&msg.ID, &msg.ChatID, &msg.SenderUserID, &msg.Content, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		log.Printf("Error getting last message of chat %d: %v", chatID, err)
		return nil, err
	}

	return &msg, nil
}

func (cs *ChatService) IsParticipant(ctx context.Context, q db.Querier, chatID, userID int) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1
            FROM chats_users
            WHERE chat_id = $1 AND user_id = $2
        )
    `

	var exists bool
	err := q.QueryRow(ctx, query, chatID, userID).Scan(&exists)
	if err != nil {
		log.Printf("Error checking if user %d is a participant of chat %d: %v", userID, chatID, err)
		return false, err
	}

	return exists, nil
}
