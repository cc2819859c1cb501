package services

import (
	"context"
	"errors"
	"log"

	"LiveChat/server/internal/db"
	"LiveChat/server/internal/models"
	"LiveChat/server/internal/utils"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

func (us *UserService) CheckUserExists(ctx context.Context, q db.Querier, username string) (bool, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("COUNT(*)").
		From("users").
		Where(squirrel.Eq{"username": username})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return false, err
	}

	var count int
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&count)
	if err != nil {
		log.Printf("Error checking user existence: %v", err)
		return false, err
	}

	return count > 0, nil
}

func (us *UserService) CreateUser(ctx context.Context, q db.Querier, name, username, password string) (*models.User, error) {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		return nil, err
	}

	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert("users").
		Columns("username", "name", "password_hash").
		Values(username, name, hashedPassword).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Name:         name,
		PasswordHash: hashedPassword,
	}
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&user.ID)
	if err != nil {
		log.Printf("Error creating user %s: %v", username, err)
		return nil, err
	}

	log.Printf("User created: %s (ID: %d)", username, user.ID)
	return user, nil
}

func (us *UserService) GetUserByUsername(ctx context.Context, q db.Querier, username string) (*models.User, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "username", "name", "password_hash", "picture").
		From("users").
		Where(squirrel.Eq{"username": username})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	var user models.User
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&user.ID, &user.Username, &user.Name, &user.PasswordHash, &user.Picture)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		log.Printf("Error getting user %s: %v", username, err)
		return nil, err
	}

	return &user, nil
}

func (us *UserService) GetUserByID(ctx context.Context, q db.Querier, userID int) (*models.User, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "username", "name", "password_hash", "picture").
		From("users").
		Where(squirrel.Eq{"id": userID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	var user models.User
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&user.ID, &user.Username, &user.Name, &user.PasswordHash, &user.Picture)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		log.Printf("Error getting user %d: %v", userID, err)
		return nil, err
	}

	return &user, nil
}

// GetOtherUsers lists everyone except the current user, for starting new chats.
func (us *UserService) GetOtherUsers(ctx context.Context, q db.Querier, currentUserID int) ([]models.User, error) {
	query := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "username", "name", "picture").
		From("users").
		Where(squirrel.NotEq{"id": currentUserID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Printf("Failed to build SQL query: %v", err)
		return nil, err
	}

	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error listing users for user %d: %v", currentUserID, err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Name, &user.Picture); err != nil {
			log.Printf("Error scanning user row: %v", err)
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		log.Printf("Error iterating user rows: %v", err)
		return nil, err
	}

	return users, nil
}
