package models

type User struct {
	ID           int     `json:"id" db:"id"`
	Username     string  `json:"username" db:"username"`
	Name         string  `json:"name" db:"name"`
	PasswordHash string  `json:"-" db:"password_hash"`
	Picture      *string `json:"picture,omitempty" db:"picture"`
}
