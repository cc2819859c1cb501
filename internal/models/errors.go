package models

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrWrongPassword   = errors.New("password is incorrect")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrChatNotFound    = errors.New("chat not found")
	ErrPasswordConfirm = errors.New("password and passwordConfirm don't match")
)
