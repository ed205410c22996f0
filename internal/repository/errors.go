package repository

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDatingNotFound    = errors.New("dating not found")
	ErrIncompleteProfile = errors.New("incomplete profile")
	ErrInvalidProfile    = errors.New("invalid profile")
)
