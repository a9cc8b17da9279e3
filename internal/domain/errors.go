package domain

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrSelfMessage          = errors.New("sender and recipient are the same user")
	ErrMessageTooLarge      = errors.New("message too large")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)
