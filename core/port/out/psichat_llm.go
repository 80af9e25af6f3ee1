package out

import (
	"context"

	"psichat_server/core/domain"
)

// ReplyRequest is everything the language model needs to write a tutor reply.
type ReplyRequest struct {
	SystemPrompt string
	Turns        []domain.ChatTurn // oldest first
	UserText     string
}

// ReplyGenerator writes the tutor's answer to a user message.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, req *ReplyRequest) (string, error)
}
