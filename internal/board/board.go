package board

import (
	"context"
	"fmt"
	"log/slog"

	sl "board_service/internal/lib/logger"
	"board_service/internal/models"
)

type Board struct {
	log         *slog.Logger
	msgSaver    MessageSaver
	msgProvider MessageProvider
	events      EventPublisher
}

type MessageSaver interface {
	SaveMessage(ctx context.Context, authorID int64, text string) (models.Message, error)
}

type MessageProvider interface {
	Messages(ctx context.Context) ([]models.Message, error)
}

type EventPublisher interface {
	PublishMessagePosted(ctx context.Context, event models.MessagePostedEvent) error
}

func New(
	log *slog.Logger,
	messageSaver MessageSaver,
	messageProvider MessageProvider,
	events EventPublisher,
) *Board {
	return &Board{
		log:         log,
		msgSaver:    messageSaver,
		msgProvider: messageProvider,
		events:      events,
	}
}

// Post stores a message authored by the given member. The broker event
// is best effort: the message is already durable, so a publish failure
// is logged and the post still succeeds.
func (b *Board) Post(ctx context.Context, author models.Member, text string) (models.Message, error) {
	const op = "board.Post"

	log := b.log.With(slog.String("op", op))

	msg, err := b.msgSaver.SaveMessage(ctx, author.ID, text)
	if err != nil {
		log.Error("failed to save message", sl.Err(err))
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	msg.AuthorUsername = author.Username

	event := models.MessagePostedEvent{
		MessageID:      msg.ID,
		AuthorID:       msg.AuthorID,
		AuthorUsername: msg.AuthorUsername,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
	}
	if err := b.events.PublishMessagePosted(ctx, event); err != nil {
		log.Error("failed to publish message event", sl.Err(err))
	}

	log.Info("message posted",
		slog.Int64("message_id", msg.ID),
		slog.Int64("author_id", msg.AuthorID),
	)

	return msg, nil
}

// List returns every message, oldest first.
func (b *Board) List(ctx context.Context) ([]models.Message, error) {
	const op = "board.List"

	msgs, err := b.msgProvider.Messages(ctx)
	if err != nil {
		b.log.Error("failed to list messages", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return msgs, nil
}
