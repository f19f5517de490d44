package messages

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "board_service/internal/lib/api/response"
	sl "board_service/internal/lib/logger"
	"board_service/internal/middleware/authn"
	"board_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Text string `json:"text" validate:"required"`
}

type Response struct {
	ID             int64     `json:"id"`
	Text           string    `json:"text"`
	AuthorID       int64     `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageLister interface {
	List(ctx context.Context) ([]models.Message, error)
}

type MessagePoster interface {
	Post(ctx context.Context, author models.Member, text string) (models.Message, error)
}

// NewList serves the public feed. No authentication required.
func NewList(
	log *slog.Logger,
	lister MessageLister,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.messages.NewList"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		msgs, err := lister.List(r.Context())
		if err != nil {
			log.Error("failed to list messages", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Detail("Internal error"))

			return
		}

		out := make([]Response, 0, len(msgs))
		for _, msg := range msgs {
			out = append(out, toResponse(msg))
		}

		render.JSON(w, r, out)
	}
}

// NewCreate posts a message as the authenticated member.
func NewCreate(
	log *slog.Logger,
	validate *validator.Validate,
	poster MessagePoster,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.messages.NewCreate"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity, ok := authn.Identity(r.Context())
		if !ok {
			log.Warn("unauthenticated post attempt")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Detail("Authentication credentials were not provided."))

			return
		}

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Detail("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		msg, err := poster.Post(ctx, identity.Member, req.Text)
		if err != nil {
			log.Error("failed to post message", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Detail("Internal error"))

			return
		}

		log.Info("message created", slog.Int64("id", msg.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, toResponse(msg))
	}
}

func toResponse(msg models.Message) Response {
	return Response{
		ID:             msg.ID,
		Text:           msg.Text,
		AuthorID:       msg.AuthorID,
		AuthorUsername: msg.AuthorUsername,
		CreatedAt:      msg.CreatedAt,
	}
}
