package me

import (
	"log/slog"
	"net/http"
	"time"

	resp "board_service/internal/lib/api/response"
	"board_service/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// New returns the authenticated member's public profile.
func New(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.me.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity, ok := authn.Identity(r.Context())
		if !ok {
			log.Warn("unauthenticated profile request")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Detail("Authentication credentials were not provided."))

			return
		}

		render.JSON(w, r, Response{
			ID:        identity.Member.ID,
			Username:  identity.Member.Username,
			CreatedAt: identity.Member.CreatedAt,
		})
	}
}
