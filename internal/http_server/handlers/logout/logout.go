package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "board_service/internal/lib/api/response"
	sl "board_service/internal/lib/logger"
	"board_service/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type TokenRevoker interface {
	Logout(ctx context.Context, key string) error
}

func New(
	log *slog.Logger,
	revoker TokenRevoker,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity, ok := authn.Identity(r.Context())
		if !ok {
			log.Warn("unauthenticated logout attempt")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Detail("Authentication credentials were not provided."))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := revoker.Logout(ctx, identity.Token.Key); err != nil {
			log.Error("failed to logout member", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Detail("Internal error"))

			return
		}

		log.Info("member logged out successfully")

		render.NoContent(w, r)
	}
}
