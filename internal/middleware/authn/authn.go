package authn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"board_service/internal/auth"
	resp "board_service/internal/lib/api/response"
	sl "board_service/internal/lib/logger"
	"board_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// keyword is the exact, case-sensitive scheme expected in the
// Authorization header: "Token <40-hex-key>".
const keyword = "Token"

type identityKey struct{}

type TokenResolver interface {
	Authenticate(ctx context.Context, key string) (models.Identity, error)
}

// New resolves the bearer token on every request. A missing header, a
// wrong keyword or a wrong field count means the request stays
// anonymous so public endpoints keep working; a well-formed header
// with an unresolvable key fails the request with 401.
func New(log *slog.Logger, resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn.New"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Fields(header)
			if len(parts) != 2 || parts[0] != keyword {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := resolver.Authenticate(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) {
					log.Warn("invalid token")

					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, resp.Detail("Invalid token"))

					return
				}

				log.Error("failed to resolve token", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Detail("Internal error"))

				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Identity returns the identity resolved by the middleware, if any.
func Identity(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(models.Identity)
	return identity, ok
}

// WithIdentity attaches an identity to the context. Exported for
// handler tests.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}
