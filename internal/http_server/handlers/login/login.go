package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"board_service/internal/auth"
	resp "board_service/internal/lib/api/response"
	sl "board_service/internal/lib/logger"
	"board_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

type Response struct {
	Token    string `json:"token"`
	MemberID int64  `json:"member_id"`
	Username string `json:"username"`
}

type MemberLoginer interface {
	Login(ctx context.Context, username, password string) (models.Identity, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	loginer MemberLoginer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Detail("Failed to decode request"))

			return
		}

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		identity, err := loginer.Login(ctx, req.Username, req.Password)
		if err != nil {
			// Same body for unknown username and wrong password.
			if errors.Is(err, auth.ErrInvalidCredentials) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Detail("Invalid credentials"))

				return
			}

			log.Error("failed to login member", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Detail("Internal error"))

			return
		}

		log.Info("Member logged in successfully")

		render.JSON(w, r, Response{
			Token:    identity.Token.Key,
			MemberID: identity.Member.ID,
			Username: identity.Member.Username,
		})
	}
}
