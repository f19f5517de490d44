package register

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

type MemberRegistrar interface {
	Register(ctx context.Context, username, password string) (models.Identity, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	registrar MemberRegistrar,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

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

		identity, err := registrar.Register(ctx, req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrMemberExists) {
				log.Warn("username taken", slog.String("username", req.Username))

				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.FieldError("username", "A member with that username already exists."))

				return
			}

			log.Error("failed to register member", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Detail("Internal error"))

			return
		}

		log.Info("Member registered", slog.Int64("id", identity.Member.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Token:    identity.Token.Key,
			MemberID: identity.Member.ID,
			Username: identity.Member.Username,
		})
	}
}
