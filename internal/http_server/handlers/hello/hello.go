package hello

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

type Response struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Response{
			Message:   "Hello!",
			Timestamp: time.Now().UTC(),
		})
	}
}
