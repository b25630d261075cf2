package http

import (
	"errors"
	"net/http"

	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/session"
)

// errStatus maps domain errors onto HTTP statuses. A missing session is a
// conflict the client resolves by reconfiguring, never a server fault.
func errStatus(err error) int {
	var ve *quiz.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quiz.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoSession):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
