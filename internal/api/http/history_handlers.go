package http

import (
	"encoding/json"
	"net/http"

	"github.com/quizforge/quizforge/internal/auth"
	"github.com/quizforge/quizforge/internal/quiz"
)

// HistoryHandler lists the caller's attempts, newest first. Rows are
// immutable snapshots; answer payloads are returned as recorded, not
// re-decoded against the questions' current types.
func HistoryHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		rows, err := store.ListHistory(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if rows == nil {
			rows = []quiz.History{}
		}
		_ = json.NewEncoder(w).Encode(rows)
	}
}
