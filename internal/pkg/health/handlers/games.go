package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

// ViewSource yields the latest bucket view.
type ViewSource interface {
	View() (tracker.View, bool)
}

// HandleGames serves the bucket view. ?bucket=in-progress narrows it to one bucket.
func HandleGames(src ViewSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, ok := src.View()
		if !ok {
			http.Error(w, "no cycle completed yet", http.StatusServiceUnavailable)
			return
		}
		bucket := r.URL.Query().Get("bucket")
		if bucket == "" {
			writeJSON(w, view)
			return
		}
		games, ok := gamesIn(view, bucket)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown bucket %q", bucket), http.StatusBadRequest)
			return
		}
		writeJSON(w, games)
	}
}

// HandleGame serves /games/{id}.
func HandleGame(src ViewSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		view, _ := src.View()
		for _, b := range []tracker.Bucket{tracker.NotStarted, tracker.InProgress, tracker.Concluded} {
			games, _ := gamesIn(view, b.String())
			for _, g := range games {
				if g.ID == id {
					writeJSON(w, struct {
						Bucket string `json:"bucket"`
						tracker.Game
					}{b.String(), g})
					return
				}
			}
		}
		http.Error(w, fmt.Sprintf("game %s not found", id), http.StatusNotFound)
	}
}

func gamesIn(v tracker.View, bucket string) ([]tracker.Game, bool) {
	switch bucket {
	case tracker.NotStarted.String():
		return v.NotStarted, true
	case tracker.InProgress.String():
		return v.InProgress, true
	case tracker.Concluded.String():
		return v.Concluded, true
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}
