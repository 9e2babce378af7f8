package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"portfolio-views/content"
	"portfolio-views/middlewares"
	"portfolio-views/models"
	"portfolio-views/store"
	"portfolio-views/viewcounter"

	"github.com/gorilla/mux"
)

var (
	// Views is the store every handler reads and counts through.
	Views store.Store
	// Tracker sends increments off the request goroutine.
	Tracker *viewcounter.Tracker
	// Posts lists the site's posts. Nil serves an empty list.
	Posts *content.Index
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func slugParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	slug := mux.Vars(r)["slug"]
	if err := store.ValidateSlug(slug); err != nil {
		writeError(w, http.StatusBadRequest, "invalid slug")
		return "", false
	}
	return slug, true
}

// ListViewsHandler returns every view record.
func ListViewsHandler(w http.ResponseWriter, r *http.Request) {
	views, err := Views.ListViews(r.Context())
	if err != nil {
		middlewares.ErrorLogger.Printf("list views: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load views")
		return
	}
	if views == nil {
		views = []models.ViewRecord{}
	}
	w.Header().Set("Cache-Control", "public, max-age=10")
	writeJSON(w, http.StatusOK, views)
}

// GetViewsHandler renders the counter of one page. With ?track=true the
// request is a mount of a tracking counter and records one view.
func GetViewsHandler(w http.ResponseWriter, r *http.Request) {
	slug, ok := slugParam(w, r)
	if !ok {
		return
	}
	track := false
	if v := r.URL.Query().Get("track"); v != "" {
		var err error
		if track, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "track must be a boolean")
			return
		}
	}

	views, err := Views.ListViews(r.Context())
	if err != nil {
		middlewares.ErrorLogger.Printf("list views: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load views")
		return
	}

	counter := viewcounter.New(Tracker)
	count := counter.Render(viewcounter.Props{
		Slug:  slug,
		Views: views,
		Track: track && middlewares.TrackingAllowed(r),
	})
	counter.Unmount()

	if track {
		w.Header().Set("Cache-Control", "no-store")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=10")
	}
	writeJSON(w, http.StatusOK, models.ViewRecord{Slug: slug, Count: count})
}

// IncrementHandler queues one view of the page and answers before it is
// stored.
func IncrementHandler(w http.ResponseWriter, r *http.Request) {
	slug, ok := slugParam(w, r)
	if !ok {
		return
	}
	if !middlewares.TrackingAllowed(r) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}
	Tracker.Track(slug)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// PostViews is a post with its view count.
type PostViews struct {
	content.Post
	Views uint `json:"views"`
}

// PostsHandler lists published posts with their view counts.
func PostsHandler(w http.ResponseWriter, r *http.Request) {
	views, err := Views.ListViews(r.Context())
	if err != nil {
		middlewares.ErrorLogger.Printf("list views: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load views")
		return
	}

	out := []PostViews{}
	if Posts != nil {
		for _, p := range Posts.Posts() {
			out = append(out, PostViews{Post: p, Views: viewcounter.CountFor(views, p.Slug)})
		}
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, out)
}
