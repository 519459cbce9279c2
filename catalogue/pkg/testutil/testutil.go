package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/salim16/microservices-kaushik/catalogue/pkg/model"
)

// Upstream is a fake of one of the services the catalogue depends on.
type Upstream struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

// Hits returns how many requests were served for the path.
func (u *Upstream) Hits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func (u *Upstream) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.hits[r.URL.Path]++
		u.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func newUpstream(r chi.Router) *Upstream {
	u := &Upstream{hits: map[string]int{}}
	u.Server = httptest.NewServer(u.count(r))
	return u
}

// NewTestRatingsServer creates a ratings service fake to be used in tests.
// Unknown users get a 404.
func NewTestRatingsServer(ratings map[string][]model.Rating) *Upstream {
	r := chi.NewRouter()
	r.Get("/ratingsdata/users/{userId}", func(w http.ResponseWriter, r *http.Request) {
		rs, ok := ratings[chi.URLParam(r, "userId")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, model.UserRating{UserRating: rs})
	})
	return newUpstream(r)
}

// NewTestMovieInfoServer creates a movie info service fake to be used in
// tests. Unknown movies get a 404.
func NewTestMovieInfoServer(movies map[string]model.Movie) *Upstream {
	r := chi.NewRouter()
	r.Get("/movies/{movieId}", func(w http.ResponseWriter, r *http.Request) {
		m, ok := movies[chi.URLParam(r, "movieId")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, m)
	})
	return newUpstream(r)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
