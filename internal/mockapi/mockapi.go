package mockapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/arcanalyse/encounter-builder/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Package mockapi serves a stand-in for the upstream API.

const (
	HealthRoute     = "/api/v1/health"
	VersionRoute    = "/api/v1/version"
	SourcesRoute    = "/api/v1/sources"
	CRToXPRoute     = "/api/v1/cr-to-xp"
	CRToXPItemRoute = CRToXPRoute + "/{cr}"

	defaultLimit = 100
	maxLimit     = 500
)

// LookupRoute is the list route of a lookup table.
func LookupRoute(table string) string { return "/api/v1/" + table }

// ItemRoute is the by-id route below a list route.
func ItemRoute(listRoute string) string { return listRoute + "/{id}" }

// DefaultHealth and DefaultVersion are the canned responses.
var (
	DefaultHealth  = domain.Health{Status: "ok"}
	DefaultVersion = domain.Version{Name: "Arcanalyse API", Version: "0.1.0", Env: "dev"}
)

// Options configures the mock router.
type Options struct {
	// Strict answers unknown routes with 500 instead of 404, so tests fail
	// loudly on unexpected requests.
	Strict bool
	// Logging adds chi's request logger.
	Logging bool
}

// API is the mock upstream. Handlers can be swapped at runtime with Use and
// restored with Reset.
type API struct {
	router chi.Router
	opts   Options

	mu        sync.RWMutex
	overrides map[string]http.HandlerFunc
	// hits is filled while routes are registered and only read afterwards.
	hits map[string]*atomic.Int64
}

// New builds the mock router.
func New(opts Options) *API {
	a := &API{
		opts:      opts,
		overrides: make(map[string]http.HandlerFunc),
		hits:      make(map[string]*atomic.Int64),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if opts.Logging {
		r.Use(middleware.Logger)
	}
	a.get(r, HealthRoute, func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, DefaultHealth)
	})
	a.get(r, VersionRoute, func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, DefaultVersion)
	})
	for _, table := range domain.LookupTables {
		rows := DefaultLookups[table]
		a.get(r, LookupRoute(table), listHandler(rows))
		a.get(r, ItemRoute(LookupRoute(table)), itemHandler(rows, func(l domain.Lookup) int { return l.ID }))
	}
	a.get(r, SourcesRoute, listHandler(DefaultSources))
	a.get(r, ItemRoute(SourcesRoute), itemHandler(DefaultSources, func(s domain.Source) int { return s.ID }))
	a.get(r, CRToXPRoute, listHandler(DefaultCRToXP))
	a.get(r, CRToXPItemRoute, crHandler)

	r.NotFound(a.unhandled)
	r.MethodNotAllowed(a.unhandled)
	a.router = r
	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Use overrides the handler of a registered route pattern.
func (a *API) Use(route string, h http.HandlerFunc) {
	a.mu.Lock()
	a.overrides[route] = h
	a.mu.Unlock()
}

// Reset drops every override.
func (a *API) Reset() {
	a.mu.Lock()
	a.overrides = make(map[string]http.HandlerFunc)
	a.mu.Unlock()
}

// Hits returns how many requests reached the route pattern.
func (a *API) Hits(route string) int64 {
	if c, ok := a.hits[route]; ok {
		return c.Load()
	}
	return 0
}

func (a *API) get(r chi.Router, pattern string, def http.HandlerFunc) {
	counter := new(atomic.Int64)
	a.hits[pattern] = counter

	r.Get(pattern, func(w http.ResponseWriter, req *http.Request) {
		counter.Add(1)

		a.mu.RLock()
		h := a.overrides[pattern]
		a.mu.RUnlock()

		if h == nil {
			h = def
		}
		h(w, req)
	})
}

func (a *API) unhandled(w http.ResponseWriter, r *http.Request) {
	status := http.StatusNotFound
	if a.opts.Strict {
		status = http.StatusInternalServerError
	}
	JSON(w, status, map[string]string{"detail": "unhandled request " + r.Method + " " + r.URL.Path})
}

func listHandler[T any](rows []T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, ok := pagination(w, r)
		if !ok {
			return
		}
		JSON(w, http.StatusOK, paginate(rows, limit, offset))
	}
}

func itemHandler[T any](rows []T, id func(T) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		want, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			notFound(w)
			return
		}
		for _, row := range rows {
			if id(row) == want {
				JSON(w, http.StatusOK, row)
				return
			}
		}
		notFound(w)
	}
}

func crHandler(w http.ResponseWriter, r *http.Request) {
	want, err := strconv.ParseFloat(chi.URLParam(r, "cr"), 64)
	if err != nil {
		JSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "cr must be a decimal number"})
		return
	}
	for _, row := range DefaultCRToXP {
		if got, err := row.ChallengeRating.Float64(); err == nil && got == want {
			JSON(w, http.StatusOK, row)
			return
		}
	}
	notFound(w)
}

// pagination reads limit (1..500, default 100) and offset (>= 0). It answers
// 422 and reports false on invalid values.
func pagination(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	limit, offset := defaultLimit, 0
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			JSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "limit must be between 1 and 500"})
			return 0, 0, false
		}
		limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			JSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "offset must be non-negative"})
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func notFound(w http.ResponseWriter) {
	JSON(w, http.StatusNotFound, map[string]string{"detail": "Not found"})
}

// JSON writes v with a JSON content type.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
