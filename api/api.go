// Package api serves the sources and news stores as read-only JSON.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pevans/recipescan/endpoint"
	"github.com/pevans/recipescan/newsfeed"
	"github.com/pevans/recipescan/sources"
)

// Pagination bounds for list endpoints.
const (
	defaultLimit = 50
	maxLimit     = 1000
)

// Server is the HTTP API over both stores.
type Server struct {
	sources *sources.SourceStore
	news    *newsfeed.NewsStore
	logger  *slog.Logger
}

// NewServer creates a new API server.
func NewServer(src *sources.SourceStore, news *newsfeed.NewsStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{sources: src, news: news, logger: logger}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ListRecipesResponse is the body of GET /api/v1/recipes.
type ListRecipesResponse struct {
	Recipes []sources.Recipe `json:"recipes"`
	Total   int              `json:"total"`
}

// ListRecipeEndpointsResponse is the body of GET /api/v1/recipes/{uid}/endpoints.
type ListRecipeEndpointsResponse struct {
	RecipeUID string                   `json:"recipe_uid"`
	Endpoints []sources.RecipeEndpoint `json:"endpoints"`
}

// ListEndpointsResponse is the body of GET /api/v1/endpoints.
type ListEndpointsResponse struct {
	Endpoints []sources.Endpoint `json:"endpoints"`
	Total     int                `json:"total"`
}

// ListArticlesResponse is the body of GET /api/v1/articles.
type ListArticlesResponse struct {
	Articles []newsfeed.Article `json:"articles"`
	Total    int                `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// ListRunsResponse is the body of GET /api/v1/runs.
type ListRunsResponse struct {
	Runs []newsfeed.Run `json:"runs"`
}

// Router builds the chi router with all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/recipes", s.HandleListRecipes)
		r.Get("/recipes/{uid}", s.HandleGetRecipe)
		r.Get("/recipes/{uid}/endpoints", s.HandleListRecipeEndpoints)
		r.Get("/endpoints", s.HandleListEndpoints)
		r.Get("/articles", s.HandleListArticles)
		r.Get("/runs", s.HandleListRuns)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	return r
}

// Start serves the API on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("api listening", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

// HandleListRecipes handles GET /api/v1/recipes.
func (s *Server) HandleListRecipes(w http.ResponseWriter, r *http.Request) {
	filter := sources.RecipeFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.ParseStatus = &status
	}

	var ok bool
	if filter.Limit, filter.Offset, ok = pagination(w, r); !ok {
		return
	}
	if filter.Offset > 0 && filter.Limit == 0 {
		filter.Limit = maxLimit
	}

	recipes, err := s.sources.ListRecipes(filter)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if recipes == nil {
		recipes = []sources.Recipe{}
	}

	writeJSON(w, http.StatusOK, ListRecipesResponse{Recipes: recipes, Total: len(recipes)})
}

// HandleGetRecipe handles GET /api/v1/recipes/{uid}.
func (s *Server) HandleGetRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := s.sources.GetRecipe(chi.URLParam(r, "uid"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleListRecipeEndpoints handles GET /api/v1/recipes/{uid}/endpoints.
func (s *Server) HandleListRecipeEndpoints(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if _, err := s.sources.GetRecipe(uid); err != nil {
		s.storeError(w, err)
		return
	}

	links, err := s.sources.ListRecipeEndpoints(uid)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if links == nil {
		links = []sources.RecipeEndpoint{}
	}

	writeJSON(w, http.StatusOK, ListRecipeEndpointsResponse{RecipeUID: uid, Endpoints: links})
}

// HandleListEndpoints handles GET /api/v1/endpoints.
func (s *Server) HandleListEndpoints(w http.ResponseWriter, r *http.Request) {
	typ := endpoint.Type(r.URL.Query().Get("type"))
	switch typ {
	case "", endpoint.TypeFeed, endpoint.TypeAPI, endpoint.TypeHTML:
	default:
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid type parameter: must be feed, api, or html")
		return
	}

	endpoints, err := s.sources.ListEndpoints(typ)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if endpoints == nil {
		endpoints = []sources.Endpoint{}
	}

	writeJSON(w, http.StatusOK, ListEndpointsResponse{Endpoints: endpoints, Total: len(endpoints)})
}

// HandleListArticles handles GET /api/v1/articles.
func (s *Server) HandleListArticles(w http.ResponseWriter, r *http.Request) {
	filter := newsfeed.ArticleFilter{RecipeUID: r.URL.Query().Get("recipe")}

	var ok bool
	if filter.Limit, filter.Offset, ok = pagination(w, r); !ok {
		return
	}
	if filter.Limit == 0 {
		filter.Limit = defaultLimit
	}

	total, err := s.news.CountArticles(filter)
	if err != nil {
		s.internalError(w, err)
		return
	}
	articles, err := s.news.ListArticles(filter)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if articles == nil {
		articles = []newsfeed.Article{}
	}

	writeJSON(w, http.StatusOK, ListArticlesResponse{
		Articles: articles,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// HandleListRuns handles GET /api/v1/runs.
func (s *Server) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _, ok := pagination(w, r)
	if !ok {
		return
	}

	runs, err := s.news.ListRuns(r.URL.Query().Get("recipe"), limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if runs == nil {
		runs = []newsfeed.Run{}
	}

	writeJSON(w, http.StatusOK, ListRunsResponse{Runs: runs})
}

// pagination parses limit and offset. A missing limit is 0; the caller picks
// the default. It writes the error response itself and reports false on bad
// input.
func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	query := r.URL.Query()

	if limitParam := query.Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return 0, 0, false
		}
		limit = min(parsed, maxLimit)
	}

	if offsetParam := query.Get("offset"); offsetParam != "" {
		parsed, err := strconv.Atoi(offsetParam)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid offset parameter")
			return 0, 0, false
		}
		offset = parsed
	}

	return limit, offset, true
}

// storeError maps store errors to HTTP responses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sources.ErrRecipeNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		s.internalError(w, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("api request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "Failed to process request")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// CORSMiddleware adds CORS headers and answers preflight requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
