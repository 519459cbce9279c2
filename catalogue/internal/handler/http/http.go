package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/salim16/microservices-kaushik/catalogue/internal/controller/catalogue"
	"github.com/salim16/microservices-kaushik/catalogue/pkg/model"
	"github.com/salim16/microservices-kaushik/pkg/discovery"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type catalogueController interface {
	Get(ctx context.Context, userID string) ([]model.CatalogueItem, error)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Config holds the request limits of the handler.
type Config struct {
	// RequestTimeout bounds a whole catalogue request. Zero disables it.
	RequestTimeout time.Duration
	// RateLimit is the sustained requests per second. Zero disables limiting.
	RateLimit      float64
	Burst          int
}

// Handler defines a catalogue HTTP handler.
type Handler struct {
	ctrl    catalogueController
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
	scope   tally.Scope
}

// New creates a new catalogue HTTP handler.
func New(ctrl catalogueController, cfg Config, logger *zap.Logger, scope tally.Scope) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scope == nil {
		scope = tally.NoopScope
	}
	h := &Handler{ctrl: ctrl, cfg: cfg, logger: logger, scope: scope}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(math.Ceil(cfg.RateLimit)))
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return h
}

// Routes returns the router serving the catalogue API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealthz)
	r.With(h.rateLimit).Get("/catalogue/{userId}", h.handleGetCatalogue)
	return r
}

func (h *Handler) handleGetCatalogue(w http.ResponseWriter, req *http.Request) {
	userID := chi.URLParam(req, "userId")
	if !userIDPattern.MatchString(userID) {
		h.respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "userId must be 1-64 letters, digits, '-' or '_'")
		return
	}
	ctx := req.Context()
	if h.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RequestTimeout)
		defer cancel()
	}

	items, err := h.ctrl.Get(ctx, userID)
	if err != nil {
		status, code, message := classify(err)
		h.logger.Warn("Catalogue request failed",
			zap.String("userId", userID), zap.String("code", code), zap.Error(err))
		h.respondError(w, status, code, message)
		return
	}
	h.respondJSON(w, http.StatusOK, items)
}

// classify maps a controller error to a status, code and client message.
// Messages are fixed so upstream addresses and bodies never reach clients.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, discovery.ErrNoInstanceAvailable):
		return http.StatusServiceUnavailable, "NO_INSTANCE_AVAILABLE", "no ratings service instance is available"
	case errors.Is(err, catalogue.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "ratings service is unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "TIMEOUT", "request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "REQUEST_CANCELED", "request was canceled"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "internal error"
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			h.respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.scope.Tagged(map[string]string{"status": strconv.Itoa(ww.Status())}).Counter("catalogue_requests").Inc(1)
		h.logger.Info("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Response encode error", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, errorResponse{Code: code, Message: message})
}
