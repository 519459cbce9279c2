package catalogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uber-go/tally/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/salim16/microservices-kaushik/catalogue/internal/gateway"
	"github.com/salim16/microservices-kaushik/catalogue/pkg/model"
	"github.com/salim16/microservices-kaushik/pkg/discovery"
	"github.com/salim16/microservices-kaushik/pkg/httpjson"
)

// DefaultMaxConcurrency bounds the movie lookups of a single request.
const DefaultMaxConcurrency = 8

// ErrUpstreamUnavailable is returned when the user's ratings cannot be fetched.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

type ratingsGateway interface {
	GetUserRating(ctx context.Context, userID string) (*model.UserRating, error)
}

type movieInfoGateway interface {
	GetMovie(ctx context.Context, movieID string) (*model.Movie, error)
}

type omissionReporter interface {
	ReportOmission(ctx context.Context, event model.OmissionEvent)
}

// State is the progress of a single catalogue request.
type State int

const (
	StateAwaitingRatings State = iota
	StateFetchingMovies
	StateMerged
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingRatings:
		return "awaiting_ratings"
	case StateFetchingMovies:
		return "fetching_movies"
	case StateMerged:
		return "merged"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Controller defines a catalogue service controller.
type Controller struct {
	ratingsGateway   ratingsGateway
	movieInfoGateway movieInfoGateway
	reporter         omissionReporter
	maxConcurrency   int
	scope            tally.Scope
	logger           *zap.Logger
	tracer           trace.Tracer
	now              func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxConcurrency sets how many movie lookups run at once per request.
func WithMaxConcurrency(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithOmissionReporter sets where omitted items are reported.
func WithOmissionReporter(r omissionReporter) Option {
	return func(c *Controller) { c.reporter = r }
}

// WithMetrics sets the metrics scope.
func WithMetrics(scope tally.Scope) Option {
	return func(c *Controller) { c.scope = scope }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a catalogue service controller.
func New(ratingsGateway ratingsGateway, movieInfoGateway movieInfoGateway, opts ...Option) *Controller {
	c := &Controller{
		ratingsGateway:   ratingsGateway,
		movieInfoGateway: movieInfoGateway,
		maxConcurrency:   DefaultMaxConcurrency,
		scope:            tally.NoopScope,
		logger:           zap.NewNop(),
		tracer:           otel.Tracer("catalogue/controller"),
		now:              time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the catalogue of the user: one item per rated movie whose
// metadata could be fetched, in rating order. Movies that cannot be fetched
// are left out and reported. If the ratings cannot be fetched the whole call
// fails with ErrUpstreamUnavailable. If ctx is done before the result is
// complete, no items are returned.
func (c *Controller) Get(ctx context.Context, userID string) ([]model.CatalogueItem, error) {
	ctx, span := c.tracer.Start(ctx, "catalogue.Get", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()
	defer c.scope.Timer("catalogue_latency").Start().Stop()

	fail := func(err error) ([]model.CatalogueItem, error) {
		c.enter(span, userID, StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.scope.Counter("catalogue_failed").Inc(1)
		return nil, err
	}

	c.enter(span, userID, StateAwaitingRatings)
	userRating, err := c.ratingsGateway.GetUserRating(ctx, userID)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return fail(cerr)
		}
		c.logger.Warn("Failed to fetch user ratings", zap.String("userId", userID), zap.Error(err))
		return fail(fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err))
	}

	c.enter(span, userID, StateFetchingMovies)
	ratings := userRating.UserRating
	slots := make([]*model.CatalogueItem, len(ratings))
	g := new(errgroup.Group)
	g.SetLimit(c.maxConcurrency)
	for i, r := range ratings {
		if ctx.Err() != nil {
			break
		}
		i, r := i, r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := c.movieInfoGateway.GetMovie(ctx, r.MovieID)
			if err != nil {
				if cerr := ctx.Err(); cerr != nil {
					return cerr
				}
				c.omit(ctx, userID, r.MovieID, err)
				return nil
			}
			slots[i] = &model.CatalogueItem{Name: m.Name, Description: m.Description, Rating: r.Rating}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return fail(err)
	}

	items := make([]model.CatalogueItem, 0, len(slots))
	for _, it := range slots {
		if it != nil {
			items = append(items, *it)
		}
	}
	c.enter(span, userID, StateMerged)
	span.SetAttributes(attribute.Int("catalogue.items", len(items)), attribute.Int("catalogue.omitted", len(ratings)-len(items)))
	c.enter(span, userID, StateCompleted)
	return items, nil
}

func (c *Controller) enter(span trace.Span, userID string, s State) {
	span.AddEvent(s.String())
	c.logger.Debug("Catalogue request state", zap.String("userId", userID), zap.Stringer("state", s))
}

func (c *Controller) omit(ctx context.Context, userID, movieID string, err error) {
	reason := omissionReason(err)
	c.logger.Warn("Omitting catalogue item",
		zap.String("userId", userID), zap.String("movieId", movieID), zap.String("reason", reason), zap.Error(err))
	c.scope.Tagged(map[string]string{"reason": reason}).Counter("movie_fetch_omitted").Inc(1)
	if c.reporter != nil {
		c.reporter.ReportOmission(ctx, model.OmissionEvent{
			UserID:     userID,
			MovieID:    movieID,
			Reason:     reason,
			OccurredAt: c.now().UTC(),
		})
	}
}

func omissionReason(err error) string {
	var (
		timeoutErr *httpjson.TimeoutError
		connErr    *httpjson.ConnectionError
		statusErr  *httpjson.StatusError
		decodeErr  *httpjson.DecodeError
	)
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return "not_found"
	case errors.Is(err, discovery.ErrNoInstanceAvailable):
		return "no_instance"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &decodeErr):
		return "decode"
	}
	return "unknown"
}
