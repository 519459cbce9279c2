package log

import (
	"context"

	"go.uber.org/zap"

	"github.com/salim16/microservices-kaushik/catalogue/pkg/model"
)

// Reporter writes omitted catalogue items to the log.
type Reporter struct {
	logger *zap.Logger
}

// New creates a log-backed omission reporter.
func New(logger *zap.Logger) *Reporter {
	return &Reporter{logger: logger}
}

// ReportOmission logs the omission event.
func (r *Reporter) ReportOmission(_ context.Context, e model.OmissionEvent) {
	r.logger.Info("Catalogue item omitted",
		zap.String("userId", e.UserID),
		zap.String("movieId", e.MovieID),
		zap.String("reason", e.Reason),
		zap.Time("occurredAt", e.OccurredAt),
	)
}
