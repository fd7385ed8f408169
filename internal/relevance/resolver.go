package relevance

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/remedyd/internal/relevance"

// Resolver runs the strategy cascade.
type Resolver struct {
	strategies []Strategy
	logger     *logging.Logger

	tracer         trace.Tracer
	meter          metric.Meter
	resolveCounter metric.Int64Counter
}

// NewResolver creates a resolver with the standard cascade: entity
// extraction, categorical heuristics, semantic similarity, text match.
// index may be nil to disable the semantic strategy.
func NewResolver(index SimilarityIndex, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Resolver{
		strategies: []Strategy{
			NewEntityStrategy(logger),
			NewCategoryStrategy(logger),
			NewSemanticStrategy(index, logger),
			NewTextMatchStrategy(logger),
		},
		logger: logger.Named("relevance"),
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	r.initMetrics()
	return r
}

// NewResolverWithStrategies creates a resolver with an explicit cascade.
// Used by tests to exercise individual strategies.
func NewResolverWithStrategies(logger *logging.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Resolver{
		strategies: strategies,
		logger:     logger.Named("relevance"),
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}
	r.initMetrics()
	return r
}

func (r *Resolver) initMetrics() {
	var err error
	r.resolveCounter, err = r.meter.Int64Counter(
		"remedyd.relevance.resolutions_total",
		metric.WithDescription("Total relevance resolutions labeled by the strategy that produced the result"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		r.logger.Warn(context.Background(), "failed to create resolve counter", zap.Error(err))
	}
}

// Resolve returns ranked repository-relative candidate paths for the
// issue. It never fails: strategy errors fall through to the next
// strategy, and a total miss returns the "unknown" sentinel.
func (r *Resolver) Resolve(ctx context.Context, iss *issue.Issue, root string) []string {
	ctx, span := r.tracer.Start(ctx, "relevance.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("issue.title", iss.Title))

	for _, strategy := range r.strategies {
		paths, err := strategy.Resolve(ctx, iss, root)
		if err != nil {
			r.logger.Warn(ctx, "strategy failed, falling through",
				zap.String("strategy", strategy.Name()),
				zap.Error(err),
			)
			continue
		}
		if len(paths) > 0 {
			span.SetAttributes(
				attribute.String("strategy", strategy.Name()),
				attribute.Int("result_count", len(paths)),
			)
			if r.resolveCounter != nil {
				r.resolveCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy.Name())))
			}
			r.logger.Debug(ctx, "resolved issue to files",
				zap.String("strategy", strategy.Name()),
				zap.Strings("paths", paths),
			)
			return paths
		}
	}

	span.SetAttributes(attribute.String("strategy", "none"))
	if r.resolveCounter != nil {
		r.resolveCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", "none")))
	}
	return []string{issue.UnknownFile}
}
