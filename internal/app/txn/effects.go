package txn

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen11/taskboard/internal/app/fanout"
	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/platform/telemetry"
)

// runEffects starts applying committed effects in the background and returns
// immediately. Effects keep the request's values but not its cancellation or
// deadline.
func (c *Coordinator) runEffects(ctx context.Context, logger *slog.Logger, effects []domain.Effect) {
	if len(effects) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	c.pending.Go(func() {
		c.applyEffects(ctx, logger, effects)
	})
}

// applyEffects runs effects with bounded concurrency and reports each outcome.
func (c *Coordinator) applyEffects(ctx context.Context, logger *slog.Logger, effects []domain.Effect) {
	failures := fanout.Each(ctx, c.effectWorkers, effects,
		func(ctx context.Context, e domain.Effect) error {
			return e.Apply(ctx)
		})

	failed := make(map[int]bool, len(failures))
	for _, f := range failures {
		failed[f.Index] = true
		logger.ErrorContext(ctx, "post-commit effect failed",
			slog.Int("step", f.Index+1),
			slog.Int("total", len(effects)),
			slog.String("effect", effects[f.Index].Description()),
			slog.Any("error", f.Err),
		)
	}
	for i, e := range effects {
		if !failed[i] {
			logger.DebugContext(ctx, "post-commit effect applied",
				slog.String("effect", e.Description()),
			)
		}
	}
	c.recordEffects(ctx, len(effects)-len(failures), len(failures))
}

func (c *Coordinator) recordEffects(ctx context.Context, applied, failed int) {
	if c.metrics == nil {
		return
	}
	for result, n := range map[string]int{telemetry.ResultApplied: applied, telemetry.ResultFailed: failed} {
		if n > 0 {
			c.metrics.EffectTotal.Add(ctx, int64(n), metric.WithAttributes(telemetry.AttrResult.String(result)))
		}
	}
}
