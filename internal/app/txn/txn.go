// Package txn provides the transaction coordinator used by the application
// services.
//
// WithTransaction opens one store scope, hands it to the body, and then
// commits on success or aborts on any error. The scope is released exactly
// once on every exit path, including a panic in the body:
//
//	u, err := txn.WithTransaction(ctx, coord, "UserService.UpdateUser",
//	    func(ctx context.Context, tx *txn.Tx) (*user.User, error) {
//	        u, err := store.GetUser(ctx, tx.Scope(), id)
//	        ...
//	        tx.OnCommit(publishEffect)
//	        return u, nil
//	    })
//
// Effects registered with OnCommit run only after a successful commit, in the
// background: WithTransaction returns as soon as the commit is published.
// They never take part in rollback; a failing effect is logged and the
// committed data stays. Drain waits for effects still running.
//
// A body whose context is done by the time it returns is aborted instead of
// committed.
//
// Transactions do not nest. A body must not call WithTransaction again.
package txn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/platform/logging"
	"github.com/jsamuelsen11/taskboard/internal/platform/telemetry"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

const (
	tracerName = "github.com/jsamuelsen11/taskboard/internal/app/txn"

	defaultEffectWorkers = 4
)

// Coordinator opens and finishes store transactions.
type Coordinator struct {
	store         ports.TxBeginner
	metrics       *telemetry.Metrics
	tracer        trace.Tracer
	effectWorkers int

	pending sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics records store.transaction.* metrics for every transaction.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTracer overrides the tracer used for transaction spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// WithEffectWorkers bounds how many post-commit effects run concurrently.
// Values below 1 are ignored.
func WithEffectWorkers(n int) Option {
	return func(c *Coordinator) {
		if n >= 1 {
			c.effectWorkers = n
		}
	}
}

// NewCoordinator creates a Coordinator over the given store.
func NewCoordinator(store ports.TxBeginner, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:         store,
		tracer:        otel.Tracer(tracerName),
		effectWorkers: defaultEffectWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tx is the handle a transaction body works with. It is owned by the body's
// goroutine and must not be retained after the body returns.
type Tx struct {
	scope   ports.Scope
	effects []domain.Effect
}

// Scope returns the store scope to pass to every store call in the body.
func (tx *Tx) Scope() ports.Scope {
	return tx.scope
}

// OnCommit registers an effect to run after the transaction commits.
// Nil effects are ignored.
func (tx *Tx) OnCommit(e domain.Effect) {
	if e != nil {
		tx.effects = append(tx.effects, e)
	}
}

// WithTransaction runs body inside a new store transaction named op.
//
// A nil error from body commits; any non-nil error aborts and is returned
// unchanged so callers can classify it. A panic in body aborts and is
// re-raised. A commit failure aborts and is returned wrapped, as does a
// context that ended while the body ran.
func WithTransaction[T any](ctx context.Context, c *Coordinator, op string,
	body func(ctx context.Context, tx *Tx) (T, error),
) (T, error) {
	var zero T

	ctx, span := c.tracer.Start(ctx, "txn "+op,
		trace.WithAttributes(attribute.String("txn.operation", op)))
	defer span.End()

	ctx = logging.With(ctx, logging.Operation(op))
	logger := logging.FromContext(ctx)
	start := time.Now()

	sc, err := c.store.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return zero, fmt.Errorf("beginning transaction: %w", err)
	}
	logger.DebugContext(ctx, "transaction started")

	tx := &Tx{scope: sc}
	released := false
	abort := func() {
		if released {
			return
		}
		released = true
		sc.Abort()
		c.record(ctx, op, telemetry.ResultAborted, start)
	}

	defer func() {
		if p := recover(); p != nil {
			abort()
			logger.ErrorContext(ctx, "transaction body panicked, aborted",
				slog.Any("panic", p),
			)
			span.SetStatus(codes.Error, "panic")
			panic(p)
		}
	}()

	result, err := body(ctx, tx)
	if err != nil {
		abort()
		logger.WarnContext(ctx, "transaction aborted",
			slog.Int("discarded_effects", len(tx.effects)),
			slog.Any("error", err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "aborted")
		return zero, err
	}

	if err := ctx.Err(); err != nil {
		abort()
		logger.WarnContext(ctx, "transaction aborted, context done before commit",
			slog.Int("discarded_effects", len(tx.effects)),
			slog.Any("error", err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "context done")
		return zero, fmt.Errorf("committing transaction: %w", err)
	}

	if err := sc.Commit(); err != nil {
		abort()
		logger.ErrorContext(ctx, "transaction commit failed",
			slog.Any("error", err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return zero, fmt.Errorf("committing transaction: %w", err)
	}
	released = true
	c.record(ctx, op, telemetry.ResultCommitted, start)
	logger.DebugContext(ctx, "transaction committed",
		slog.Int("effects", len(tx.effects)),
	)

	c.runEffects(ctx, logger, tx.effects)
	return result, nil
}

// Drain blocks until every post-commit effect started so far has finished,
// or until ctx is done. Callers stop starting transactions first.
func (c *Coordinator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining effects: %w", ctx.Err())
	}
}

func (c *Coordinator) record(ctx context.Context, op, result string, start time.Time) {
	if c.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		telemetry.AttrOperation.String(op),
		telemetry.AttrResult.String(result),
	)
	c.metrics.TxTotal.Add(ctx, 1, attrs)
	c.metrics.TxDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}
