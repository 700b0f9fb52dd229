package ports

import "context"

// HealthChecker is a dependency the readiness probe asks about: the entity
// store, and the webhook publisher when notifications are enabled.
type HealthChecker interface {
	// Name keys the checker's result in the readiness body.
	Name() string
	// HealthCheck returns nil when the dependency can serve requests. It
	// must return once ctx is done.
	HealthCheck(ctx context.Context) error
}

// HealthRegistry collects checkers at startup and runs them per probe.
type HealthRegistry interface {
	Register(checker HealthChecker)
	// CheckAll returns one entry per registered checker; nil means healthy.
	CheckAll(ctx context.Context) map[string]error
}
