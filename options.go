package observable

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-observable/gate"
	"github.com/goliatone/go-observable/pkg/activity"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Option configures a collection at construction.
type Option func(*collectionConfig)

type collectionConfig struct {
	id             string
	gate           gate.Gate
	executor       Executor
	extractor      any
	logger         zerolog.Logger
	activityHooks  activity.Hooks
	activityConfig *activity.Config
	activityActor  string
	activityTenant string
}

func applyOptions(opts []Option) collectionConfig {
	cfg := collectionConfig{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	if cfg.gate == nil {
		cfg.gate = gate.NewStampedLock()
	}
	return cfg
}

// WithID names the collection in logs and activity events. A random UUID is
// used otherwise.
func WithID(id string) Option {
	return func(cfg *collectionConfig) {
		cfg.id = strings.TrimSpace(id)
	}
}

// WithGate replaces the default gate.StampedLock. Two collections sharing a
// gate are mutated under the same write scope.
func WithGate(g gate.Gate) Option {
	return func(cfg *collectionConfig) {
		cfg.gate = g
	}
}

// WithExecutor initializes the collection executor at construction, so
// Initialize must not be called afterwards.
func WithExecutor(executor Executor) Option {
	return func(cfg *collectionConfig) {
		cfg.executor = executor
	}
}

// WithExtractor selects the observables watched for each element. Without
// an extractor, elements implementing Observable or PropertyObject are
// watched directly.
func WithExtractor[E any](extractor func(E) []Observable) Option {
	return func(cfg *collectionConfig) {
		if extractor == nil {
			cfg.extractor = nil
			return
		}
		cfg.extractor = extractor
	}
}

// WithLogger sets the logger used for flush diagnostics and activity errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *collectionConfig) {
		cfg.logger = logger
	}
}

// WithActivityHooks emits an activity event for every flushed change.
// Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *collectionConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the emission defaults. Without it, emission is
// enabled whenever hooks are configured.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *collectionConfig) {
		cfg.activityConfig = &config
	}
}

// WithActivityActor stamps emitted events with actor and tenant ids.
func WithActivityActor(actorID, tenantID string) Option {
	return func(cfg *collectionConfig) {
		cfg.activityActor = actorID
		cfg.activityTenant = tenantID
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

func extractorFor[E any](value any) func(E) []Observable {
	if value == nil {
		return nil
	}
	extractor, ok := value.(func(E) []Observable)
	if !ok {
		panic(fmt.Errorf("observable: extractor %T does not accept %T elements", value, *new(E)))
	}
	return extractor
}
