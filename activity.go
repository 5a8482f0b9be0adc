package observable

import (
	"context"

	"github.com/goliatone/go-observable/pkg/activity"
	"github.com/rs/zerolog"
)

// activityEmitter turns flushed changes into activity events. A nil emitter
// emits nothing.
type activityEmitter struct {
	emitter    *activity.Emitter
	logger     zerolog.Logger
	objectType string
	id         string
	actorID    string
	tenantID   string
}

func newActivityEmitter(cfg collectionConfig, objectType string, logger zerolog.Logger) *activityEmitter {
	if len(cfg.activityHooks) == 0 {
		return nil
	}
	config := activity.Config{Enabled: true}
	if cfg.activityConfig != nil {
		config = *cfg.activityConfig
	}
	emitter := activity.NewEmitter(cfg.activityHooks, config)
	if !emitter.Enabled() {
		return nil
	}
	return &activityEmitter{
		emitter:    emitter,
		logger:     logger,
		objectType: objectType,
		id:         cfg.id,
		actorID:    cfg.activityActor,
		tenantID:   cfg.activityTenant,
	}
}

func (a *activityEmitter) input(verb string) activity.ChangeEventInput {
	return activity.ChangeEventInput{
		ActorID:      a.actorID,
		TenantID:     a.tenantID,
		CollectionID: a.id,
		ObjectType:   a.objectType,
		Verb:         verb,
	}
}

func (a *activityEmitter) emit(events ...activity.Event) {
	if err := a.emitter.Emit(context.Background(), events...); err != nil {
		a.logger.Error().Err(err).Msg("activity hook failed")
	}
}

func (a *activityEmitter) emitSetChange(kind ChangeKind) {
	if a == nil {
		return
	}
	input := a.input(verbFor(kind))
	input.To = 1
	if kind == KindAdd {
		input.AddedCount = 1
	} else {
		input.RemovedCount = 1
	}
	a.emit(activity.BuildChangeEvent(input))
}

func (a *activityEmitter) emitSubInvalidated() {
	if a == nil {
		return
	}
	a.emit(activity.BuildSubInvalidationEvent(a.input(activity.VerbSubInvalidated)))
}

// emitListChange emits one event per step of a list change.
func emitListChange[E any](a *activityEmitter, steps []Step[E]) {
	if a == nil || len(steps) == 0 {
		return
	}
	events := make([]activity.Event, 0, len(steps))
	for _, step := range steps {
		input := a.input(verbFor(step.Kind))
		input.From = step.From
		input.To = step.To
		input.RemovedCount = len(step.Removed)
		if step.Kind == KindAdd || step.Kind == KindReplace {
			input.AddedCount = step.To - step.From
		}
		events = append(events, activity.BuildChangeEvent(input))
	}
	a.emit(events...)
}

func verbFor(kind ChangeKind) string {
	switch kind {
	case KindAdd:
		return activity.VerbAdded
	case KindRemove:
		return activity.VerbRemoved
	case KindReplace:
		return activity.VerbReplaced
	case KindPermute:
		return activity.VerbPermuted
	default:
		return activity.VerbUpdated
	}
}
