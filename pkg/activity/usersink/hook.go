package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-observable/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook records collection activity in a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Source is stored under the "source" data key when set, to tell
	// collection activity apart from other producers sharing the sink.
	Source string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// The actor doubles as the user, since collection changes have no subject
// other than the one who made them.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	actorID := parseUUID(normalized.ActorID)
	record := usertypes.ActivityRecord{
		ActorID:    actorID,
		UserID:     actorID,
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       recordData(normalized.Metadata, h.Source),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	return h.Sink.Log(ctx, record)
}

func recordData(metadata map[string]any, source string) map[string]any {
	source = strings.TrimSpace(source)
	if len(metadata) == 0 && source == "" {
		return nil
	}
	data := make(map[string]any, len(metadata)+1)
	for key, value := range metadata {
		data[key] = value
	}
	if source != "" {
		data["source"] = source
	}
	return data
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
