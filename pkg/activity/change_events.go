package activity

import (
	"strings"
	"time"
)

// Object types of collection events.
const (
	ObjectTypeList = "collection.list"
	ObjectTypeSet  = "collection.set"
)

// Verbs of collection events.
const (
	VerbAdded          = "collection.added"
	VerbRemoved        = "collection.removed"
	VerbReplaced       = "collection.replaced"
	VerbPermuted       = "collection.permuted"
	VerbUpdated        = "collection.updated"
	VerbSubInvalidated = "collection.sub_invalidated"
)

// ChangeEventInput describes one step of a flushed change.
type ChangeEventInput struct {
	ActorID      string
	TenantID     string
	CollectionID string
	ObjectType   string
	Channel      string
	Verb         string
	From         int
	To           int
	AddedCount   int
	RemovedCount int
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BuildChangeEvent constructs the activity event for one change step.
func BuildChangeEvent(input ChangeEventInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	metadata["from"] = input.From
	metadata["to"] = input.To
	metadata["added_count"] = input.AddedCount
	metadata["removed_count"] = input.RemovedCount
	return buildCollectionEvent(input.Verb, input, metadata)
}

// BuildSubInvalidationEvent constructs the event for a flush that carried no
// structural change, only element invalidations.
func BuildSubInvalidationEvent(input ChangeEventInput) Event {
	return buildCollectionEvent(VerbSubInvalidated, input, cloneMap(input.Metadata))
}

func buildCollectionEvent(verb string, input ChangeEventInput, metadata map[string]any) Event {
	objectType := strings.TrimSpace(input.ObjectType)
	if objectType == "" {
		objectType = ObjectTypeList
	}
	objectID := strings.TrimSpace(input.CollectionID)
	if objectID == "" {
		objectID = objectType
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
