package activity

import (
	"testing"
)

func TestBuildChangeEventCarriesRangeMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := ChangeEventInput{
		ActorID:      " actor ",
		TenantID:     " tenant ",
		CollectionID: "orders",
		ObjectType:   ObjectTypeSet,
		Verb:         VerbReplaced,
		From:         2,
		To:           4,
		AddedCount:   2,
		RemovedCount: 1,
		Metadata:     meta,
	}

	event := BuildChangeEvent(input)

	if event.Verb != VerbReplaced {
		t.Fatalf("expected verb %s got %s", VerbReplaced, event.Verb)
	}
	if event.ObjectType != ObjectTypeSet || event.ObjectID != "orders" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.TenantID != "tenant" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Metadata["from"] != 2 || event.Metadata["to"] != 4 {
		t.Fatalf("expected range metadata, got %+v", event.Metadata)
	}
	if event.Metadata["added_count"] != 2 || event.Metadata["removed_count"] != 1 {
		t.Fatalf("expected count metadata, got %+v", event.Metadata)
	}
	if event.Metadata["custom"] != "value" {
		t.Fatalf("expected custom metadata passthrough, got %+v", event.Metadata)
	}
	if _, ok := meta["from"]; ok {
		t.Fatalf("expected input metadata untouched: %+v", meta)
	}
}

func TestBuildChangeEventFallsBackToObjectType(t *testing.T) {
	event := BuildChangeEvent(ChangeEventInput{Verb: VerbAdded})
	if event.ObjectType != ObjectTypeList {
		t.Fatalf("expected default object type, got %q", event.ObjectType)
	}
	if event.ObjectID != ObjectTypeList {
		t.Fatalf("expected fallback object ID, got %q", event.ObjectID)
	}
}

func TestBuildSubInvalidationEventHasNoRange(t *testing.T) {
	event := BuildSubInvalidationEvent(ChangeEventInput{CollectionID: "c1", ObjectType: ObjectTypeList})
	if event.Verb != VerbSubInvalidated {
		t.Fatalf("expected %s got %s", VerbSubInvalidated, event.Verb)
	}
	if _, ok := event.Metadata["from"]; ok {
		t.Fatalf("expected no range metadata, got %+v", event.Metadata)
	}
	if !event.Valid() {
		t.Fatalf("expected event to be valid: %+v", event)
	}
}
