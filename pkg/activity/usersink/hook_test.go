package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-observable/pkg/activity"
	"github.com/goliatone/go-observable/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsChangeEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, Source: "inventory"}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildChangeEvent(activity.ChangeEventInput{
		ActorID:      actorID.String(),
		TenantID:     tenantID.String(),
		CollectionID: "orders",
		ObjectType:   activity.ObjectTypeList,
		Channel:      activity.DefaultChannel,
		Verb:         activity.VerbAdded,
		From:         0,
		To:           2,
		AddedCount:   2,
		OccurredAt:   now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.UserID != actorID {
		t.Fatalf("expected actor %s as actor and user, got %s / %s", actorID, record.ActorID, record.UserID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != activity.VerbAdded || record.ObjectType != activity.ObjectTypeList || record.ObjectID != "orders" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != activity.DefaultChannel {
		t.Fatalf("expected channel %q got %q", activity.DefaultChannel, record.Channel)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["added_count"] != 2 || record.Data["to"] != 2 {
		t.Fatalf("expected change metadata passthrough got %v", record.Data)
	}
	if record.Data["source"] != "inventory" {
		t.Fatalf("expected source data got %v", record.Data["source"])
	}
}

func TestHookNotifySkipsInvalidEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestampAndNilIDs(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.BuildSubInvalidationEvent(activity.ChangeEventInput{
		ActorID:      "not-a-uuid",
		CollectionID: "c1",
		ObjectType:   activity.ObjectTypeSet,
	}))
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
	if sink.records[0].ActorID != uuid.Nil {
		t.Fatalf("expected nil actor for unparsable id, got %s", sink.records[0].ActorID)
	}
	if sink.records[0].Data != nil {
		t.Fatalf("expected no data, got %v", sink.records[0].Data)
	}
}
