package biz

import (
	"context"
	"errors"
	"testing"
)

type failingRepo struct {
	memRepo
	updateErr error
}

func (f *failingRepo) Update(ctx context.Context, id string, upd *VideoUpdate) error {
	return f.updateErr
}

type failingNotifier struct {
	memNotifier
	publishErr error
}

func (f *failingNotifier) Publish(ctx context.Context, group string, kind EventKind, payload any) error {
	f.memNotifier.Publish(ctx, group, kind, payload)
	return f.publishErr
}

func TestBroadcaster_ProgressPersistsThenPublishes(t *testing.T) {
	video := &Video{ID: "vid-1", OwnerID: "user-1", ProcessingStatus: StatusPending}
	repo := newMemRepo(video)
	notifier := &memNotifier{}
	b := NewBroadcaster(repo, notifier, testLogger())

	if err := b.Progress(context.Background(), video, StageSampling, 25, "extracted 10 frames"); err != nil {
		t.Fatalf("Progress failed: %v", err)
	}

	v := repo.get("vid-1")
	if v.ProcessingStatus != StatusProcessing {
		t.Errorf("Status = %s, want processing", v.ProcessingStatus)
	}
	if v.ProcessingProgress != 25 {
		t.Errorf("Progress = %d, want 25", v.ProcessingProgress)
	}

	if len(notifier.events) != 2 {
		t.Fatalf("Published %d events, want 2", len(notifier.events))
	}
	groups := map[string]bool{}
	for _, e := range notifier.events {
		groups[e.Group] = true
		if e.Kind != EventProgress {
			t.Errorf("Kind = %s, want progress", e.Kind)
		}
		p := e.Payload.(*ProgressPayload)
		if p.VideoID != "vid-1" || p.Stage != StageSampling || p.Progress != 25 {
			t.Errorf("Unexpected payload: %+v", p)
		}
	}
	if !groups[VideoGroup("vid-1")] || !groups[UserGroup("user-1")] {
		t.Errorf("Expected both groups, got %v", groups)
	}
}

func TestBroadcaster_ProgressPersistFailureSkipsPublish(t *testing.T) {
	repo := &failingRepo{updateErr: errors.New("db down")}
	notifier := &memNotifier{}
	b := NewBroadcaster(repo, notifier, testLogger())

	video := &Video{ID: "vid-1", OwnerID: "user-1"}
	if err := b.Progress(context.Background(), video, StageValidate, 0, "starting"); err == nil {
		t.Fatal("Expected error when persistence fails")
	}
	if len(notifier.events) != 0 {
		t.Errorf("Published %d events, want 0", len(notifier.events))
	}
}

func TestBroadcaster_PublishFailureIsBestEffort(t *testing.T) {
	video := &Video{ID: "vid-1", OwnerID: "user-1"}
	repo := newMemRepo(video)
	notifier := &failingNotifier{publishErr: errors.New("broker gone")}
	b := NewBroadcaster(repo, notifier, testLogger())

	if err := b.Progress(context.Background(), video, StageAudio, 75, "audio done"); err != nil {
		t.Fatalf("Progress must not surface publish errors, got %v", err)
	}

	// the persisted field is still updated for late joiners
	if v := repo.get("vid-1"); v.ProcessingProgress != 75 {
		t.Errorf("Progress = %d, want 75", v.ProcessingProgress)
	}
}

func TestBroadcaster_ErrorEvent(t *testing.T) {
	video := &Video{ID: "vid-1", OwnerID: "user-1"}
	notifier := &memNotifier{}
	b := NewBroadcaster(newMemRepo(video), notifier, testLogger())

	b.Error(context.Background(), video, "metadata extraction failed")

	kinds := notifier.kinds(VideoGroup("vid-1"))
	if len(kinds) != 1 || kinds[0] != EventError {
		t.Fatalf("Video group kinds = %v, want [error]", kinds)
	}
	p := notifier.events[0].Payload.(*ErrorPayload)
	if p.Error != "metadata extraction failed" {
		t.Errorf("Error = %q", p.Error)
	}
}

func TestBroadcaster_CompleteEvent(t *testing.T) {
	video := &Video{ID: "vid-1", OwnerID: "user-1"}
	notifier := &memNotifier{}
	b := NewBroadcaster(newMemRepo(video), notifier, testLogger())

	b.Complete(context.Background(), video, &CompletePayload{
		VideoID:        "vid-1",
		Classification: string(ClassificationSafe),
		Score:          0.12,
	})

	if kinds := notifier.kinds(UserGroup("user-1")); len(kinds) != 1 || kinds[0] != EventComplete {
		t.Fatalf("User group kinds = %v, want [complete]", kinds)
	}
}
