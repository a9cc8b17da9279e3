package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gearboxe-market/messaging/internal/domain"
)

func legacyMessage(repo *fakeRepo, from, to, vehicle, content string, at time.Time) {
	repo.InsertMessage(context.Background(), nil, &domain.Message{
		ID:          uuid.NewString(),
		SenderID:    from,
		RecipientID: to,
		VehicleID:   vehicle,
		Content:     content,
		CreatedAt:   at,
	})
}

func TestBackfill_GroupsByVehicleAndPair(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	s := newTestService(repo, nil)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// One thread, both directions; a second thread for another vehicle.
	legacyMessage(repo, "buyer", "seller", "vehicle-1", "hi", base)
	legacyMessage(repo, "seller", "buyer", "vehicle-1", "hello", base.Add(time.Minute))
	legacyMessage(repo, "buyer", "seller", "vehicle-2", "other car?", base.Add(2*time.Minute))

	linked, err := s.Backfill(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if linked != 3 {
		t.Fatalf("linked %d messages, want 3", linked)
	}

	conv1, err := s.ConversationByParticipants(ctx, "vehicle-1", "buyer", "seller")
	if err != nil || conv1 == nil {
		t.Fatalf("vehicle-1 conversation missing after backfill: %v", err)
	}
	conv2, err := s.ConversationByParticipants(ctx, "vehicle-2", "buyer", "seller")
	if err != nil || conv2 == nil {
		t.Fatalf("vehicle-2 conversation missing after backfill: %v", err)
	}
	if conv1.ID == conv2.ID {
		t.Fatal("distinct vehicles merged into one conversation")
	}

	msgs1, _ := s.ListMessages(ctx, conv1.ID, "buyer")
	if len(msgs1) != 2 {
		t.Errorf("vehicle-1 thread has %d messages, want 2", len(msgs1))
	}
	if !conv1.LastMessageAt.Equal(base.Add(time.Minute)) {
		t.Errorf("last_message_at = %v, want newest message time", conv1.LastMessageAt)
	}
	if !conv1.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want oldest message time", conv1.CreatedAt)
	}
}

func TestBackfill_ReusesExistingConversation(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	s := newTestService(repo, nil)

	// A conversation already exists from a post-migration send.
	sent, err := s.SendMessage(ctx, SendMessageCommand{
		SenderID: "buyer", RecipientID: "seller", VehicleID: "vehicle-1",
		Content: "new message",
	})
	if err != nil {
		t.Fatal(err)
	}

	legacyMessage(repo, "seller", "buyer", "vehicle-1", "old message",
		time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC))

	linked, err := s.Backfill(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if linked != 1 {
		t.Fatalf("linked %d, want 1", linked)
	}

	msgs, _ := s.ListMessages(ctx, *sent.ConversationID, "buyer")
	if len(msgs) != 2 {
		t.Errorf("expected the legacy row in the existing thread, got %d messages", len(msgs))
	}
	if len(repo.convs) != 1 {
		t.Errorf("backfill created a duplicate conversation: %d stored", len(repo.convs))
	}
}

func TestBackfill_RerunIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	s := newTestService(repo, nil)

	legacyMessage(repo, "buyer", "seller", "vehicle-1", "hi",
		time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC))

	if _, err := s.Backfill(ctx); err != nil {
		t.Fatal(err)
	}
	linked, err := s.Backfill(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if linked != 0 {
		t.Errorf("second run linked %d messages, want 0", linked)
	}
}
