package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresTypeAndKind(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{Type: EventTypeCommand}); err == nil {
		t.Fatalf("expected error for command without kind")
	}
}

func TestService_LogCommandCapturesActor(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	ctx := WithActor(context.Background(), Actor{UserID: "u", Role: "operator", IP: "1.2.3.4"})
	if err := svc.LogCommand(ctx, "SetUpCall", "tok", false, "Rejected: busy"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	e := evs[0]
	if e.IPAddress != "1.2.3.4" || e.ActorRole != "operator" {
		t.Fatalf("expected actor captured, got %+v", e)
	}
	if e.Type != EventTypeCommand || e.Accepted || e.CallToken != "tok" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp")
	}
}

func TestWithActor_EmptyLeavesContext(t *testing.T) {
	ctx := context.Background()
	if WithActor(ctx, Actor{}) != ctx {
		t.Fatalf("expected unchanged context")
	}
	if ActorFromContext(ctx) != (Actor{}) {
		t.Fatalf("expected zero actor")
	}
}

func TestPostgresRepo_ImplementsRepository(t *testing.T) {
	var _ Repository = (*PostgresRepo)(nil)
}
