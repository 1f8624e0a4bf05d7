package reqid

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("expected %q from context, got %q ok=%v", id, got, ok)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("id %q is not a uuid: %v", id, err)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("unexpected id in empty context")
	}
}

func TestFromHeader(t *testing.T) {
	const incoming = "6F9619FF-8B86-D011-B42D-00C04FC964FF"
	_, id := FromHeader(context.Background(), incoming)
	if id != "6f9619ff-8b86-d011-b42d-00c04fc964ff" {
		t.Fatalf("expected normalized incoming id, got %q", id)
	}

	_, id = FromHeader(context.Background(), "not-a-uuid")
	if id == "not-a-uuid" || id == "" {
		t.Fatalf("expected a generated id, got %q", id)
	}
}
