package audit

import (
	"context"
	"testing"
	"time"
)

func TestNewStoreBadConnString(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := NewStore(ctx, "not-a-conn-string"); err == nil {
		t.Fatal("expected error for malformed connection string")
	}
}

func TestNewStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Reserved TEST-NET address, nothing listens there.
	_, err := NewStore(ctx, "postgres://user:pw@192.0.2.1:5432/audit")
	if err == nil {
		t.Fatal("expected connection error")
	}
}
