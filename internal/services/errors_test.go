package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestFriendshipError_IsMatchesKindAndMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrFriendshipStore.wrap(cause)

	if !errors.Is(err, ErrFriendshipStore) {
		t.Fatal("expected wrapped error to match its sentinel")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped error to expose its cause")
	}
	if errors.Is(err, ErrUserDirectory) {
		t.Fatal("expected different message not to match")
	}
	if errors.Is(ErrFriendshipNotFound, newFriendshipError(KindDatabase, ErrFriendshipNotFound.Message)) {
		t.Fatal("expected different kind not to match")
	}
}

func TestFriendshipError_Error(t *testing.T) {
	if got := ErrCannotFriendSelf.Error(); got != "VALIDATION_ERROR: cannot send friend request to yourself" {
		t.Fatalf("unexpected message: %q", got)
	}
	got := ErrRemoveRejectedFailed.wrap(errors.New("boom")).Error()
	if got != "DATABASE_ERROR: could not remove the previous rejected relationship: boom" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: ErrCannotFriendSelf, want: KindValidation},
		{name: "not found", err: ErrFriendshipNotFound, want: KindNotFound},
		{name: "forbidden", err: ErrNotFriendshipRecipient, want: KindForbidden},
		{name: "wrapped by fmt", err: fmt.Errorf("handler: %w", ErrCreateConflict), want: KindDatabase},
		{name: "foreign", err: errors.New("unexpected"), want: KindServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
