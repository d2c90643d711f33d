package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorKind classifies engine failures so transports can map them without
// string matching.
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindNotFound   ErrorKind = "VALUE_NOT_FOUND"
	KindForbidden  ErrorKind = "FORBIDDEN"
	KindDatabase   ErrorKind = "DATABASE_ERROR"
	KindServer     ErrorKind = "SERVER_ERROR"
)

// FriendshipError is the error type returned by FriendshipService. Two
// FriendshipErrors match under errors.Is when kind and message agree, so
// wrapped copies still match the package sentinels.
type FriendshipError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func newFriendshipError(kind ErrorKind, message string) *FriendshipError {
	return &FriendshipError{Kind: kind, Message: message}
}

func (e *FriendshipError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FriendshipError) Unwrap() error {
	return e.Err
}

func (e *FriendshipError) Is(target error) bool {
	t, ok := target.(*FriendshipError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// wrap returns a copy of e carrying cause.
func (e *FriendshipError) wrap(cause error) *FriendshipError {
	return &FriendshipError{Kind: e.Kind, Message: e.Message, Err: cause}
}

var (
	ErrMissingUserID          = newFriendshipError(KindValidation, "user id is required")
	ErrMissingFriendshipID    = newFriendshipError(KindValidation, "friendship id is required")
	ErrCannotFriendSelf       = newFriendshipError(KindValidation, "cannot send friend request to yourself")
	ErrSameUserComparison     = newFriendshipError(KindValidation, "cannot look up common friends of a user with themselves")
	ErrSelfFriendship         = newFriendshipError(KindValidation, "a user has no friendship with themselves")
	ErrRequesterNotFound      = newFriendshipError(KindNotFound, "requester does not exist")
	ErrRecipientNotFound      = newFriendshipError(KindNotFound, "recipient does not exist")
	ErrFriendshipNotFound     = newFriendshipError(KindNotFound, "friendship request not found")
	ErrNotFriendshipRecipient = newFriendshipError(KindForbidden, "only the recipient can accept or reject this request")
	ErrRemoveRejectedFailed   = newFriendshipError(KindDatabase, "could not remove the previous rejected relationship")
	ErrFriendshipStore        = newFriendshipError(KindDatabase, "friendship store failure")
	ErrUserDirectory          = newFriendshipError(KindDatabase, "user directory failure")
	ErrCreateConflict         = newFriendshipError(KindDatabase, "friend request kept conflicting with concurrent writes")
	ErrPairLockUnavailable    = newFriendshipError(KindServer, "could not serialize friend request")
	ErrUnknownStatus          = newFriendshipError(KindServer, "friendship has an unknown status")
)

// Store-level sentinels. FriendshipStore and UserDirectory implementations
// return these so the engine can branch without knowing the backend.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
)

// MissingUserError is returned by FriendshipStore.Create when one side of
// the pair no longer exists.
type MissingUserError struct {
	UserID uuid.UUID
}

func (e *MissingUserError) Error() string {
	return fmt.Sprintf("user %s does not exist", e.UserID)
}

// KindOf reports the ErrorKind of err. Errors that did not come from the
// engine are treated as server errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fe *FriendshipError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindServer
}
