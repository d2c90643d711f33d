package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

// FriendshipStore persists friendship records. Implementations must reject a
// second active (pending or accepted) record for the same unordered pair with
// ErrDuplicateKey.
type FriendshipStore interface {
	Create(ctx context.Context, requesterID, recipientID uuid.UUID) (*models.Friendship, error)
	// FindByPair returns the record linking a and b in either direction,
	// preferring the active one. ErrRecordNotFound when there is none.
	FindByPair(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error)
	// SetStatus moves id from one status to another and reports whether the
	// record was still in the expected state.
	SetStatus(ctx context.Context, id uuid.UUID, from, to models.FriendshipStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListAcceptedForUser(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error)
	ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error)
}

// UserDirectory answers whether a user exists.
type UserDirectory interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ContactDirectory resolves the addressing details for a user.
type ContactDirectory interface {
	GetContact(ctx context.Context, userID uuid.UUID) (*models.UserContact, error)
}

// NotificationSink is told about new friend requests. Delivery is best
// effort; the engine logs and drops errors.
type NotificationSink interface {
	NotifyFriendRequest(ctx context.Context, recipientID, requesterID uuid.UUID) error
}

// PairLocker serializes create calls for one unordered user pair.
type PairLocker interface {
	Lock(ctx context.Context, a, b uuid.UUID) (unlock func(), err error)
}

// OutcomeRecorder receives per-operation results for metrics.
type OutcomeRecorder interface {
	RecordOutcome(operation string, outcome models.FriendshipOutcome)
	RecordError(operation string, kind string)
	RecordNotification(result string)
}

// FriendshipServiceInterface is the engine surface consumed by handlers.
type FriendshipServiceInterface interface {
	CreateFriendship(ctx context.Context, requesterID, recipientID uuid.UUID) (*CreateResult, error)
	AcceptFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) (models.FriendshipOutcome, error)
	RejectFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) (models.FriendshipOutcome, error)
	GetFriendship(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error)
	GetUserFriendships(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error)
	GetCommonFriendships(ctx context.Context, userID, otherUserID uuid.UUID) (*models.CommonFriendships, error)
	ListFriendshipRequests(ctx context.Context, userID uuid.UUID) (*models.FriendshipRequests, error)
	DeleteFriendshipByID(ctx context.Context, friendshipID uuid.UUID) error
	DeleteFriendship(ctx context.Context, userID, friendID uuid.UUID) error
}
