package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusRejected FriendshipStatus = "rejected"
)

func (s FriendshipStatus) Valid() bool {
	switch s {
	case FriendshipStatusPending, FriendshipStatusAccepted, FriendshipStatusRejected:
		return true
	}
	return false
}

// Friendship is a directed request from RequesterID to RecipientID. Once
// accepted it denotes a symmetric relationship.
type Friendship struct {
	ID          uuid.UUID        `json:"id"`
	RequesterID uuid.UUID        `json:"requester_id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Involves reports whether userID is either party of the friendship.
func (f *Friendship) Involves(userID uuid.UUID) bool {
	return f.RequesterID == userID || f.RecipientID == userID
}

// Counterpart returns the other party relative to userID.
func (f *Friendship) Counterpart(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.RecipientID
	}
	return f.RequesterID
}

// IsActive reports whether the record counts toward the one-active-per-pair rule.
func (f *Friendship) IsActive() bool {
	return f.Status == FriendshipStatusPending || f.Status == FriendshipStatusAccepted
}

// FriendshipOutcome tags what a create/accept/reject call did. Informational
// outcomes mean the requested state was already reached and nothing changed.
type FriendshipOutcome string

const (
	OutcomeCreated                FriendshipOutcome = "created"
	OutcomeRecreated              FriendshipOutcome = "recreated"
	OutcomeAlreadyFriends         FriendshipOutcome = "already_friends"
	OutcomeAlreadyPendingSent     FriendshipOutcome = "already_pending_sent"
	OutcomeAlreadyPendingReceived FriendshipOutcome = "already_pending_received"
	OutcomeAccepted               FriendshipOutcome = "accepted"
	OutcomeAlreadyAccepted        FriendshipOutcome = "already_accepted"
	OutcomeRejected               FriendshipOutcome = "rejected"
	OutcomeAlreadyRejected        FriendshipOutcome = "already_rejected"
)

var outcomeMessages = map[FriendshipOutcome]string{
	OutcomeCreated:                "Friend request sent",
	OutcomeRecreated:              "Friend request sent again after a previous rejection",
	OutcomeAlreadyFriends:         "You are already friends with this user",
	OutcomeAlreadyPendingSent:     "You already sent this request and it is awaiting a response",
	OutcomeAlreadyPendingReceived: "The other user already sent you a request; accept or reject it",
	OutcomeAccepted:               "Friend request accepted",
	OutcomeAlreadyAccepted:        "This friend request was already accepted",
	OutcomeRejected:               "Friend request rejected",
	OutcomeAlreadyRejected:        "This friend request was already rejected",
}

// Message returns a human-readable description of the outcome.
func (o FriendshipOutcome) Message() string {
	if msg, ok := outcomeMessages[o]; ok {
		return msg
	}
	return string(o)
}

// Changed reports whether the outcome corresponds to a state mutation.
func (o FriendshipOutcome) Changed() bool {
	switch o {
	case OutcomeCreated, OutcomeRecreated, OutcomeAccepted, OutcomeRejected:
		return true
	}
	return false
}

// CommonFriendships is the mutual-friend view between two users.
type CommonFriendships struct {
	MutualFriendIDs []uuid.UUID  `json:"mutual_friend_ids"`
	Friendships     []Friendship `json:"friendships"`
}

// FriendshipRequests splits a user's pending requests by direction.
type FriendshipRequests struct {
	Incoming []Friendship `json:"incoming"`
	Outgoing []Friendship `json:"outgoing"`
}
