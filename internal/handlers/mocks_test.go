package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialgraph/internal/models"
	"github.com/HammerMeetNail/socialgraph/internal/services"
)

type mockFriendshipService struct {
	CreateFriendshipFunc       func(ctx context.Context, requesterID, recipientID uuid.UUID) (*services.CreateResult, error)
	AcceptFriendshipFunc       func(ctx context.Context, actingUserID, friendshipID uuid.UUID) (models.FriendshipOutcome, error)
	RejectFriendshipFunc       func(ctx context.Context, actingUserID, friendshipID uuid.UUID) (models.FriendshipOutcome, error)
	GetFriendshipFunc          func(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error)
	GetUserFriendshipsFunc     func(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error)
	GetCommonFriendshipsFunc   func(ctx context.Context, userID, otherUserID uuid.UUID) (*models.CommonFriendships, error)
	ListFriendshipRequestsFunc func(ctx context.Context, userID uuid.UUID) (*models.FriendshipRequests, error)
	DeleteFriendshipByIDFunc   func(ctx context.Context, friendshipID uuid.UUID) error
	DeleteFriendshipFunc       func(ctx context.Context, userID, friendID uuid.UUID) error
}

func (m *mockFriendshipService) CreateFriendship(ctx context.Context, requesterID, recipientID uuid.UUID) (*services.CreateResult, error) {
	if m.CreateFriendshipFunc != nil {
		return m.CreateFriendshipFunc(ctx, requesterID, recipientID)
	}
	return &services.CreateResult{Outcome: models.OutcomeCreated}, nil
}

func (m *mockFriendshipService) AcceptFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) (models.FriendshipOutcome, error) {
	if m.AcceptFriendshipFunc != nil {
		return m.AcceptFriendshipFunc(ctx, actingUserID, friendshipID)
	}
	return models.OutcomeAccepted, nil
}

func (m *mockFriendshipService) RejectFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) (models.FriendshipOutcome, error) {
	if m.RejectFriendshipFunc != nil {
		return m.RejectFriendshipFunc(ctx, actingUserID, friendshipID)
	}
	return models.OutcomeRejected, nil
}

func (m *mockFriendshipService) GetFriendship(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error) {
	if m.GetFriendshipFunc != nil {
		return m.GetFriendshipFunc(ctx, friendshipID)
	}
	return &models.Friendship{ID: friendshipID}, nil
}

func (m *mockFriendshipService) GetUserFriendships(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error) {
	if m.GetUserFriendshipsFunc != nil {
		return m.GetUserFriendshipsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockFriendshipService) GetCommonFriendships(ctx context.Context, userID, otherUserID uuid.UUID) (*models.CommonFriendships, error) {
	if m.GetCommonFriendshipsFunc != nil {
		return m.GetCommonFriendshipsFunc(ctx, userID, otherUserID)
	}
	return &models.CommonFriendships{MutualFriendIDs: []uuid.UUID{}, Friendships: []models.Friendship{}}, nil
}

func (m *mockFriendshipService) ListFriendshipRequests(ctx context.Context, userID uuid.UUID) (*models.FriendshipRequests, error) {
	if m.ListFriendshipRequestsFunc != nil {
		return m.ListFriendshipRequestsFunc(ctx, userID)
	}
	return &models.FriendshipRequests{Incoming: []models.Friendship{}, Outgoing: []models.Friendship{}}, nil
}

func (m *mockFriendshipService) DeleteFriendshipByID(ctx context.Context, friendshipID uuid.UUID) error {
	if m.DeleteFriendshipByIDFunc != nil {
		return m.DeleteFriendshipByIDFunc(ctx, friendshipID)
	}
	return nil
}

func (m *mockFriendshipService) DeleteFriendship(ctx context.Context, userID, friendID uuid.UUID) error {
	if m.DeleteFriendshipFunc != nil {
		return m.DeleteFriendshipFunc(ctx, userID, friendID)
	}
	return nil
}
