package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"

	// Postgres default name for the inline REFERENCES on requester_id.
	requesterForeignKey = "friendships_requester_id_fkey"
)

const friendshipColumns = `id, requester_id, recipient_id, status, created_at, updated_at`

// FriendshipRepository is the Postgres FriendshipStore. The active-pair
// invariant is enforced by the friendships_active_pair_idx partial index.
type FriendshipRepository struct {
	db DB
}

func NewFriendshipRepository(db DB) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

func (r *FriendshipRepository) Create(ctx context.Context, requesterID, recipientID uuid.UUID) (*models.Friendship, error) {
	friendship := &models.Friendship{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO friendships (requester_id, recipient_id, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING `+friendshipColumns,
		requesterID, recipientID,
	).Scan(friendshipScanTargets(friendship)...)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateKey
	}
	if missing := missingUser(err, requesterID, recipientID); missing != nil {
		return nil, missing
	}
	if err != nil {
		return nil, fmt.Errorf("creating friendship: %w", err)
	}
	return friendship, nil
}

func (r *FriendshipRepository) FindByPair(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error) {
	friendship := &models.Friendship{}
	err := r.db.QueryRow(ctx,
		`SELECT `+friendshipColumns+` FROM friendships
		 WHERE (requester_id = $1 AND recipient_id = $2)
		    OR (requester_id = $2 AND recipient_id = $1)
		 ORDER BY (status <> 'rejected') DESC, created_at DESC
		 LIMIT 1`,
		a, b,
	).Scan(friendshipScanTargets(friendship)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding friendship by pair: %w", err)
	}
	return friendship, nil
}

func (r *FriendshipRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	friendship := &models.Friendship{}
	err := r.db.QueryRow(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE id = $1`,
		id,
	).Scan(friendshipScanTargets(friendship)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding friendship: %w", err)
	}
	return friendship, nil
}

func (r *FriendshipRepository) SetStatus(ctx context.Context, id uuid.UUID, from, to models.FriendshipStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE friendships SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("updating friendship status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *FriendshipRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting friendship: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *FriendshipRepository) ListAcceptedForUser(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error) {
	return r.list(ctx,
		`SELECT `+friendshipColumns+` FROM friendships
		 WHERE (requester_id = $1 OR recipient_id = $1) AND status = 'accepted'
		 ORDER BY created_at`,
		userID,
	)
}

func (r *FriendshipRepository) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error) {
	return r.list(ctx,
		`SELECT `+friendshipColumns+` FROM friendships
		 WHERE (requester_id = $1 OR recipient_id = $1) AND status = 'pending'
		 ORDER BY created_at DESC`,
		userID,
	)
}

func (r *FriendshipRepository) list(ctx context.Context, query string, userID uuid.UUID) ([]models.Friendship, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing friendships: %w", err)
	}
	defer rows.Close()

	friendships := []models.Friendship{}
	for rows.Next() {
		var f models.Friendship
		if err := rows.Scan(friendshipScanTargets(&f)...); err != nil {
			return nil, fmt.Errorf("scanning friendship: %w", err)
		}
		friendships = append(friendships, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friendships: %w", err)
	}
	return friendships, nil
}

func friendshipScanTargets(f *models.Friendship) []any {
	return []any{&f.ID, &f.RequesterID, &f.RecipientID, &f.Status, &f.CreatedAt, &f.UpdatedAt}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// missingUser maps a foreign key violation on insert to the user that is gone.
func missingUser(err error, requesterID, recipientID uuid.UUID) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != foreignKeyViolationCode {
		return nil
	}
	if pgErr.ConstraintName == requesterForeignKey {
		return &MissingUserError{UserID: requesterID}
	}
	return &MissingUserError{UserID: recipientID}
}
