package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

// PostgresUserDirectory reads the users table owned by the account service.
type PostgresUserDirectory struct {
	db DB
}

func NewPostgresUserDirectory(db DB) *PostgresUserDirectory {
	return &PostgresUserDirectory{db: db}
}

func (d *PostgresUserDirectory) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := d.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return exists, nil
}

func (d *PostgresUserDirectory) GetContact(ctx context.Context, userID uuid.UUID) (*models.UserContact, error) {
	contact := &models.UserContact{}
	err := d.db.QueryRow(ctx,
		`SELECT id, email, display_name FROM users WHERE id = $1`,
		userID,
	).Scan(&contact.ID, &contact.Email, &contact.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user contact: %w", err)
	}
	return contact, nil
}

// CachedUserDirectory remembers users that were seen to exist for ttl.
// Misses are never cached so a freshly registered user is visible at once.
type CachedUserDirectory struct {
	next  UserDirectory
	known *expirable.LRU[uuid.UUID, struct{}]
}

func NewCachedUserDirectory(next UserDirectory, size int, ttl time.Duration) *CachedUserDirectory {
	if size <= 0 {
		size = 1
	}
	return &CachedUserDirectory{
		next:  next,
		known: expirable.NewLRU[uuid.UUID, struct{}](size, nil, ttl),
	}
}

func (c *CachedUserDirectory) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	if _, ok := c.known.Get(userID); ok {
		return true, nil
	}
	exists, err := c.next.Exists(ctx, userID)
	if err != nil {
		return false, err
	}
	if exists {
		c.known.Add(userID, struct{}{})
	}
	return exists, nil
}

func (c *CachedUserDirectory) Forget(userID uuid.UUID) {
	c.known.Remove(userID)
}
