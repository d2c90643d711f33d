package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/HammerMeetNail/socialgraph/internal/logging"
)

// NotificationDispatcher runs notification sends on a bounded worker pool.
// When every worker is busy the task is dropped rather than queued.
type NotificationDispatcher struct {
	pool   *ants.Pool
	logger *logging.Logger
}

func NewNotificationDispatcher(workers int, logger *logging.Logger) (*NotificationDispatcher, error) {
	if logger == nil {
		logger = logging.Default
	}
	if workers <= 0 {
		workers = 1
	}

	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			logger.Error("notification task panic", map[string]interface{}{
				"panic": fmt.Sprint(p),
				"stack": string(debug.Stack()),
			})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification pool: %w", err)
	}

	return &NotificationDispatcher{pool: pool, logger: logger}, nil
}

// Go submits fn. It matches FriendshipService.SetAsync.
func (d *NotificationDispatcher) Go(fn func()) {
	if err := d.pool.Submit(fn); err != nil {
		d.logger.Warn("dropping notification task", map[string]interface{}{"error": err})
	}
}

// Close waits up to timeout for running tasks, then stops the pool.
func (d *NotificationDispatcher) Close(timeout time.Duration) error {
	return d.pool.ReleaseTimeout(timeout)
}

var ErrRecipientHasNoEmail = errors.New("recipient has no email address")

// EmailNotifier is the NotificationSink that emails the recipient of a new
// friend request. Provider calls go through a circuit breaker so a failing
// mail backend is not hammered by every request.
type EmailNotifier struct {
	contacts ContactDirectory
	provider EmailProvider
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	baseURL  string
	logger   *logging.Logger
}

func NewEmailNotifier(contacts ContactDirectory, provider EmailProvider, baseURL string, logger *logging.Logger) *EmailNotifier {
	if logger == nil {
		logger = logging.Default
	}
	n := &EmailNotifier{
		contacts: contacts,
		provider: provider,
		baseURL:  baseURL,
		logger:   logger,
	}
	n.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "email-notifier",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", map[string]interface{}{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})
	return n
}

// SetRateLimit caps provider sends per second. A non-positive rate removes
// the cap.
func (n *EmailNotifier) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		n.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	n.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (n *EmailNotifier) NotifyFriendRequest(ctx context.Context, recipientID, requesterID uuid.UUID) error {
	recipient, err := n.contacts.GetContact(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("loading recipient contact: %w", err)
	}
	if recipient.Email == "" {
		return ErrRecipientHasNoEmail
	}
	requester, err := n.contacts.GetContact(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("loading requester contact: %w", err)
	}

	html, text, err := renderFriendRequestEmail(n.baseURL, recipient.DisplayName, requester.DisplayName)
	if err != nil {
		return err
	}
	email := &Email{
		To:      recipient.Email,
		Subject: "New friend request",
		HTML:    html,
		Text:    text,
	}

	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for send slot: %w", err)
		}
	}
	if _, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.provider.Send(ctx, email)
	}); err != nil {
		return fmt.Errorf("sending friend request email: %w", err)
	}
	return nil
}
