package services

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialgraph/internal/logging"
	"github.com/HammerMeetNail/socialgraph/internal/models"
)

const (
	defaultCreateAttempts = 3
	defaultNotifyTimeout  = 10 * time.Second
)

// CreateResult is what CreateFriendship reports back. Friendship is the
// record now governing the pair, new or pre-existing.
type CreateResult struct {
	Outcome    models.FriendshipOutcome `json:"outcome"`
	Friendship *models.Friendship       `json:"friendship"`
}

// FriendshipService runs the friend request lifecycle on top of a
// FriendshipStore. It holds no per-pair state of its own; the store's
// active-pair uniqueness (or a PairLocker) arbitrates concurrent creates.
type FriendshipService struct {
	store    FriendshipStore
	users    UserDirectory
	notifier NotificationSink
	locker   PairLocker
	recorder OutcomeRecorder
	logger   *logging.Logger

	async          func(fn func())
	notifyTimeout  time.Duration
	createAttempts int
}

func NewFriendshipService(store FriendshipStore, users UserDirectory) *FriendshipService {
	return &FriendshipService{
		store:          store,
		users:          users,
		recorder:       noopRecorder{},
		logger:         logging.Default,
		async:          func(fn func()) { go fn() },
		notifyTimeout:  defaultNotifyTimeout,
		createAttempts: defaultCreateAttempts,
	}
}

func (s *FriendshipService) SetNotifier(n NotificationSink) {
	s.notifier = n
}

func (s *FriendshipService) SetPairLocker(l PairLocker) {
	s.locker = l
}

func (s *FriendshipService) SetRecorder(r OutcomeRecorder) {
	if r == nil {
		r = noopRecorder{}
	}
	s.recorder = r
}

func (s *FriendshipService) SetLogger(l *logging.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetAsync replaces the executor used for notifications. Tests pass a
// synchronous runner; production passes NotificationDispatcher.Go.
func (s *FriendshipService) SetAsync(async func(fn func())) {
	if async == nil {
		async = func(fn func()) { fn() }
	}
	s.async = async
}

func (s *FriendshipService) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		s.notifyTimeout = d
	}
}

func (s *FriendshipService) SetCreateAttempts(n int) {
	if n < 1 {
		n = 1
	}
	s.createAttempts = n
}

func (s *FriendshipService) CreateFriendship(ctx context.Context, requesterID, recipientID uuid.UUID) (result *CreateResult, err error) {
	defer func() {
		var outcome models.FriendshipOutcome
		if result != nil {
			outcome = result.Outcome
		}
		s.observe("create", outcome, err)
	}()

	if requesterID == uuid.Nil || recipientID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if requesterID == recipientID {
		return nil, ErrCannotFriendSelf
	}
	if err := s.ensureUser(ctx, requesterID, ErrRequesterNotFound); err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, recipientID, ErrRecipientNotFound); err != nil {
		return nil, err
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, requesterID, recipientID)
		if err != nil {
			return nil, ErrPairLockUnavailable.wrap(err)
		}
		defer unlock()
	}

	for attempt := 1; attempt <= s.createAttempts; attempt++ {
		existing, err := s.store.FindByPair(ctx, requesterID, recipientID)
		if errors.Is(err, ErrRecordNotFound) {
			existing = nil
		} else if err != nil {
			return nil, ErrFriendshipStore.wrap(err)
		}

		result, retry, err := s.settle(ctx, existing, requesterID, recipientID)
		if err != nil {
			return nil, err
		}
		if retry {
			s.logger.Debug("friend request raced a concurrent write, re-reading pair", map[string]interface{}{
				"requester_id": requesterID.String(),
				"recipient_id": recipientID.String(),
				"attempt":      attempt,
			})
			continue
		}

		if result.Outcome.Changed() {
			s.notify(requesterID, recipientID)
		}
		return result, nil
	}

	return nil, ErrCreateConflict
}

// settle applies the create decision table to the pair's current record.
// retry is set when the insert lost a race and the pair must be re-read.
func (s *FriendshipService) settle(ctx context.Context, existing *models.Friendship, requesterID, recipientID uuid.UUID) (*CreateResult, bool, error) {
	if existing == nil {
		return s.insert(ctx, requesterID, recipientID, models.OutcomeCreated)
	}

	switch existing.Status {
	case models.FriendshipStatusAccepted:
		return &CreateResult{Outcome: models.OutcomeAlreadyFriends, Friendship: existing}, false, nil
	case models.FriendshipStatusPending:
		if existing.RequesterID == requesterID {
			return &CreateResult{Outcome: models.OutcomeAlreadyPendingSent, Friendship: existing}, false, nil
		}
		return &CreateResult{Outcome: models.OutcomeAlreadyPendingReceived, Friendship: existing}, false, nil
	case models.FriendshipStatusRejected:
		// A concurrent caller may have removed it already; either way the
		// slot is free once Delete returns without error.
		if _, err := s.store.Delete(ctx, existing.ID); err != nil {
			return nil, false, ErrRemoveRejectedFailed.wrap(err)
		}
		return s.insert(ctx, requesterID, recipientID, models.OutcomeRecreated)
	default:
		return nil, false, ErrUnknownStatus
	}
}

func (s *FriendshipService) insert(ctx context.Context, requesterID, recipientID uuid.UUID, outcome models.FriendshipOutcome) (*CreateResult, bool, error) {
	friendship, err := s.store.Create(ctx, requesterID, recipientID)
	if errors.Is(err, ErrDuplicateKey) {
		return nil, true, nil
	}
	var missing *MissingUserError
	if errors.As(err, &missing) {
		s.forgetUser(missing.UserID)
		if missing.UserID == requesterID {
			return nil, false, ErrRequesterNotFound.wrap(err)
		}
		return nil, false, ErrRecipientNotFound.wrap(err)
	}
	if err != nil {
		return nil, false, ErrFriendshipStore.wrap(err)
	}
	return &CreateResult{Outcome: outcome, Friendship: friendship}, false, nil
}

func (s *FriendshipService) AcceptFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) (outcome models.FriendshipOutcome, err error) {
	defer func() { s.observe("accept", outcome, err) }()
	return s.respond(ctx, actingUserID, friendshipID, models.FriendshipStatusAccepted)
}

func (s *FriendshipService) RejectFriendship(ctx context.Context, actingUserID, friendshipID uuid.UUID) (outcome models.FriendshipOutcome, err error) {
	defer func() { s.observe("reject", outcome, err) }()
	return s.respond(ctx, actingUserID, friendshipID, models.FriendshipStatusRejected)
}

// respond moves a pending request to target on behalf of its recipient.
func (s *FriendshipService) respond(ctx context.Context, actingUserID, friendshipID uuid.UUID, target models.FriendshipStatus) (models.FriendshipOutcome, error) {
	if friendshipID == uuid.Nil {
		return "", ErrMissingFriendshipID
	}
	if actingUserID == uuid.Nil {
		return "", ErrMissingUserID
	}

	friendship, err := s.find(ctx, friendshipID)
	if err != nil {
		return "", err
	}
	if friendship.RecipientID != actingUserID {
		return "", ErrNotFriendshipRecipient
	}
	if friendship.Status != models.FriendshipStatusPending {
		return settledOutcome(friendship.Status)
	}

	updated, err := s.store.SetStatus(ctx, friendshipID, models.FriendshipStatusPending, target)
	if err != nil {
		return "", ErrFriendshipStore.wrap(err)
	}
	if !updated {
		// Someone else settled it between the read and the update.
		current, err := s.find(ctx, friendshipID)
		if err != nil {
			return "", err
		}
		if current.Status == models.FriendshipStatusPending {
			return "", ErrFriendshipStore.wrap(errors.New("status update did not apply"))
		}
		return settledOutcome(current.Status)
	}

	if target == models.FriendshipStatusAccepted {
		return models.OutcomeAccepted, nil
	}
	return models.OutcomeRejected, nil
}

func settledOutcome(status models.FriendshipStatus) (models.FriendshipOutcome, error) {
	switch status {
	case models.FriendshipStatusAccepted:
		return models.OutcomeAlreadyAccepted, nil
	case models.FriendshipStatusRejected:
		return models.OutcomeAlreadyRejected, nil
	}
	return "", ErrUnknownStatus
}

func (s *FriendshipService) GetFriendship(ctx context.Context, friendshipID uuid.UUID) (friendship *models.Friendship, err error) {
	defer func() { s.observe("get", "", err) }()
	if friendshipID == uuid.Nil {
		return nil, ErrMissingFriendshipID
	}
	return s.find(ctx, friendshipID)
}

func (s *FriendshipService) GetUserFriendships(ctx context.Context, userID uuid.UUID) (friendships []models.Friendship, err error) {
	defer func() { s.observe("list", "", err) }()
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	return s.acceptedFor(ctx, userID)
}

// GetCommonFriendships intersects the accepted friends of both users. The
// mutual IDs come back sorted; Friendships holds, per mutual friend, the
// record linking userID followed by the one linking otherUserID.
func (s *FriendshipService) GetCommonFriendships(ctx context.Context, userID, otherUserID uuid.UUID) (common *models.CommonFriendships, err error) {
	defer func() { s.observe("common", "", err) }()
	if userID == uuid.Nil || otherUserID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if userID == otherUserID {
		return nil, ErrSameUserComparison
	}

	ours, err := s.acceptedFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	theirs, err := s.acceptedFor(ctx, otherUserID)
	if err != nil {
		return nil, err
	}

	byFriend := make(map[uuid.UUID]models.Friendship, len(ours))
	for _, f := range ours {
		if friend := f.Counterpart(userID); friend != otherUserID {
			byFriend[friend] = f
		}
	}

	type link struct {
		ours, theirs models.Friendship
	}
	mutual := make(map[uuid.UUID]link)
	for _, f := range theirs {
		friend := f.Counterpart(otherUserID)
		if friend == userID {
			continue
		}
		if mine, ok := byFriend[friend]; ok {
			if _, seen := mutual[friend]; !seen {
				mutual[friend] = link{ours: mine, theirs: f}
			}
		}
	}

	ids := make([]uuid.UUID, 0, len(mutual))
	for id := range mutual {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	common = &models.CommonFriendships{
		MutualFriendIDs: ids,
		Friendships:     make([]models.Friendship, 0, 2*len(ids)),
	}
	for _, id := range ids {
		l := mutual[id]
		common.Friendships = append(common.Friendships, l.ours, l.theirs)
	}
	return common, nil
}

// ListFriendshipRequests returns the user's pending requests split by
// direction.
func (s *FriendshipService) ListFriendshipRequests(ctx context.Context, userID uuid.UUID) (requests *models.FriendshipRequests, err error) {
	defer func() { s.observe("requests", "", err) }()
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}

	pending, err := s.store.ListPendingForUser(ctx, userID)
	if err != nil {
		return nil, ErrFriendshipStore.wrap(err)
	}

	requests = &models.FriendshipRequests{
		Incoming: []models.Friendship{},
		Outgoing: []models.Friendship{},
	}
	for _, f := range pending {
		switch {
		case f.RecipientID == userID:
			requests.Incoming = append(requests.Incoming, f)
		case f.RequesterID == userID:
			requests.Outgoing = append(requests.Outgoing, f)
		}
	}
	return requests, nil
}

func (s *FriendshipService) DeleteFriendshipByID(ctx context.Context, friendshipID uuid.UUID) (err error) {
	defer func() { s.observe("delete", "", err) }()
	if friendshipID == uuid.Nil {
		return ErrMissingFriendshipID
	}
	return s.remove(ctx, friendshipID)
}

func (s *FriendshipService) DeleteFriendship(ctx context.Context, userID, friendID uuid.UUID) (err error) {
	defer func() { s.observe("delete_pair", "", err) }()
	if userID == uuid.Nil || friendID == uuid.Nil {
		return ErrMissingUserID
	}
	if userID == friendID {
		return ErrSelfFriendship
	}

	friendship, err := s.store.FindByPair(ctx, userID, friendID)
	if errors.Is(err, ErrRecordNotFound) {
		return ErrFriendshipNotFound
	}
	if err != nil {
		return ErrFriendshipStore.wrap(err)
	}
	return s.remove(ctx, friendship.ID)
}

func (s *FriendshipService) remove(ctx context.Context, friendshipID uuid.UUID) error {
	deleted, err := s.store.Delete(ctx, friendshipID)
	if err != nil {
		return ErrFriendshipStore.wrap(err)
	}
	if !deleted {
		return ErrFriendshipNotFound
	}
	return nil
}

func (s *FriendshipService) find(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error) {
	friendship, err := s.store.FindByID(ctx, friendshipID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrFriendshipNotFound
	}
	if err != nil {
		return nil, ErrFriendshipStore.wrap(err)
	}
	return friendship, nil
}

func (s *FriendshipService) acceptedFor(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error) {
	friendships, err := s.store.ListAcceptedForUser(ctx, userID)
	if err != nil {
		return nil, ErrFriendshipStore.wrap(err)
	}
	if friendships == nil {
		friendships = []models.Friendship{}
	}
	return friendships, nil
}

func (s *FriendshipService) ensureUser(ctx context.Context, userID uuid.UUID, missing *FriendshipError) error {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return ErrUserDirectory.wrap(err)
	}
	if !exists {
		return missing
	}
	return nil
}

// forgetUser drops a cached existence answer once the store proves it stale.
func (s *FriendshipService) forgetUser(userID uuid.UUID) {
	if f, ok := s.users.(interface{ Forget(uuid.UUID) }); ok {
		f.Forget(userID)
	}
}

// notify hands the friend request to the sink off the request path. The
// caller's context is not reused since it ends with the request.
func (s *FriendshipService) notify(requesterID, recipientID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyFriendRequest(ctx, recipientID, requesterID); err != nil {
			s.recorder.RecordNotification("failed")
			s.logger.Warn("friend request notification failed", map[string]interface{}{
				"requester_id": requesterID.String(),
				"recipient_id": recipientID.String(),
				"error":        err,
			})
			return
		}
		s.recorder.RecordNotification("sent")
	})
}

func (s *FriendshipService) observe(operation string, outcome models.FriendshipOutcome, err error) {
	if err == nil {
		if outcome != "" {
			s.recorder.RecordOutcome(operation, outcome)
		}
		return
	}

	kind := KindOf(err)
	s.recorder.RecordError(operation, string(kind))
	if kind == KindDatabase || kind == KindServer {
		s.logger.Error("friendship operation failed", map[string]interface{}{
			"operation": operation,
			"kind":      string(kind),
			"error":     err,
		})
	}
}

type noopRecorder struct{}

func (noopRecorder) RecordOutcome(string, models.FriendshipOutcome) {}
func (noopRecorder) RecordError(string, string)                     {}
func (noopRecorder) RecordNotification(string)                      {}
