package services

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

type fakeDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return fakeCommandTag{}, nil
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return &fakeRows{}, nil
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return fakeRow{err: fmt.Errorf("unexpected QueryRow: %s", sql)}
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

type fakeCommandTag struct {
	rowsAffected int64
}

func (t fakeCommandTag) RowsAffected() int64 { return t.rowsAffected }

type fakeRow struct {
	values []any
	err    error
}

func rowFromValues(values ...any) Row {
	return fakeRow{values: values}
}

func rowWithError(err error) Row {
	return fakeRow{err: err}
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignValues(dest, r.values)
}

type fakeRows struct {
	rows   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.rows) {
		return fmt.Errorf("scan called without a current row")
	}
	return assignValues(dest, r.rows[r.idx-1])
}

func (r *fakeRows) Close()     { r.closed = true }
func (r *fakeRows) Err() error { return r.err }

func assignValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		elem := target.Elem()
		if values[i] == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		switch {
		case v.Type().AssignableTo(elem.Type()):
			elem.Set(v)
		case v.Type().ConvertibleTo(elem.Type()):
			elem.Set(v.Convert(elem.Type()))
		default:
			return fmt.Errorf("scan: cannot assign %T to %s", values[i], elem.Type())
		}
	}
	return nil
}

func friendshipRow(f models.Friendship) []any {
	return []any{f.ID, f.RequesterID, f.RecipientID, string(f.Status), f.CreatedAt, f.UpdatedAt}
}

// memoryStore is an in-memory FriendshipStore that enforces the
// one-active-record-per-pair rule the same way the Postgres index does.
type memoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]models.Friendship
	clock   time.Time

	createErr    error
	deleteErr    error
	findErr      error
	setStatusErr error
	listErr      error

	// beforeSetStatus runs without the lock held, right before SetStatus.
	beforeSetStatus func(id uuid.UUID)

	createCalls int
	deleteCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records: make(map[uuid.UUID]models.Friendship),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func samePair(f models.Friendship, a, b uuid.UUID) bool {
	return (f.RequesterID == a && f.RecipientID == b) || (f.RequesterID == b && f.RecipientID == a)
}

// seed inserts a record directly, bypassing the uniqueness check.
func (m *memoryStore) seed(requesterID, recipientID uuid.UUID, status models.FriendshipStatus) models.Friendship {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	f := models.Friendship{
		ID:          uuid.New(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.records[f.ID] = f
	return f
}

func (m *memoryStore) Create(ctx context.Context, requesterID, recipientID uuid.UUID) (*models.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, f := range m.records {
		if samePair(f, requesterID, recipientID) && f.IsActive() {
			return nil, ErrDuplicateKey
		}
	}
	now := m.tick()
	f := models.Friendship{
		ID:          uuid.New(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      models.FriendshipStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.records[f.ID] = f
	return &f, nil
}

func (m *memoryStore) FindByPair(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var best *models.Friendship
	for _, f := range m.records {
		if !samePair(f, a, b) {
			continue
		}
		f := f
		switch {
		case best == nil:
			best = &f
		case f.IsActive() && !best.IsActive():
			best = &f
		case f.IsActive() == best.IsActive() && f.CreatedAt.After(best.CreatedAt):
			best = &f
		}
	}
	if best == nil {
		return nil, ErrRecordNotFound
	}
	return best, nil
}

func (m *memoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	f, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &f, nil
}

func (m *memoryStore) SetStatus(ctx context.Context, id uuid.UUID, from, to models.FriendshipStatus) (bool, error) {
	if m.beforeSetStatus != nil {
		m.beforeSetStatus(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setStatusErr != nil {
		return false, m.setStatusErr
	}
	f, ok := m.records[id]
	if !ok || f.Status != from {
		return false, nil
	}
	f.Status = to
	f.UpdatedAt = m.tick()
	m.records[id] = f
	return true, nil
}

// forceStatus changes a record without going through SetStatus.
func (m *memoryStore) forceStatus(id uuid.UUID, status models.FriendshipStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.records[id]
	f.Status = status
	m.records[id] = f
}

func (m *memoryStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	if _, ok := m.records[id]; !ok {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

func (m *memoryStore) listByStatus(userID uuid.UUID, status models.FriendshipStatus) ([]models.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Friendship
	for _, f := range m.records {
		if f.Status == status && f.Involves(userID) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) ListAcceptedForUser(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error) {
	return m.listByStatus(userID, models.FriendshipStatusAccepted)
}

func (m *memoryStore) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error) {
	return m.listByStatus(userID, models.FriendshipStatusPending)
}

// activeFor returns the active records linking a and b.
func (m *memoryStore) activeFor(a, b uuid.UUID) []models.Friendship {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Friendship
	for _, f := range m.records {
		if samePair(f, a, b) && f.IsActive() {
			out = append(out, f)
		}
	}
	return out
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type memoryUsers struct {
	mu    sync.Mutex
	known map[uuid.UUID]bool
	err   error
	calls int
}

func newMemoryUsers(ids ...uuid.UUID) *memoryUsers {
	u := &memoryUsers{known: make(map[uuid.UUID]bool)}
	for _, id := range ids {
		u.known[id] = true
	}
	return u
}

func (u *memoryUsers) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return false, u.err
	}
	return u.known[userID], nil
}

type notifyCall struct {
	recipientID uuid.UUID
	requesterID uuid.UUID
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *recordingNotifier) NotifyFriendRequest(ctx context.Context, recipientID, requesterID uuid.UUID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{recipientID: recipientID, requesterID: requesterID})
	return n.err
}

func (n *recordingNotifier) snapshot() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

type recordingRecorder struct {
	mu            sync.Mutex
	outcomes      map[string]int
	errors        map[string]int
	notifications map[string]int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{
		outcomes:      make(map[string]int),
		errors:        make(map[string]int),
		notifications: make(map[string]int),
	}
}

func (r *recordingRecorder) RecordOutcome(operation string, outcome models.FriendshipOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[operation+"/"+string(outcome)]++
}

func (r *recordingRecorder) RecordError(operation string, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[operation+"/"+kind]++
}

func (r *recordingRecorder) RecordNotification(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[result]++
}

func runInline(fn func()) { fn() }
