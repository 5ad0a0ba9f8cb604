package store

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"labstation-backend/internal/clock"
	"labstation-backend/internal/model"
)

// Store defines the interface for all reservation, waitlist, and
// notification operations.
type Store interface {
	// Stations
	ListStationStates(ctx context.Context) ([]StationState, error)
	GetStationState(ctx context.Context, id int64) (*StationState, error)

	// Reservations
	CreateReservation(ctx context.Context, actor Actor, stationID int64, start, end time.Time, notes string) (*model.Reservation, error)
	ListReservations(ctx context.Context, actor Actor, filter ReservationFilter) ([]model.Reservation, error)
	ReleaseReservation(ctx context.Context, actor Actor, id int64) (*model.Reservation, []model.Notification, error)
	CancelReservation(ctx context.Context, actor Actor, id int64) (*model.Reservation, error)
	SweepStatuses(ctx context.Context) (int, error)

	// Waitlist
	JoinQueue(ctx context.Context, actor Actor, preferredStationID *int64) (*model.QueueEntry, error)
	LeaveQueue(ctx context.Context, actor Actor) error
	ListQueue(ctx context.Context, actor Actor) (*QueueState, error)

	// Notifications
	ListNotifications(ctx context.Context, actor Actor) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, actor Actor, id int64) (*model.Notification, error)

	// Push subscriptions
	UpsertPushSubscription(ctx context.Context, actor Actor, sub model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	GetNotification(ctx context.Context, id int64) (*model.Notification, error)

	DB() *gorm.DB
}

// keyedMutex serializes operations per key. Mutexes are created on first
// use and retained; the key space here is the fixed station and user sets,
// so the map stays small.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (k *keyedMutex) lock(key int64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// gormStore implements the Store interface using GORM. Check-then-write
// sequences are serialized in process: per station and per user for the
// reservation timeline, globally for the waitlist. The optional database
// exclusion constraint (db.applyRangeGuardDDL) backs the same invariant
// for multi-instance deployments.
type gormStore struct {
	db    *gorm.DB
	clock clock.Clock

	stationMu keyedMutex
	userMu    keyedMutex
	queueMu   sync.Mutex
}

// NewGormStore creates a new GORM-backed store driven by the given clock.
func NewGormStore(db *gorm.DB, clk clock.Clock) Store {
	return &gormStore{db: db, clock: clk}
}

// DB exposes the underlying handle for migrations and ancillary queries.
func (s *gormStore) DB() *gorm.DB { return s.db }

// reconcile applies Reconciled(now) to each loaded reservation and
// persists any status that moved, so a stale stored status is never
// surfaced to a caller. Reads that touch reservations may therefore
// write; output is deterministic for a fixed now.
func (s *gormStore) reconcile(ctx context.Context, tx *gorm.DB, rs []model.Reservation, now time.Time) (int, error) {
	changed := 0
	for i := range rs {
		next := rs[i].Reconciled(now)
		if next == rs[i].Status {
			continue
		}
		if err := tx.WithContext(ctx).Model(&model.Reservation{}).
			Where("id = ?", rs[i].ID).
			Update("status", next).Error; err != nil {
			return changed, err
		}
		rs[i].Status = next
		changed++
	}
	return changed, nil
}
