package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"labstation-backend/internal/model"
)

var openStatuses = []model.ReservationStatus{model.ReservationPending, model.ReservationActive}

// CreateReservation validates and inserts a new reservation. Validations
// run in a fixed order, each a distinct failure: interval shape, past
// boundary, station existence, maintenance state, timeline conflict, then
// the caller's own open reservation. The check-then-insert runs under the
// station and user locks inside one transaction; two concurrent calls for
// overlapping windows on the same station cannot both succeed.
func (s *gormStore) CreateReservation(ctx context.Context, actor Actor, stationID int64, start, end time.Time, notes string) (*model.Reservation, error) {
	now := s.clock.Now()

	if !start.Before(end) {
		return nil, errInvalidRange()
	}
	// The boundary is now at validation time: a request that became past
	// in flight is still rejected.
	if start.Before(now) {
		return nil, errPastBooking()
	}

	unlockStation := s.stationMu.lock(stationID)
	defer unlockStation()
	unlockUser := s.userMu.lock(actor.UserID)
	defer unlockUser()

	reservation := &model.Reservation{
		UserID:    actor.UserID,
		StationID: stationID,
		StartTime: start,
		EndTime:   end,
		Notes:     notes,
	}
	if start.After(now) {
		reservation.Status = model.ReservationPending
	} else {
		reservation.Status = model.ReservationActive
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var station model.Station
		if err := tx.First(&station, stationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errStationNotFound(stationID)
			}
			return err
		}
		if station.Status == model.StationMaintenance {
			return errStationUnavailable(stationID)
		}

		// Strict half-open overlap: existing.start < end AND existing.end > start.
		// A stale pending/active row whose end_time has already passed can
		// never satisfy end > start >= now, so reconciliation cannot change
		// the outcome here.
		var blocking model.Reservation
		err := tx.Where("station_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
			stationID, openStatuses, end, start).
			Order("start_time").
			First(&blocking).Error
		if err == nil {
			return errConflict(&blocking)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// One open reservation per user. Rows already over by wall clock
		// (stale active/pending) do not count.
		var openCount int64
		if err := tx.Model(&model.Reservation{}).
			Where("user_id = ? AND status IN ? AND end_time > ?", actor.UserID, openStatuses, now).
			Count(&openCount).Error; err != nil {
			return err
		}
		if openCount > 0 {
			return errUserAlreadyBooked()
		}

		return tx.Create(reservation).Error
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// ListReservations returns reservations visible to the actor, reconciled
// against the clock before they are surfaced. Status and upcoming filters
// apply to the reconciled status.
func (s *gormStore) ListReservations(ctx context.Context, actor Actor, filter ReservationFilter) ([]model.Reservation, error) {
	now := s.clock.Now()

	q := s.db.WithContext(ctx).Preload("Station").Order("start_time DESC")
	if !filter.All || !actor.IsAdmin() {
		q = q.Where("user_id = ?", actor.UserID)
	}
	if filter.StationID != 0 {
		q = q.Where("station_id = ?", filter.StationID)
	}

	var reservations []model.Reservation
	if err := q.Find(&reservations).Error; err != nil {
		return nil, err
	}
	if _, err := s.reconcile(ctx, s.db, reservations, now); err != nil {
		return nil, err
	}

	if filter.Status == "" && !filter.Upcoming {
		return reservations, nil
	}
	filtered := make([]model.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Upcoming && r.Status.IsTerminal() {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

// releaseNotifyLimit caps the fan-out of a release announcement to the
// front of the waitlist.
const releaseNotifyLimit = 3

// ReleaseReservation completes a pending or active reservation ahead of
// its end time and notifies the first waiting queue entries. The entries
// themselves are untouched; promotion to ready/called is a separate,
// externally driven step. Notification goes to the front of the global
// queue regardless of preferred station.
func (s *gormStore) ReleaseReservation(ctx context.Context, actor Actor, id int64) (*model.Reservation, []model.Notification, error) {
	stationID, err := s.stationForReservation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	unlock := s.stationMu.lock(stationID)
	defer unlock()

	now := s.clock.Now()
	var reservation model.Reservation
	var created []model.Notification

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reservation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errReservationNotFound(id)
			}
			return err
		}
		if reservation.UserID != actor.UserID && !actor.IsAdmin() {
			return errNotOwner()
		}

		// Surface the reconciled status: a reservation that already ran
		// out by wall clock cannot be released again.
		rs := []model.Reservation{reservation}
		if _, err := s.reconcile(ctx, tx, rs, now); err != nil {
			return err
		}
		reservation = rs[0]
		if reservation.Status != model.ReservationPending && reservation.Status != model.ReservationActive {
			return errInvalidState(reservation.Status)
		}

		reservation.Status = model.ReservationCompleted
		if err := tx.Model(&model.Reservation{}).
			Where("id = ?", reservation.ID).
			Update("status", model.ReservationCompleted).Error; err != nil {
			return err
		}

		var entries []model.QueueEntry
		if err := tx.Where("status = ?", model.QueueWaiting).
			Order("position").
			Limit(releaseNotifyLimit).
			Find(&entries).Error; err != nil {
			return err
		}
		for _, entry := range entries {
			n := model.Notification{
				UserID:  entry.UserID,
				Title:   "Station Available!",
				Message: "A station slot has been released. Book now before it's taken!",
				Type:    model.NotifySuccess,
			}
			if err := tx.Create(&n).Error; err != nil {
				return err
			}
			created = append(created, n)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &reservation, created, nil
}

// CancelReservation cancels a reservation that has not finished yet.
// Cancellation never notifies the waitlist: a slot that was never entered
// frees no capacity worth announcing.
func (s *gormStore) CancelReservation(ctx context.Context, actor Actor, id int64) (*model.Reservation, error) {
	stationID, err := s.stationForReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.stationMu.lock(stationID)
	defer unlock()

	now := s.clock.Now()
	var reservation model.Reservation

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reservation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errReservationNotFound(id)
			}
			return err
		}
		if reservation.UserID != actor.UserID && !actor.IsAdmin() {
			return errNotOwner()
		}

		rs := []model.Reservation{reservation}
		if _, err := s.reconcile(ctx, tx, rs, now); err != nil {
			return err
		}
		reservation = rs[0]
		if reservation.Status.IsTerminal() {
			return errAlreadyFinalized(reservation.Status)
		}

		reservation.Status = model.ReservationCancelled
		return tx.Model(&model.Reservation{}).
			Where("id = ?", reservation.ID).
			Update("status", model.ReservationCancelled).Error
	})
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// SweepStatuses reconciles every non-terminal reservation and reports how
// many rows moved. Safe to call at any time; idempotent for a fixed now.
func (s *gormStore) SweepStatuses(ctx context.Context) (int, error) {
	now := s.clock.Now()
	var reservations []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("status IN ?", openStatuses).
		Find(&reservations).Error; err != nil {
		return 0, err
	}
	return s.reconcile(ctx, s.db, reservations, now)
}

func (s *gormStore) stationForReservation(ctx context.Context, id int64) (int64, error) {
	var reservation model.Reservation
	if err := s.db.WithContext(ctx).Select("id", "station_id").First(&reservation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errReservationNotFound(id)
		}
		return 0, err
	}
	return reservation.StationID, nil
}
