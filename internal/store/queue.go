package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"labstation-backend/internal/model"
)

// JoinQueue appends the actor to the back of the waitlist. A preferred
// station, if given, must exist but is informational only; it never
// affects ordering or promotion. Join, leave, and renumbering share one
// lock so positions stay dense and unique.
func (s *gormStore) JoinQueue(ctx context.Context, actor Actor, preferredStationID *int64) (*model.QueueEntry, error) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	now := s.clock.Now()
	entry := &model.QueueEntry{
		UserID:    actor.UserID,
		StationID: preferredStationID,
		Status:    model.QueueWaiting,
		JoinedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.QueueEntry{}).
			Where("user_id = ? AND status = ?", actor.UserID, model.QueueWaiting).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errAlreadyQueued()
		}

		if preferredStationID != nil {
			var station model.Station
			if err := tx.First(&station, *preferredStationID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errStationNotFound(*preferredStationID)
				}
				return err
			}
		}

		var maxPosition int
		if err := tx.Model(&model.QueueEntry{}).
			Where("status = ?", model.QueueWaiting).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}
		entry.Position = maxPosition + 1

		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// LeaveQueue removes the actor's waiting entry and renumbers the
// remaining waiting entries to 1..N in one transaction, preserving their
// relative order. Renumbering is a single re-sequencing pass, never
// per-entry independent updates.
func (s *gormStore) LeaveQueue(ctx context.Context, actor Actor) error {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.QueueEntry
		err := tx.Where("user_id = ? AND status = ?", actor.UserID, model.QueueWaiting).
			First(&entry).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotQueued()
			}
			return err
		}

		if err := tx.Delete(&model.QueueEntry{}, entry.ID).Error; err != nil {
			return err
		}
		return renumberWaiting(tx)
	})
}

// renumberWaiting rewrites positions of all waiting entries to the dense
// sequence 1..N ordered by their current positions.
func renumberWaiting(tx *gorm.DB) error {
	var remaining []model.QueueEntry
	if err := tx.Where("status = ?", model.QueueWaiting).
		Order("position").
		Find(&remaining).Error; err != nil {
		return err
	}
	for i, e := range remaining {
		if e.Position == i+1 {
			continue
		}
		if err := tx.Model(&model.QueueEntry{}).
			Where("id = ?", e.ID).
			Update("position", i+1).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListQueue returns the waiting entries in position order, with the
// caller's own position if queued.
func (s *gormStore) ListQueue(ctx context.Context, actor Actor) (*QueueState, error) {
	var entries []model.QueueEntry
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Station").
		Where("status = ?", model.QueueWaiting).
		Order("position").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	state := &QueueState{Entries: entries}
	for _, e := range entries {
		if e.UserID == actor.UserID {
			state.CallerPosition = &CallerPosition{
				Position:     e.Position,
				TotalInQueue: len(entries),
				Status:       e.Status,
				JoinedAt:     e.JoinedAt,
			}
			break
		}
	}
	return state, nil
}
