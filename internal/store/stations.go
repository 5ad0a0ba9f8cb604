package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"labstation-backend/internal/model"
)

// ListStationStates computes the point-in-time view of every station:
// whether it is occupied, by which reservation, and when it next frees
// up. Touched reservations are reconciled (and corrections persisted)
// before anything is surfaced.
func (s *gormStore) ListStationStates(ctx context.Context) ([]StationState, error) {
	now := s.clock.Now()

	var stations []model.Station
	if err := s.db.WithContext(ctx).Order("name").Find(&stations).Error; err != nil {
		return nil, err
	}

	var open []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("status IN ?", openStatuses).
		Order("start_time").
		Find(&open).Error; err != nil {
		return nil, err
	}
	if _, err := s.reconcile(ctx, s.db, open, now); err != nil {
		return nil, err
	}

	byStation := make(map[int64][]model.Reservation, len(stations))
	for _, r := range open {
		if r.Status.IsTerminal() {
			continue
		}
		byStation[r.StationID] = append(byStation[r.StationID], r)
	}

	states := make([]StationState, 0, len(stations))
	for _, station := range stations {
		states = append(states, stateFor(station, byStation[station.ID], now))
	}
	return states, nil
}

// GetStationState computes the view of a single station.
func (s *gormStore) GetStationState(ctx context.Context, id int64) (*StationState, error) {
	now := s.clock.Now()

	var station model.Station
	if err := s.db.WithContext(ctx).First(&station, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errStationNotFound(id)
		}
		return nil, err
	}

	var open []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("station_id = ? AND status IN ?", id, openStatuses).
		Order("start_time").
		Find(&open).Error; err != nil {
		return nil, err
	}
	if _, err := s.reconcile(ctx, s.db, open, now); err != nil {
		return nil, err
	}
	timeline := open[:0]
	for _, r := range open {
		if !r.Status.IsTerminal() {
			timeline = append(timeline, r)
		}
	}

	state := stateFor(station, timeline, now)
	return &state, nil
}

// stateFor derives the occupancy view from a station and its open
// timeline. The timeline must already be reconciled and free of terminal
// entries. Maintenance counts as occupied regardless of the timeline;
// next availability is the current reservation's end when occupied by
// one, else the earliest future start, else nothing (free indefinitely).
func stateFor(station model.Station, timeline []model.Reservation, now time.Time) StationState {
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].StartTime.Before(timeline[j].StartTime)
	})

	state := StationState{Station: station}

	for i := range timeline {
		if timeline[i].Contains(now) {
			state.CurrentReservation = &timeline[i]
			break
		}
	}

	state.IsOccupied = station.Status == model.StationMaintenance || state.CurrentReservation != nil

	if state.CurrentReservation != nil {
		end := state.CurrentReservation.EndTime
		state.NextAvailableAt = &end
	} else {
		for i := range timeline {
			if timeline[i].StartTime.After(now) {
				start := timeline[i].StartTime
				state.NextAvailableAt = &start
				break
			}
		}
	}
	return state
}
