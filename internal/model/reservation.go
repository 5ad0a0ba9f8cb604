package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a time-bound claim on a station. The interval
// [StartTime, EndTime) is half-open; StartTime < EndTime always holds.
type Reservation struct {
	ID        int64             `gorm:"primaryKey" json:"id"`
	UserID    int64             `gorm:"index;not null" json:"userId"`
	StationID int64             `gorm:"index;not null" json:"stationId"`
	StartTime time.Time         `gorm:"index;not null" json:"startTime"`
	EndTime   time.Time         `gorm:"not null" json:"endTime"`
	Status    ReservationStatus `gorm:"size:16;index;not null" json:"status"`
	Notes     string            `gorm:"size:512" json:"notes,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time         `gorm:"not null" json:"updatedAt"`

	// Associations
	Station *Station `gorm:"constraint:OnDelete:CASCADE" json:"station,omitempty"`
	User    *User    `json:"user,omitempty"`
}

// IsTerminal reports whether the reservation can no longer change state.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationCompleted || s == ReservationCancelled
}

// Reconciled returns the status this reservation should have at the given
// instant. It is a pure function of the stored status and the clock:
//
//	pending with start <= now < end  -> active
//	pending|active with end <= now   -> completed
//
// Terminal statuses are never revisited. Applying it twice with the same
// now yields the same result as applying it once.
func (r *Reservation) Reconciled(now time.Time) ReservationStatus {
	if r.Status.IsTerminal() {
		return r.Status
	}
	if !r.EndTime.After(now) {
		return ReservationCompleted
	}
	if r.Status == ReservationPending && !r.StartTime.After(now) {
		return ReservationActive
	}
	return r.Status
}

// Contains reports whether the instant falls inside [StartTime, EndTime).
func (r *Reservation) Contains(now time.Time) bool {
	return !r.StartTime.After(now) && r.EndTime.After(now)
}

// Overlaps reports whether [start, end) intersects this reservation's
// interval, using the strict half-open test.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}
