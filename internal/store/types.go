package store

import (
	"time"

	"labstation-backend/internal/model"
)

// Actor is the authenticated identity performing an operation, as supplied
// by the identity provider. The store trusts it.
type Actor struct {
	UserID int64
	Email  string
	Role   model.Role
}

// IsAdmin reports whether the actor holds the privileged role.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// StationState is the computed point-in-time view of one station.
type StationState struct {
	Station            model.Station      `json:"station"`
	IsOccupied         bool               `json:"isOccupied"`
	CurrentReservation *model.Reservation `json:"currentReservation"`
	NextAvailableAt    *time.Time         `json:"nextAvailableAt"`
}

// ReservationFilter narrows ListReservations. All is only honored for
// admin actors; everyone else sees their own reservations.
type ReservationFilter struct {
	StationID int64
	Status    model.ReservationStatus
	All       bool
	Upcoming  bool
}

// QueueState is the ordered waitlist plus the caller's own position, if
// the caller is queued.
type QueueState struct {
	Entries        []model.QueueEntry `json:"entries"`
	CallerPosition *CallerPosition    `json:"callerPosition"`
}

// CallerPosition describes where the requesting user stands in the queue.
type CallerPosition struct {
	Position     int               `json:"position"`
	TotalInQueue int               `json:"totalInQueue"`
	Status       model.QueueStatus `json:"status"`
	JoinedAt     time.Time         `json:"joinedAt"`
}
