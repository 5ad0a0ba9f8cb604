package store

import (
	"errors"
	"fmt"
	"time"

	"labstation-backend/internal/model"
)

// ErrKind classifies a domain error. Every kind is recoverable by the
// caller; infrastructure failures are returned as plain wrapped errors and
// never carry a kind.
type ErrKind int

const (
	KindValidation ErrKind = iota + 1
	KindNotFound
	KindConflict
	KindAuthorization
	KindState
)

// Stable machine-readable codes, one per distinct failure.
const (
	CodeInvalidRange        = "invalid_range"
	CodePastBooking         = "past_booking"
	CodeStationNotFound     = "station_not_found"
	CodeStationUnavailable  = "station_unavailable"
	CodeConflict            = "conflicting_reservation"
	CodeUserAlreadyBooked   = "user_already_booked"
	CodeReservationMissing  = "reservation_not_found"
	CodeNotOwner            = "not_owner"
	CodeInvalidState        = "invalid_state"
	CodeAlreadyFinalized    = "already_finalized"
	CodeAlreadyQueued       = "already_queued"
	CodeNotQueued           = "not_queued"
	CodeNotificationMissing = "notification_not_found"
)

// Interval is a half-open [StartTime, EndTime) time range, reported with
// conflict errors so callers can render the blocking slot.
type Interval struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Error is a domain error with enough structure for the transport layer to
// pick a status code and render an actionable message.
type Error struct {
	Kind     ErrKind
	Code     string
	Message  string
	Conflict *Interval
}

func (e *Error) Error() string {
	if e.Conflict != nil {
		return fmt.Sprintf("%s: %s (conflicts with [%s, %s))", e.Code, e.Message,
			e.Conflict.StartTime.Format(time.RFC3339), e.Conflict.EndTime.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsError unwraps err into a domain *Error, if it is one.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code string) bool {
	se, ok := AsError(err)
	return ok && se.Code == code
}

func errInvalidRange() error {
	return &Error{Kind: KindValidation, Code: CodeInvalidRange, Message: "end time must be after start time"}
}

func errPastBooking() error {
	return &Error{Kind: KindValidation, Code: CodePastBooking, Message: "cannot book in the past"}
}

func errStationNotFound(id int64) error {
	return &Error{Kind: KindNotFound, Code: CodeStationNotFound, Message: fmt.Sprintf("station %d not found", id)}
}

func errStationUnavailable(id int64) error {
	return &Error{Kind: KindValidation, Code: CodeStationUnavailable, Message: fmt.Sprintf("station %d is under maintenance", id)}
}

func errConflict(blocking *model.Reservation) error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeConflict,
		Message: "time slot conflicts with an existing reservation",
		Conflict: &Interval{
			StartTime: blocking.StartTime,
			EndTime:   blocking.EndTime,
		},
	}
}

func errUserAlreadyBooked() error {
	return &Error{Kind: KindConflict, Code: CodeUserAlreadyBooked, Message: "you already have an active or pending reservation"}
}

func errReservationNotFound(id int64) error {
	return &Error{Kind: KindNotFound, Code: CodeReservationMissing, Message: fmt.Sprintf("reservation %d not found", id)}
}

func errNotOwner() error {
	return &Error{Kind: KindAuthorization, Code: CodeNotOwner, Message: "not authorized to modify this reservation"}
}

func errInvalidState(status model.ReservationStatus) error {
	return &Error{Kind: KindState, Code: CodeInvalidState, Message: fmt.Sprintf("only pending or active reservations can be released (status is %s)", status)}
}

func errAlreadyFinalized(status model.ReservationStatus) error {
	return &Error{Kind: KindState, Code: CodeAlreadyFinalized, Message: fmt.Sprintf("reservation is already %s", status)}
}

func errAlreadyQueued() error {
	return &Error{Kind: KindConflict, Code: CodeAlreadyQueued, Message: "you are already in the queue"}
}

func errNotQueued() error {
	return &Error{Kind: KindState, Code: CodeNotQueued, Message: "you are not in the queue"}
}

func errNotificationNotFound(id int64) error {
	return &Error{Kind: KindNotFound, Code: CodeNotificationMissing, Message: fmt.Sprintf("notification %d not found", id)}
}
