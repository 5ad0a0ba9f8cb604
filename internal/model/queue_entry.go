package model

import "time"

// QueueStatus is the lifecycle state of a waitlist entry.
type QueueStatus string

const (
	QueueWaiting QueueStatus = "waiting"
	QueueReady   QueueStatus = "ready"
	QueueCalled  QueueStatus = "called"
	QueueExpired QueueStatus = "expired"
)

// QueueEntry is one user's place in the global FIFO waitlist. Positions
// among waiting entries are always the dense sequence 1..N in join order.
// StationID records a preferred station but never affects ordering or
// promotion; release notifications broadcast to the front of the queue.
type QueueEntry struct {
	ID        int64       `gorm:"primaryKey" json:"id"`
	UserID    int64       `gorm:"index;not null" json:"userId"`
	StationID *int64      `gorm:"index" json:"stationId,omitempty"`
	Position  int         `gorm:"not null" json:"position"`
	Status    QueueStatus `gorm:"size:16;index;not null" json:"status"`
	JoinedAt  time.Time   `gorm:"not null" json:"joinedAt"`
	CalledAt  *time.Time  `json:"calledAt,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
	CreatedAt time.Time   `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time   `gorm:"not null" json:"updatedAt"`

	// Associations
	User    *User    `json:"user,omitempty"`
	Station *Station `json:"preferredStation,omitempty"`
}
