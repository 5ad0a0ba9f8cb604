package model

import "time"

// StationStatus is the administrative state of a station.
type StationStatus string

const (
	StationAvailable   StationStatus = "available"
	StationOccupied    StationStatus = "occupied"
	StationMaintenance StationStatus = "maintenance"
)

// Station is a bookable lab computer. Stations under maintenance are
// excluded from booking regardless of their reservation timeline.
type Station struct {
	ID          int64         `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Description string        `gorm:"size:512" json:"description"`
	Status      StationStatus `gorm:"size:16;not null;default:available" json:"status"`
	CreatedAt   time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updatedAt"`
}
