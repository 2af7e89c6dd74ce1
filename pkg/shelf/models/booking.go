package models

import (
	"time"

	"gorm.io/gorm"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusDraft     BookingStatus = "DRAFT"
	BookingStatusReserved  BookingStatus = "RESERVED"
	BookingStatusOngoing   BookingStatus = "ONGOING"
	BookingStatusOverdue   BookingStatus = "OVERDUE"
	BookingStatusComplete  BookingStatus = "COMPLETE"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking reserves a set of assets for a period of time
type Booking struct {
	ID             string         `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID string         `gorm:"not null;index;type:varchar(36)" json:"organization_id"`
	CreatorID      string         `gorm:"not null;type:varchar(36)" json:"creator_id"`
	Name           string         `gorm:"not null" json:"name"`
	Status         BookingStatus  `gorm:"type:varchar(20);default:'DRAFT'" json:"status"`
	From           *time.Time     `gorm:"column:from_date" json:"from"`
	To             *time.Time     `gorm:"column:to_date" json:"to"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	newID(&b.ID)
	return nil
}

// Cancellable reports whether the booking can still be cancelled.
func (b *Booking) Cancellable() bool {
	return b.Status == BookingStatusReserved || b.Status == BookingStatusOngoing || b.Status == BookingStatusOverdue
}
