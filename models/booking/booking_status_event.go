package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status event reasons
const (
	ReasonCreated        = "created"
	ReasonStatusUpdate   = "status_update"
	ReasonPaymentApplied = "payment_applied"
)

// BookingStatusEvent is an audit row written on every booking state change
type BookingStatusEvent struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	BookingID string `gorm:"type:varchar(36);not null;index" json:"bookingId"`

	FromStatus Status          `gorm:"size:20" json:"fromStatus,omitempty"`
	Status     Status          `gorm:"size:20;not null" json:"status"`
	Reason     string          `gorm:"type:varchar(50);not null" json:"reason"`
	TotalPaid  decimal.Decimal `gorm:"type:numeric(20,8)" json:"totalPaid"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName sets the table name for the BookingStatusEvent model
func (BookingStatusEvent) TableName() string {
	return "booking_status_events"
}

// NewStatusEvent snapshots the booking's current state into an event row
func NewStatusEvent(b *Booking, from Status, reason string) BookingStatusEvent {
	return BookingStatusEvent{
		BookingID:  b.ID,
		FromStatus: from,
		Status:     b.Status,
		Reason:     reason,
		TotalPaid:  b.TotalPaid,
		CreatedAt:  b.UpdatedAt,
	}
}
