package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// SecurityDepositRate is the share of the monthly rent held as a deposit.
var SecurityDepositRate = decimal.NewFromFloat(0.5)

// Booking represents a reservation of a property for a tenant over a date range
type Booking struct {
	ID            string `gorm:"type:varchar(36);primaryKey" json:"id"`
	PropertyID    string `gorm:"type:varchar(255);not null;index" json:"propertyId"`
	PropertyTitle string `gorm:"type:varchar(255)" json:"propertyTitle,omitempty"`

	TenantID     string `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	TenantName   string `gorm:"type:varchar(255)" json:"tenantName,omitempty"`
	LandlordID   string `gorm:"type:varchar(255);not null;index" json:"landlordId"`
	LandlordName string `gorm:"type:varchar(255)" json:"landlordName,omitempty"`

	// [CheckIn, CheckOut) half-open interval
	CheckIn  time.Time `gorm:"not null" json:"checkIn"`
	CheckOut time.Time `gorm:"not null" json:"checkOut"`

	Status          Status          `gorm:"size:20;not null;default:pending;index" json:"status"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount"`
	Currency        string          `gorm:"type:varchar(16);not null" json:"currency"`
	SecurityDeposit decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"securityDeposit"`
	TotalPaid       decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"totalPaid"`

	SmartContractTerms string `gorm:"type:text" json:"smartContractTerms,omitempty"`

	// Version is bumped on every ledger write
	Version int64 `gorm:"not null;default:1" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName sets the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// AmountDue is the rent plus the security deposit.
func (b *Booking) AmountDue() decimal.Decimal {
	return b.Amount.Add(b.SecurityDeposit)
}

// IsFullyPaid returns true once the cumulative payment covers rent and deposit
func (b *Booking) IsFullyPaid() bool {
	return b.TotalPaid.GreaterThanOrEqual(b.AmountDue())
}

// Overlaps reports whether [checkIn, checkOut) intersects the booking's stay.
func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return checkIn.Before(b.CheckOut) && checkOut.After(b.CheckIn)
}

// BlocksDates returns true if the booking takes part in the exclusivity rule
func (b *Booking) BlocksDates() bool {
	return b.Status != StatusCancelled
}
