package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies what a transaction pays for
type Type string

const (
	TypeRentPayment     Type = "rent_payment"
	TypeSecurityDeposit Type = "security_deposit"
	TypeRefund          Type = "refund"
	TypeMaintenanceFee  Type = "maintenance_fee"
)

// Status is the settlement state of a transaction
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DefaultGas is the flat gas fee recorded on new transactions
var DefaultGas = decimal.NewFromFloat(0.002)

// Transaction represents a simulated on-chain payment
type Transaction struct {
	ID       string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Type     Type            `gorm:"size:32;not null;index" json:"type"`
	Amount   decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount"`
	Currency string          `gorm:"type:varchar(16);not null" json:"currency"`
	Status   Status          `gorm:"size:20;not null;default:pending;index" json:"status"`
	Date     time.Time       `gorm:"index" json:"date"`

	BookingID  *string `gorm:"type:varchar(36);index" json:"bookingId,omitempty"`
	PropertyID string  `gorm:"type:varchar(255);not null;index" json:"propertyId"`
	Property   string  `gorm:"type:varchar(255)" json:"property,omitempty"`
	TenantID   string  `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	Tenant     string  `gorm:"type:varchar(255)" json:"tenant,omitempty"`
	LandlordID string  `gorm:"type:varchar(255);not null;index" json:"landlordId"`
	Landlord   string  `gorm:"type:varchar(255)" json:"landlord,omitempty"`

	TxHash      string          `gorm:"type:varchar(66);not null;uniqueIndex" json:"txHash"`
	Gas         decimal.Decimal `gorm:"type:numeric(20,8)" json:"gas"`
	BlockNumber *int64          `json:"blockNumber"`
	Validation  string          `gorm:"type:text" json:"validation,omitempty"`

	// CreditedAt is set once a completed payment has been applied to its booking
	CreditedAt *time.Time `gorm:"index" json:"creditedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName sets the table name for the Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

// IsPending returns true while the transaction awaits settlement
func (t *Transaction) IsPending() bool {
	return t.Status == StatusPending
}

// CountsTowardBooking returns true if a completed transaction should be
// credited to its booking's ledger balance
func (t *Transaction) CountsTowardBooking() bool {
	if t.BookingID == nil || *t.BookingID == "" {
		return false
	}
	for _, creditable := range CreditableTypes() {
		if t.Type == creditable {
			return true
		}
	}
	return false
}

// AwaitsCredit returns true for a completed booking payment that has not
// been applied to the booking yet
func (t *Transaction) AwaitsCredit() bool {
	return t.Status == StatusCompleted && t.CountsTowardBooking() && t.CreditedAt == nil
}

// CreditableTypes lists the transaction types applied to a booking balance
func CreditableTypes() []Type {
	return []Type{TypeRentPayment, TypeSecurityDeposit}
}

// IsValidType checks the transaction type against the known set
func IsValidType(t Type) bool {
	switch t {
	case TypeRentPayment, TypeSecurityDeposit, TypeRefund, TypeMaintenanceFee:
		return true
	default:
		return false
	}
}
