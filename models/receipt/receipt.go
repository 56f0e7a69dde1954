package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is a generated proof of payment for a transaction
type Receipt struct {
	ID            string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	TransactionID string          `gorm:"type:varchar(36);not null;index" json:"transactionId"`
	Type          string          `gorm:"type:varchar(32);not null;index" json:"type"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,8)" json:"amount"`
	Currency      string          `gorm:"type:varchar(16)" json:"currency"`
	Status        string          `gorm:"type:varchar(20);not null" json:"status"`
	Date          time.Time       `gorm:"index" json:"date"`

	PropertyID string `gorm:"type:varchar(255);index" json:"propertyId"`
	Property   string `gorm:"type:varchar(255)" json:"property,omitempty"`
	TenantID   string `gorm:"type:varchar(255);index" json:"tenantId"`
	Tenant     string `gorm:"type:varchar(255)" json:"tenant,omitempty"`
	LandlordID string `gorm:"type:varchar(255);index" json:"landlordId"`
	Landlord   string `gorm:"type:varchar(255)" json:"landlord,omitempty"`

	TxHash               string          `gorm:"type:varchar(66)" json:"txHash,omitempty"`
	BlockNumber          *int64          `json:"blockNumber"`
	Gas                  decimal.Decimal `gorm:"type:numeric(20,8)" json:"gas"`
	SmartContractAddress string          `gorm:"type:varchar(66)" json:"smartContractAddress,omitempty"`
	ReceiptURL           string          `gorm:"type:varchar(500)" json:"receiptUrl"`
	ArchiveKey           string          `gorm:"type:varchar(500)" json:"archiveKey,omitempty"`
	Content              string          `gorm:"type:text" json:"content,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName sets the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}
