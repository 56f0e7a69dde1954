package receipt

import (
	"github.com/shopspring/decimal"
)

// ReceiptCreateRequest represents the request payload for generating a receipt.
// Fields other than TransactionID and UserID are fallbacks used when the
// transaction is not on record.
type ReceiptCreateRequest struct {
	TransactionID        string          `json:"transactionId"`
	UserID               string          `json:"userId"`
	Type                 string          `json:"type"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Property             string          `json:"property"`
	PropertyID           string          `json:"propertyId"`
	Tenant               string          `json:"tenant"`
	TenantID             string          `json:"tenantId"`
	Landlord             string          `json:"landlord"`
	LandlordID           string          `json:"landlordId"`
	TxHash               string          `json:"txHash"`
	BlockNumber          *int64          `json:"blockNumber"`
	Gas                  decimal.Decimal `json:"gas"`
	SmartContractAddress string          `json:"smartContractAddress"`
}

// ReceiptListQuery holds the GET /receipts query parameters
type ReceiptListQuery struct {
	UserID        string `query:"userId"`
	TransactionID string `query:"transactionId"`
	Type          string `query:"type"`
	Page          int    `query:"page"`
	Limit         int    `query:"limit"`
}
