package transaction

import (
	"github.com/shopspring/decimal"
)

// TransactionCreateRequest represents the request payload for creating a transaction
type TransactionCreateRequest struct {
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	BookingID  string          `json:"bookingId"`
	PropertyID string          `json:"propertyId"`
	Property   string          `json:"property"`
	TenantID   string          `json:"tenantId"`
	Tenant     string          `json:"tenant"`
	LandlordID string          `json:"landlordId"`
	Landlord   string          `json:"landlord"`
}

// TransactionListQuery holds the GET /transactions query parameters
type TransactionListQuery struct {
	UserID     string `query:"userId"`
	Type       string `query:"type"`
	Status     string `query:"status"`
	PropertyID string `query:"propertyId"`
	BookingID  string `query:"bookingId"`
	Page       int    `query:"page"`
	Limit      int    `query:"limit"`
}

// MissingField returns the first required field that is absent
func (t TransactionCreateRequest) MissingField() string {
	switch {
	case t.Type == "":
		return "type"
	case t.Amount.IsZero():
		return "amount"
	case t.Currency == "":
		return "currency"
	case t.PropertyID == "":
		return "propertyId"
	case t.TenantID == "":
		return "tenantId"
	case t.LandlordID == "":
		return "landlordId"
	}
	return ""
}
