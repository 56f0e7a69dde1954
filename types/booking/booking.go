package booking

import (
	"github.com/shopspring/decimal"
)

// BookingCreateRequest represents the request payload for creating a booking
type BookingCreateRequest struct {
	PropertyID    string          `json:"propertyId"`
	PropertyTitle string          `json:"propertyTitle"`
	TenantID      string          `json:"tenantId"`
	TenantName    string          `json:"tenantName"`
	LandlordID    string          `json:"landlordId"`
	LandlordName  string          `json:"landlordName"`
	CheckIn       string          `json:"checkIn"`
	CheckOut      string          `json:"checkOut"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// BookingUpdateRequest represents the PUT /bookings payload
type BookingUpdateRequest struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	PaymentAmount *decimal.Decimal `json:"paymentAmount"`
}

// BookingListQuery holds the GET /bookings query parameters
type BookingListQuery struct {
	UserID     string `query:"userId"`
	PropertyID string `query:"propertyId"`
	Status     string `query:"status"`
	Page       int    `query:"page"`
	Limit      int    `query:"limit"`
}

// MissingField returns the first required field that is absent, in the
// order propertyId, tenantId, landlordId, checkIn, checkOut, amount, currency.
func (b BookingCreateRequest) MissingField() string {
	switch {
	case b.PropertyID == "":
		return "propertyId"
	case b.TenantID == "":
		return "tenantId"
	case b.LandlordID == "":
		return "landlordId"
	case b.CheckIn == "":
		return "checkIn"
	case b.CheckOut == "":
		return "checkOut"
	case b.Amount.IsZero():
		return "amount"
	case b.Currency == "":
		return "currency"
	}
	return ""
}
