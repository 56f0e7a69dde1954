package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// NormalizePage applies the 1-based page defaults and clamps the page size
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Offset returns the number of rows to skip for a 1-based page
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// DateFormats are the only layouts accepted for booking dates
var DateFormats = []string{"2006-01-02", time.RFC3339}

var dateConfig = &now.Config{
	WeekStartDay: time.Monday,
	TimeLocation: time.UTC,
	TimeFormats:  DateFormats,
}

// ParseDate parses a calendar date (YYYY-MM-DD) or an RFC3339 timestamp and
// truncates it to the beginning of the day in UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	t, err := dateConfig.Parse(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}

	return dateConfig.With(t.UTC()).BeginningOfDay(), nil
}

// GenerateTxHash returns a 0x-prefixed 32 byte random hex string
func GenerateTxHash() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(bytes), nil
}

// RandomBlockNumber returns a pseudo block height below 100,000,000
func RandomBlockNumber() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
