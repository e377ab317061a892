package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// MoneyScale is the number of fractional digits stored for every amount.
const MoneyScale int32 = 4

// maxMoney is the first value with more than the 16 integer digits of decimal(20,4).
var maxMoney = decimal.New(1, 16)

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}

func NewTrue() *bool {
	b := true
	return &b
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

// HasMoneyScale reports whether d fits into decimal(20,4) without rounding.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Abs().LessThan(maxMoney) && d.Equal(d.Truncate(MoneyScale))
}

func LoadTimezone(timezone string) (*time.Location, error) {
	if strings.TrimSpace(timezone) == "" {
		timezone = "UTC"
	}
	return time.LoadLocation(timezone)
}

// ConvertToDate returns midnight of t's calendar day in the given timezone.
func ConvertToDate(t time.Time, timezone string) (time.Time, error) {
	location, err := LoadTimezone(timezone)
	if err != nil {
		return t, err
	}
	localTime := t.In(location)
	return time.Date(localTime.Year(), localTime.Month(), localTime.Day(), 0, 0, 0, 0, location), nil
}

// DayRange returns the UTC half-open interval [start, end) covering the calendar day of
// date in the given timezone. Only the year/month/day of date are used.
func DayRange(date time.Time, timezone string) (time.Time, time.Time, error) {
	location, err := LoadTimezone(timezone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, location)
	end := start.AddDate(0, 0, 1)
	return start.UTC(), end.UTC(), nil
}

// ParseDate parses YYYY-MM-DD into a date at midnight UTC.
func ParseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(value))
}
