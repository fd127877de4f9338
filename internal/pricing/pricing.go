// Package pricing computes the nightly-rate breakdown for a candidate stay.
// The quote is ephemeral: it is recomputed on every input change and the
// upstream creation response remains authoritative for the final total.
package pricing

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hoteldesk/backoffice-service/internal/model"
)

var (
	ErrInvalidRange = errors.New("checkOutDate must be after checkInDate")
)

type Quote struct {
	RoomType      string  `json:"roomType"`
	WeekdayNights int     `json:"weekdayNights"`
	WeekendNights int     `json:"weekendNights"`
	WeekdayTotal  float64 `json:"weekdayTotal"`
	WeekendTotal  float64 `json:"weekendTotal"`
	Subtotal      float64 `json:"subtotal"`
	TaxRate       float64 `json:"taxRate"`
	Taxes         float64 `json:"taxes"`
	TotalAmount   float64 `json:"totalAmount"`
}

// Nights splits the stay into weekday and weekend nights. A night is a
// weekend night when it starts on Friday or Saturday. The sum always
// equals the stay length in days.
func Nights(checkIn, checkOut time.Time) (weekday, weekend int) {
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Friday, time.Saturday:
			weekend++
		default:
			weekday++
		}
	}
	return weekday, weekend
}

// Compute builds the quote for one room type. Money math runs on decimals
// and is rounded to cents once, at the end of each derived field.
func Compute(inv model.RoomTypeInventory, taxRate float64, checkIn, checkOut time.Time) (Quote, error) {
	if !checkOut.After(checkIn) {
		return Quote{}, ErrInvalidRange
	}
	weekday, weekend := Nights(checkIn, checkOut)

	base := decimal.NewFromFloat(inv.BasePrice)
	wkndRate := decimal.NewFromFloat(inv.WeekendPrice)
	rate := decimal.NewFromFloat(taxRate)

	weekdayTotal := base.Mul(decimal.NewFromInt(int64(weekday)))
	weekendTotal := wkndRate.Mul(decimal.NewFromInt(int64(weekend)))
	subtotal := weekdayTotal.Add(weekendTotal)
	taxes := subtotal.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Add(taxes)

	return Quote{
		RoomType:      inv.RoomType,
		WeekdayNights: weekday,
		WeekendNights: weekend,
		WeekdayTotal:  weekdayTotal.InexactFloat64(),
		WeekendTotal:  weekendTotal.InexactFloat64(),
		Subtotal:      subtotal.InexactFloat64(),
		TaxRate:       taxRate,
		Taxes:         taxes.InexactFloat64(),
		TotalAmount:   total.InexactFloat64(),
	}, nil
}
