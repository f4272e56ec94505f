// Package pricing holds the discount value object and the stacking algorithm
// shared by sales and coupons. All price math runs on shopspring decimals and
// is rounded in exactly one place (Stack) to keep totals consistent across
// modules.
package pricing

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrPercentageOutOfRange is returned when a discount percentage is not in [0, 100].
	ErrPercentageOutOfRange = errors.New("discount percentage must be between 0 and 100")
	// ErrInvalidDateRange is returned when a discount window ends before it starts.
	ErrInvalidDateRange = errors.New("discount ending date must be after starting date")
)

var hundred = decimal.NewFromInt(100)

// Discount is an immutable percentage-off value with a validity window.
// Construct it through NewDiscount; a zero Discount is not valid.
type Discount struct {
	Percentage   int
	Description  string
	StartingDate time.Time
	EndingDate   time.Time
}

// NewDiscount validates and builds a Discount. The percentage must be in
// [0, 100] and the ending date must be strictly after the starting date.
func NewDiscount(percentage int, description string, start, end time.Time) (Discount, error) {
	if percentage < 0 || percentage > 100 {
		return Discount{}, ErrPercentageOutOfRange
	}
	if !end.After(start) {
		return Discount{}, ErrInvalidDateRange
	}
	return Discount{
		Percentage:   percentage,
		Description:  description,
		StartingDate: start,
		EndingDate:   end,
	}, nil
}

// ValidAt reports whether now lies within the discount's validity window.
// Both bounds are inclusive.
func (d Discount) ValidAt(now time.Time) bool {
	return !now.Before(d.StartingDate) && !now.After(d.EndingDate)
}

// Equal reports value equality: percentage, description, and both dates.
func (d Discount) Equal(o Discount) bool {
	return d.Percentage == o.Percentage &&
		d.Description == o.Description &&
		d.StartingDate.Equal(o.StartingDate) &&
		d.EndingDate.Equal(o.EndingDate)
}

// multiplier returns (100 - percentage) / 100 as a decimal factor.
func (d Discount) multiplier() decimal.Decimal {
	return hundred.Sub(decimal.NewFromInt(int64(d.Percentage))).Div(hundred)
}
