package booking

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidDateRange  = errors.New("check-out must be at least one night after check-in")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrIllegalTransition = errors.New("illegal status transition")
)

// DateRange is a half-open stay interval [checkIn, checkOut) in calendar
// dates. Time-of-day on either endpoint is discarded for night counting.
type DateRange struct {
	checkIn  time.Time
	checkOut time.Time
}

func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	in := toCalendarDate(checkIn)
	out := toCalendarDate(checkOut)

	if !out.After(in) {
		return DateRange{}, ErrInvalidDateRange
	}

	return DateRange{checkIn: in, checkOut: out}, nil
}

func toCalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r DateRange) CheckIn() time.Time {
	return r.checkIn
}

func (r DateRange) CheckOut() time.Time {
	return r.checkOut
}

func (r DateRange) Nights() int {
	return int(r.checkOut.Sub(r.checkIn) / (24 * time.Hour))
}

// Overlaps reports whether two half-open ranges share at least one night.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.checkIn.Before(other.checkOut) && other.checkIn.Before(r.checkOut)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s,%s)", r.checkIn.Format(time.DateOnly), r.checkOut.Format(time.DateOnly))
}

type Money struct {
	cents int64
}

func NewMoney(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{cents: cents}, nil
}

// NewMoneyFromDecimal converts a decimal currency amount to cents,
// rounding half-up to two decimal places.
func NewMoneyFromDecimal(amount float64) (Money, error) {
	if amount < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{cents: int64(math.Floor(amount*100 + 0.5))}, nil
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) Dollars() float64 {
	return float64(m.cents) / 100.0
}

func (m Money) MulNights(nights int) Money {
	return Money{cents: m.cents * int64(nights)}
}
