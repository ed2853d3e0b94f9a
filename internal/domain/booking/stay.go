package booking

// Stay is the priced result of a date range against a nightly rate.
// The total is fixed here, at booking time, and never recomputed later.
type Stay struct {
	Nights int
	Total  Money
}

// CalculateStay is pure: same inputs always produce the same Stay, and the
// total is exact integer arithmetic (nights × rate in cents), so repeated
// calls cannot drift.
func CalculateStay(r DateRange, nightlyRate Money) Stay {
	nights := r.Nights()
	return Stay{
		Nights: nights,
		Total:  nightlyRate.MulNights(nights),
	}
}
