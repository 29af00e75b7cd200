package models

import (
	"cmp"
	"slices"
)

// SortRentals orders by reference month, weekday (Monday first), start
// time and id.
func SortRentals(rs []Rental) {
	slices.SortStableFunc(rs, func(a, b Rental) int {
		return cmp.Or(
			cmp.Compare(a.ReferenceMonth, b.ReferenceMonth),
			cmp.Compare(WeekdayOrdinal(a.Weekday), WeekdayOrdinal(b.Weekday)),
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func SortTransactions(ts []Transaction) {
	slices.SortStableFunc(ts, func(a, b Transaction) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.ID, b.ID),
		)
	})
}
