package swap

import "time"

// ShiftWrite is one roster row the exchange must update: the new type plus the
// display-only back-reference to the swap counterpart.
type ShiftWrite struct {
	UserID      string
	Date        time.Time
	Type        string
	SwappedWith string
}

// ExchangeWrites plans the shift updates for an approved swap from the
// creation-time snapshots. The two own-date rows trade the users' original
// types; when both users also held a shift on each other's date, that
// cross-date pair is traded symmetrically, so up to four rows are touched.
// Applying the plan twice restores nothing new: the plan is an involution over
// the snapshot values.
func ExchangeWrites(r Request) []ShiftWrite {
	writes := []ShiftWrite{
		{UserID: r.RequesterID, Date: r.RequesterDate, Type: r.TargetType, SwappedWith: r.TargetID},
		{UserID: r.TargetID, Date: r.TargetDate, Type: r.RequesterType, SwappedWith: r.RequesterID},
	}
	if sameDay(r.RequesterDate, r.TargetDate) {
		return writes
	}
	if r.RequesterCrossType != "" && r.TargetCrossType != "" {
		writes = append(writes,
			ShiftWrite{UserID: r.RequesterID, Date: r.TargetDate, Type: r.TargetCrossType, SwappedWith: r.TargetID},
			ShiftWrite{UserID: r.TargetID, Date: r.RequesterDate, Type: r.RequesterCrossType, SwappedWith: r.RequesterID},
		)
	}
	return writes
}

// Applied reports whether the own-date rows already carry the post-exchange
// types, making re-execution a no-op. This is the idempotency check that makes
// retrying a committed-but-reported-failed approval safe.
func Applied(r Request, requesterCurrent, targetCurrent string) bool {
	return requesterCurrent == r.TargetType && targetCurrent == r.RequesterType
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
