package shift

import "time"

const (
	TypeMorning   = "morning"
	TypeAfternoon = "afternoon"
	TypeBetween   = "between"
	TypeDayOff    = "day_off"
)

func ValidType(t string) bool {
	switch t {
	case TypeMorning, TypeAfternoon, TypeBetween, TypeDayOff:
		return true
	}
	return false
}

// Shift is one (user, date) roster slot. SwappedWith is a display-only
// back-reference to the counterpart of an executed swap; it carries no
// ownership semantics and is never used to re-derive swap state.
type Shift struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	SwappedWith *string   `json:"swappedWith,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
