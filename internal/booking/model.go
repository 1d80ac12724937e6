package booking

import "time"

// Reservation carries the fully collected patient fields for one slot
// reservation attempt.
type Reservation struct {
	FirstName  string
	LastName   string
	Gender     string
	Address    string
	Email      string
	Phone      string
	Department string
	Date       string // YYYY-MM-DD
	Time       string // HH:MM, one of the department's generated slots
}

// Patient is the immutable record written by a successful reservation.
type Patient struct {
	ID         string
	FirstName  string
	LastName   string
	Gender     string
	Address    string
	Email      string
	Phone      string
	Department string
	Date       string
	Time       string
	CreatedAt  time.Time
}

// SlotAvailability is one bookable time point with its remaining headroom.
type SlotAvailability struct {
	Time      string
	Remaining int
}
