package catalog

import "fmt"

// Slots returns the ordered bookable time points for a department: hourly
// steps from opening to closing time inclusive. Deterministic so that a
// slot key computed anywhere always lands on the same values.
func Slots(d Department) []string {
	open, err := parseClock(d.Opens)
	if err != nil {
		return nil
	}
	close_, err := parseClock(d.Closes)
	if err != nil {
		return nil
	}

	var out []string
	for h := open / 60; h <= close_/60; h++ {
		out = append(out, fmt.Sprintf("%02d:00", h))
	}
	return out
}

// HasSlot reports whether t is one of the department's generated slots.
func HasSlot(d Department, t string) bool {
	for _, s := range Slots(d) {
		if s == t {
			return true
		}
	}
	return false
}
