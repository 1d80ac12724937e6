package booking

import "errors"

var (
	// ErrSlotFull signals the requested slot has reached its capacity.
	// The conversation surfaces it as "pick another time", never as a
	// system failure.
	ErrSlotFull = errors.New("booking: slot is full")

	// ErrInvalidDepartment marks a department missing from the catalog.
	// This is a configuration/programming defect, not user error.
	ErrInvalidDepartment = errors.New("booking: department not in catalog")

	// ErrInvalidSlot marks a time that is not one of the department's
	// generated slots.
	ErrInvalidSlot = errors.New("booking: time is not a bookable slot")

	// ErrConflict is returned when the transactional store kept
	// conflicting after the bounded retry budget was exhausted.
	ErrConflict = errors.New("booking: store conflict, retries exhausted")

	// ErrPatientNotFound is returned by patient lookups.
	ErrPatientNotFound = errors.New("booking: patient not found")
)
