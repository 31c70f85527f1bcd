package appointmentRepo

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")
	// ErrSlotTaken reports that another active appointment holds the slot.
	ErrSlotTaken = errors.New("appointment slot already taken")
	// ErrStaleStatus reports a lost compare-and-swap on the status field.
	ErrStaleStatus = errors.New("appointment status changed concurrently")
)
