package appointment

import (
	"regexp"
	"strings"
	"time"

	"nahio/models"
)

// timeSlotPattern accepts zero-padded 24h times from 00:00 to 23:59.
var timeSlotPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidTimeSlot reports whether s is a well-formed HH:MM slot.
func ValidTimeSlot(s string) bool {
	return timeSlotPattern.MatchString(s)
}

func validateSlot(institutionID string, visitDate time.Time, timeSlot string) error {
	switch {
	case institutionID == "":
		return validationError("institutionId is required")
	case timeSlot == "":
		return validationError("timeSlot is required")
	case !ValidTimeSlot(timeSlot):
		return validationError("timeSlot must be HH:MM between 00:00 and 23:59")
	case visitDate.IsZero():
		return validationError("visitDate is required")
	}
	return nil
}

// normalizeDraft trims the draft and checks it against today's date in loc.
func normalizeDraft(d models.AppointmentDraft, today time.Time) (models.AppointmentDraft, error) {
	d.ScoutID = strings.TrimSpace(d.ScoutID)
	d.InstitutionID = strings.TrimSpace(d.InstitutionID)
	d.TimeSlot = strings.TrimSpace(d.TimeSlot)
	d.Notes = strings.TrimSpace(d.Notes)

	if err := validateSlot(d.InstitutionID, d.VisitDate, d.TimeSlot); err != nil {
		return d, err
	}
	d.VisitDate = models.DateOnly(d.VisitDate)
	if d.VisitDate.Before(today) {
		return d, validationError("visitDate cannot be in the past")
	}
	return d, nil
}
