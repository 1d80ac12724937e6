package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/novamed-health/booking-platform/internal/booking"
)

const (
	welcomeBody = "Welcome to NovaMed! Reply 'Book Appointment' to book a slot or 'Get Report' to look up a visit."
	hintBody    = "Send *Hi* to get started, or describe your booking, e.g. \"Rahul Sharma, cardiology tomorrow 10am, 9876543210\"."
	resetBody   = "Session cleared. Send *Hi* whenever you want to start again."
	restartBody = "Something went wrong with your session. Send *Hi* to restart."
)

var genderChoices = []string{"Male", "Female", "Other"}

// prompt asks the sender for the field the given step expects.
func (e *Engine) prompt(ctx context.Context, sender string, step Step, data Draft) error {
	switch step {
	case StepFirstName:
		return e.messenger.SendText(ctx, sender, "Enter First Name:")
	case StepLastName:
		return e.messenger.SendText(ctx, sender, "Enter Last Name:")
	case StepGender:
		return e.messenger.SendChoices(ctx, sender, "Select Gender:", genderChoices)
	case StepAddress:
		return e.messenger.SendText(ctx, sender, "Enter Address (short):")
	case StepEmail:
		return e.messenger.SendText(ctx, sender, "Enter Email (or type 'skip'):")
	case StepPhone:
		return e.messenger.SendText(ctx, sender, "Enter Phone Number (10 digits, +91 is assumed):")
	case StepDepartment:
		return e.messenger.SendChoices(ctx, sender, "Choose Department:", e.catalog.Names())
	case StepDate:
		return e.messenger.SendText(ctx, sender, "Enter preferred date (YYYY-MM-DD) or say something like 'tomorrow':")
	case StepTime:
		return e.promptTimes(ctx, sender, data)
	case StepReportID:
		return e.messenger.SendText(ctx, sender, "Please enter your Patient ID (e.g. P1001):")
	}
	return fmt.Errorf("conversation: no prompt for step %q", step)
}

// promptTimes offers only the time points that still have headroom,
// each annotated with remaining seats.
func (e *Engine) promptTimes(ctx context.Context, sender string, data Draft) error {
	avail, err := e.booker.Availability(ctx, data.Department, data.Date)
	if err != nil {
		return err
	}
	if len(avail) == 0 {
		return e.messenger.SendText(ctx, sender,
			fmt.Sprintf("No slots left for %s on %s. Enter a different date:", data.Department, data.Date))
	}

	choices := make([]string, len(avail))
	for i, a := range avail {
		choices[i] = fmt.Sprintf("%s (%d left)", a.Time, a.Remaining)
	}
	body := fmt.Sprintf("Available time slots for %s on %s:", data.Department, data.Date)
	return e.messenger.SendChoices(ctx, sender, body, choices)
}

func confirmationBody(id string, req booking.Reservation) string {
	return fmt.Sprintf("Appointment booked!\nPatient ID: %s\nDept: %s\nDate: %s\nTime: %s",
		id, req.Department, req.Date, req.Time)
}

func patientSummary(p *booking.Patient) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report for %s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(&b, "Patient ID: %s\n", p.ID)
	fmt.Fprintf(&b, "Department: %s\n", p.Department)
	fmt.Fprintf(&b, "Date: %s\n", p.Date)
	fmt.Fprintf(&b, "Time: %s\n", p.Time)
	return b.String()
}
