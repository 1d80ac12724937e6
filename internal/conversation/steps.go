package conversation

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/novamed-health/booking-platform/internal/booking"
	"github.com/novamed-health/booking-platform/internal/nlp"
)

var digitsOnlyRe = regexp.MustCompile(`^\d+$`)

// handleStep consumes one answer for the session's current step. An
// answer that fails validation re-prompts the same step and leaves the
// session untouched.
func (e *Engine) handleStep(ctx context.Context, sender string, state *State, raw, lower string) error {
	switch state.Step {
	case StepFirstName:
		if raw == "" {
			return e.prompt(ctx, sender, state.Step, state.Data)
		}
		state.Data.FirstName = titleCase(raw)

	case StepLastName:
		if raw == "" {
			return e.prompt(ctx, sender, state.Step, state.Data)
		}
		state.Data.LastName = titleCase(raw)

	case StepGender:
		g, ok := matchChoice(lower, genderChoices)
		if !ok {
			return e.messenger.SendChoices(ctx, sender, "Please pick one of the options. Select Gender:", genderChoices)
		}
		state.Data.Gender = g

	case StepAddress:
		if raw == "" {
			return e.prompt(ctx, sender, state.Step, state.Data)
		}
		state.Data.Address = raw

	case StepEmail:
		if lower == "skip" {
			state.Data.Email = ""
			state.Data.EmailSet = true
			break
		}
		if !nlp.ValidEmail(raw) {
			return e.messenger.SendText(ctx, sender, "That doesn't look like an email. Enter a valid address, or type *skip*.")
		}
		state.Data.Email = strings.ToLower(raw)
		state.Data.EmailSet = true

	case StepPhone:
		phone, ok := nlp.NormalizePhone(raw)
		if !ok {
			return e.messenger.SendText(ctx, sender, "Please enter a valid phone number (at least 10 digits).")
		}
		state.Data.Phone = phone

	case StepDepartment:
		name, ok := e.pickDepartment(raw, lower)
		if !ok {
			return e.messenger.SendChoices(ctx, sender, "Please choose one of the listed departments:", e.catalog.Names())
		}
		state.Data.Department = name

	case StepDate:
		date, ok := e.parser.ExtractDate(raw, e.now())
		if !ok {
			return e.messenger.SendText(ctx, sender, "Please send a future date, e.g. 2026-09-15 or \"tomorrow\".")
		}
		state.Data.Date = date

	case StepTime:
		avail, err := e.booker.Availability(ctx, state.Data.Department, state.Data.Date)
		if err != nil {
			return e.messenger.SendText(ctx, sender, "We couldn't check availability. Please send your time again.")
		}
		if len(avail) == 0 {
			// The day is fully booked; the answer is expected to be a
			// replacement date.
			if date, ok := e.parser.ExtractDate(raw, e.now()); ok {
				state.Data.Date = date
				break
			}
			return e.promptTimes(ctx, sender, state.Data)
		}
		slot := resolveSlot(avail, raw, lower)
		if slot == "" {
			if err := e.messenger.SendText(ctx, sender, "That time isn't available."); err != nil {
				return err
			}
			return e.promptTimes(ctx, sender, state.Data)
		}
		state.Data.Time = slot

	case StepReportID:
		return e.handleReport(ctx, sender, raw)

	default:
		// An unrecognized step means the record predates the current
		// flow; drop it rather than guess.
		if err := e.sessions.Delete(ctx, sender); err != nil {
			e.logger.Error("session cleanup failed", "sender", sender, "error", err)
		}
		return e.messenger.SendText(ctx, sender, restartBody)
	}

	return e.advance(ctx, sender, state)
}

// handleReport looks a patient record up by its booking ID. Bare digits
// are accepted and prefixed.
func (e *Engine) handleReport(ctx context.Context, sender, raw string) error {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if digitsOnlyRe.MatchString(id) {
		id = "P" + id
	}

	defer func() {
		if err := e.sessions.Delete(ctx, sender); err != nil {
			e.logger.Error("session cleanup failed", "sender", sender, "error", err)
		}
	}()

	p, err := e.booker.Patient(ctx, id)
	switch {
	case err == nil:
		return e.messenger.SendText(ctx, sender, patientSummary(p))
	case errors.Is(err, booking.ErrPatientNotFound):
		return e.messenger.SendText(ctx, sender, "No record found for "+id+". Check the ID and send *Get Report* to try again.")
	default:
		e.logger.Error("patient lookup failed", "sender", sender, "patient_id", id, "error", err)
		return e.messenger.SendText(ctx, sender, "We couldn't fetch that report right now. Please try again later.")
	}
}

// pickDepartment resolves a department answer: a 1-based index into the
// presented list, or a name mentioned in the text.
func (e *Engine) pickDepartment(raw, lower string) (string, bool) {
	names := e.catalog.Names()
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		if n >= 1 && n <= len(names) {
			return names[n-1], true
		}
		return "", false
	}
	if d, ok := e.catalog.Match(lower); ok {
		return d.Name, true
	}
	return "", false
}

// resolveSlot matches a time answer against the offered open slots: a
// 1-based index into the list, or a clock time. Returns the empty
// string when the answer names no open slot.
func resolveSlot(avail []booking.SlotAvailability, raw, lower string) string {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		if n >= 1 && n <= len(avail) {
			return avail[n-1].Time
		}
		return ""
	}

	t, ok := nlp.ExtractTime(lower)
	if !ok {
		return ""
	}
	for _, s := range avail {
		if s.Time == t {
			return t
		}
	}
	return ""
}

// matchChoice matches a lowercased answer against a closed choice list.
func matchChoice(lower string, choices []string) (string, bool) {
	for i, c := range choices {
		if lower == strings.ToLower(c) || lower == strconv.Itoa(i+1) {
			return c, true
		}
	}
	return "", false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
