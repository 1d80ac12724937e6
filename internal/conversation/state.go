package conversation

import "time"

// Step is the dialogue state machine's current position; it determines
// which field the next inbound answer is expected to fill.
type Step string

const (
	StepNone       Step = ""
	StepFirstName  Step = "firstName"
	StepLastName   Step = "lastName"
	StepGender     Step = "gender"
	StepAddress    Step = "address"
	StepEmail      Step = "email"
	StepPhone      Step = "phoneNumber"
	StepDepartment Step = "department"
	StepDate       Step = "registrationDate"
	StepTime       Step = "registrationTime"
	StepReportID   Step = "reportPatientId"
)

// bookingSteps is the collection order of the booking flow.
var bookingSteps = []Step{
	StepFirstName,
	StepLastName,
	StepGender,
	StepAddress,
	StepEmail,
	StepPhone,
	StepDepartment,
	StepDate,
	StepTime,
}

// Draft holds the partially collected patient fields of one conversation.
type Draft struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Address    string `json:"address,omitempty"`
	Email      string `json:"email,omitempty"`
	EmailSet   bool   `json:"emailSet,omitempty"` // distinguishes "skip" from unanswered
	Phone      string `json:"phoneNumber,omitempty"`
	Department string `json:"department,omitempty"`
	Date       string `json:"registrationDate,omitempty"`
	Time       string `json:"registrationTime,omitempty"`
}

// State is one sender's conversation record.
type State struct {
	Step       Step      `json:"step"`
	Data       Draft     `json:"data"`
	LastActive time.Time `json:"lastActive"`
}

// filled reports whether the draft already answers the given step.
func (d Draft) filled(step Step) bool {
	switch step {
	case StepFirstName:
		return d.FirstName != ""
	case StepLastName:
		return d.LastName != ""
	case StepGender:
		return d.Gender != ""
	case StepAddress:
		return d.Address != ""
	case StepEmail:
		return d.EmailSet
	case StepPhone:
		return d.Phone != ""
	case StepDepartment:
		return d.Department != ""
	case StepDate:
		return d.Date != ""
	case StepTime:
		return d.Time != ""
	}
	return false
}

// firstUnfilled returns the earliest booking step the draft has no
// answer for, or StepNone when everything is collected.
func (d Draft) firstUnfilled() Step {
	for _, s := range bookingSteps {
		if !d.filled(s) {
			return s
		}
	}
	return StepNone
}

// readyToReserve reports whether the core required fields of a one-shot
// booking are present: name, phone, department, date and time. The
// remaining fields are optional in the one-shot path.
func (d Draft) readyToReserve() bool {
	return d.FirstName != "" && d.Phone != "" &&
		d.Department != "" && d.Date != "" && d.Time != ""
}
