package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/novamed-health/booking-platform/internal/booking"
	"github.com/novamed-health/booking-platform/internal/catalog"
	"github.com/novamed-health/booking-platform/internal/nlp"
	"github.com/novamed-health/booking-platform/pkg/logging"
)

var conversationTracer = otel.Tracer("novamed.internal.conversation")

// Booker is the reservation surface the engine drives. Satisfied by
// *booking.Service.
type Booker interface {
	Reserve(ctx context.Context, req booking.Reservation) (string, error)
	Availability(ctx context.Context, department, date string) ([]booking.SlotAvailability, error)
	Patient(ctx context.Context, id string) (*booking.Patient, error)
}

// Engine is the conversational booking orchestrator: it loads the
// sender's session, routes the message through the NLP one-shot path or
// the step-by-step state machine, and replies through the messenger.
type Engine struct {
	sessions  *SessionStore
	booker    Booker
	parser    *nlp.Parser
	catalog   *catalog.Catalog
	messenger Messenger
	logger    *logging.Logger
	now       func() time.Time
}

// NewEngine wires the conversation engine.
func NewEngine(sessions *SessionStore, booker Booker, parser *nlp.Parser, cat *catalog.Catalog, messenger Messenger, logger *logging.Logger) *Engine {
	if sessions == nil || booker == nil || parser == nil || cat == nil || messenger == nil {
		panic("conversation: engine dependencies cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		sessions:  sessions,
		booker:    booker,
		parser:    parser,
		catalog:   cat,
		messenger: messenger,
		logger:    logger,
		now:       time.Now,
	}
}

var greetings = map[string]struct{}{"hi": {}, "hello": {}, "hey": {}}

func isGreeting(lower string) bool {
	_, ok := greetings[lower]
	return ok
}

func isStartPhrase(lower string) bool {
	switch lower {
	case "book", "book appointment", "appointment":
		return true
	}
	return false
}

func isReportPhrase(lower string) bool {
	switch lower {
	case "report", "get report":
		return true
	}
	return false
}

func isResetPhrase(lower string) bool {
	switch lower {
	case "cancel", "restart", "reset":
		return true
	}
	return false
}

// HandleMessage processes one inbound message from sender. The returned
// error is for logging only; every path has already told the user what
// to do next.
func (e *Engine) HandleMessage(ctx context.Context, sender, text string) error {
	ctx, span := conversationTracer.Start(ctx, "conversation.handle_message")
	defer span.End()
	span.SetAttributes(attribute.String("novamed.sender", sender))

	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)

	// A bare greeting never touches session state.
	if isGreeting(lower) {
		return e.messenger.SendChoices(ctx, sender, welcomeBody, []string{"Book Appointment", "Get Report"})
	}

	if isResetPhrase(lower) {
		if err := e.sessions.Delete(ctx, sender); err != nil {
			span.RecordError(err)
			e.logger.Error("session reset failed", "sender", sender, "error", err)
		}
		return e.messenger.SendText(ctx, sender, resetBody)
	}

	state, err := e.sessions.Get(ctx, sender)
	if err != nil {
		span.RecordError(err)
		e.logger.Error("session load failed", "sender", sender, "error", err)
		return e.messenger.SendText(ctx, sender, "We hit a snag. Please try again in a moment.")
	}

	if state == nil {
		return e.handleIdle(ctx, sender, raw, lower)
	}
	return e.handleStep(ctx, sender, state, raw, lower)
}

// handleIdle routes a message from a sender with no active conversation:
// explicit start phrases enter the machine, everything else goes through
// the NLP extractors for a one-shot booking or a pre-filled entry.
func (e *Engine) handleIdle(ctx context.Context, sender, raw, lower string) error {
	if isStartPhrase(lower) {
		return e.enterAt(ctx, sender, Draft{}, StepFirstName)
	}
	if isReportPhrase(lower) {
		state := &State{Step: StepReportID}
		if err := e.sessions.Put(ctx, sender, state); err != nil {
			return err
		}
		return e.prompt(ctx, sender, StepReportID, state.Data)
	}

	res := e.parser.Extract(raw, e.now())
	draft := draftFromResult(res)

	if draft.readyToReserve() {
		return e.attemptReservation(ctx, sender, draft, nil)
	}
	if next := draft.firstUnfilled(); next != StepFirstName || draft != (Draft{}) {
		// Something was understood; collect the rest step by step.
		return e.enterAt(ctx, sender, draft, next)
	}
	return e.messenger.SendText(ctx, sender, hintBody)
}

// enterAt persists a session positioned at step and prompts for it.
func (e *Engine) enterAt(ctx context.Context, sender string, draft Draft, step Step) error {
	state := &State{Step: step, Data: draft}
	if err := e.sessions.Put(ctx, sender, state); err != nil {
		return err
	}
	return e.prompt(ctx, sender, step, draft)
}

// advance moves a validated session to the next unfilled step, or runs
// the reservation when everything is collected.
func (e *Engine) advance(ctx context.Context, sender string, state *State) error {
	next := state.Data.firstUnfilled()
	if next == StepNone {
		return e.attemptReservation(ctx, sender, state.Data, state)
	}
	state.Step = next
	if err := e.sessions.Put(ctx, sender, state); err != nil {
		return err
	}
	return e.prompt(ctx, sender, next, state.Data)
}

// attemptReservation executes the slot reservation and translates every
// outcome into a next action for the user. state is nil on the one-shot
// path.
func (e *Engine) attemptReservation(ctx context.Context, sender string, draft Draft, state *State) error {
	req := booking.Reservation{
		FirstName:  draft.FirstName,
		LastName:   draft.LastName,
		Gender:     draft.Gender,
		Address:    draft.Address,
		Email:      draft.Email,
		Phone:      draft.Phone,
		Department: draft.Department,
		Date:       draft.Date,
		Time:       draft.Time,
	}

	id, err := e.booker.Reserve(ctx, req)
	switch {
	case err == nil:
		if err := e.sessions.Delete(ctx, sender); err != nil {
			e.logger.Error("session cleanup failed", "sender", sender, "error", err)
		}
		return e.messenger.SendText(ctx, sender, confirmationBody(id, req))

	case errors.Is(err, booking.ErrSlotFull):
		// Rewind to time selection so the user can pick a slot that
		// still has room.
		draft.Time = ""
		rewound := &State{Step: StepTime, Data: draft}
		if err := e.sessions.Put(ctx, sender, rewound); err != nil {
			return err
		}
		if err := e.messenger.SendText(ctx, sender,
			"Sorry, that slot just filled up. Pick a different time:"); err != nil {
			return err
		}
		return e.promptTimes(ctx, sender, draft)

	case errors.Is(err, booking.ErrConflict):
		return e.messenger.SendText(ctx, sender,
			"We couldn't confirm your booking just now. Please send your time again.")

	default:
		e.logger.Error("reservation failed", "sender", sender, "error", err)
		if err := e.sessions.Delete(ctx, sender); err != nil {
			e.logger.Error("session cleanup failed", "sender", sender, "error", err)
		}
		return e.messenger.SendText(ctx, sender, "Booking failed. Send *Hi* to try again.")
	}
}

// draftFromResult maps extractor output onto a conversation draft.
func draftFromResult(r nlp.Result) Draft {
	var d Draft
	if r.FirstName != nil {
		d.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		d.LastName = *r.LastName
	}
	if r.Gender != nil {
		d.Gender = *r.Gender
	}
	if r.Email != nil {
		d.Email = *r.Email
		d.EmailSet = true
	}
	if r.Phone != nil {
		d.Phone = *r.Phone
	}
	if r.Department != nil {
		d.Department = *r.Department
	}
	if r.Date != nil {
		d.Date = *r.Date
	}
	if r.Time != nil {
		d.Time = *r.Time
	}
	return d
}
