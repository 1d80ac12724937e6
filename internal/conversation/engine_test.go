package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novamed-health/booking-platform/internal/booking"
	"github.com/novamed-health/booking-platform/internal/catalog"
	"github.com/novamed-health/booking-platform/internal/nlp"
)

var engineTestNow = time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)

type sentMessage struct {
	to      string
	body    string
	choices []string
}

type fakeMessenger struct {
	sent []sentMessage
}

func (m *fakeMessenger) SendText(_ context.Context, to, body string) error {
	m.sent = append(m.sent, sentMessage{to: to, body: body})
	return nil
}

func (m *fakeMessenger) SendChoices(_ context.Context, to, body string, choices []string) error {
	m.sent = append(m.sent, sentMessage{to: to, body: body, choices: choices})
	return nil
}

func (m *fakeMessenger) last(t *testing.T) sentMessage {
	t.Helper()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type fakeBooker struct {
	reserveID   string
	reserveErrs []error
	reserved    []booking.Reservation
	avail       []booking.SlotAvailability
	patient     *booking.Patient
	patientErr  error
	patientIDs  []string
}

func (b *fakeBooker) Reserve(_ context.Context, req booking.Reservation) (string, error) {
	b.reserved = append(b.reserved, req)
	if len(b.reserveErrs) > 0 {
		err := b.reserveErrs[0]
		b.reserveErrs = b.reserveErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return b.reserveID, nil
}

func (b *fakeBooker) Availability(_ context.Context, _, _ string) ([]booking.SlotAvailability, error) {
	return b.avail, nil
}

func (b *fakeBooker) Patient(_ context.Context, id string) (*booking.Patient, error) {
	b.patientIDs = append(b.patientIDs, id)
	if b.patientErr != nil {
		return nil, b.patientErr
	}
	return b.patient, nil
}

type engineFixture struct {
	engine    *Engine
	sessions  *SessionStore
	messenger *fakeMessenger
	booker    *fakeBooker
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := NewSessionStore(client, 30*time.Minute)
	cat := catalog.Default()
	messenger := &fakeMessenger{}
	booker := &fakeBooker{
		reserveID: "P1001",
		avail: []booking.SlotAvailability{
			{Time: "09:00", Remaining: 10},
			{Time: "10:00", Remaining: 4},
			{Time: "11:00", Remaining: 1},
		},
	}

	engine := NewEngine(sessions, booker, nlp.NewParser(cat), cat, messenger, nil)
	engine.now = func() time.Time { return engineTestNow }

	return &engineFixture{engine: engine, sessions: sessions, messenger: messenger, booker: booker}
}

func (f *engineFixture) state(t *testing.T, sender string) *State {
	t.Helper()
	state, err := f.sessions.Get(context.Background(), sender)
	require.NoError(t, err)
	return state
}

func TestGreetingSendsMenuWithoutSession(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	for _, greeting := range []string{"hi", "Hello", "HEY"} {
		require.NoError(t, f.engine.HandleMessage(ctx, "919000000001", greeting))
		msg := f.messenger.last(t)
		assert.Equal(t, welcomeBody, msg.body)
		assert.Equal(t, []string{"Book Appointment", "Get Report"}, msg.choices)
	}

	assert.Nil(t, f.state(t, "919000000001"))
}

func TestUnrecognizedIdleMessageHints(t *testing.T) {
	f := newEngineFixture(t)

	require.NoError(t, f.engine.HandleMessage(context.Background(), "919000000001", "what can you do"))

	assert.Equal(t, hintBody, f.messenger.last(t).body)
	assert.Nil(t, f.state(t, "919000000001"))
}

func TestStartPhraseEntersFlow(t *testing.T) {
	f := newEngineFixture(t)

	require.NoError(t, f.engine.HandleMessage(context.Background(), "919000000001", "Book Appointment"))

	state := f.state(t, "919000000001")
	require.NotNil(t, state)
	assert.Equal(t, StepFirstName, state.Step)
	assert.Equal(t, "Enter First Name:", f.messenger.last(t).body)
}

func TestResetClearsSession(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.HandleMessage(ctx, "919000000001", "book"))
	require.NotNil(t, f.state(t, "919000000001"))

	require.NoError(t, f.engine.HandleMessage(ctx, "919000000001", "cancel"))

	assert.Nil(t, f.state(t, "919000000001"))
	assert.Equal(t, resetBody, f.messenger.last(t).body)
}

func TestOneShotBooking(t *testing.T) {
	f := newEngineFixture(t)
	f.booker.reserveID = "P1042"

	err := f.engine.HandleMessage(context.Background(), "919000000001",
		"Rahul Sharma, cardiology tomorrow 10am, 9876543210, male")
	require.NoError(t, err)

	require.Len(t, f.booker.reserved, 1)
	req := f.booker.reserved[0]
	assert.Equal(t, "Rahul", req.FirstName)
	assert.Equal(t, "Sharma", req.LastName)
	assert.Equal(t, "Male", req.Gender)
	assert.Equal(t, "+919876543210", req.Phone)
	assert.Equal(t, "Cardiology", req.Department)
	assert.Equal(t, "2025-11-21", req.Date)
	assert.Equal(t, "10:00", req.Time)

	assert.Contains(t, f.messenger.last(t).body, "P1042")
	assert.Nil(t, f.state(t, "919000000001"))
}

func TestPartialExtractionPrefillsDraft(t *testing.T) {
	f := newEngineFixture(t)

	require.NoError(t, f.engine.HandleMessage(context.Background(), "919000000001",
		"i need a cardiology appointment tomorrow"))

	state := f.state(t, "919000000001")
	require.NotNil(t, state)
	assert.Equal(t, StepFirstName, state.Step)
	assert.Equal(t, "Cardiology", state.Data.Department)
	assert.Equal(t, "2025-11-21", state.Data.Date)
	assert.Empty(t, f.booker.reserved)
}

func TestPartialOneShotDropsToFirstName(t *testing.T) {
	f := newEngineFixture(t)

	require.NoError(t, f.engine.HandleMessage(context.Background(), "919000000001",
		"tomorrow at 10am for cardiology, I'm male"))

	state := f.state(t, "919000000001")
	require.NotNil(t, state)
	assert.Equal(t, StepFirstName, state.Step)
	assert.Equal(t, "Cardiology", state.Data.Department)
	assert.Equal(t, "2025-11-21", state.Data.Date)
	assert.Equal(t, "10:00", state.Data.Time)
	assert.Equal(t, "Male", state.Data.Gender)
	assert.Empty(t, f.booker.reserved)
}

func TestSlotFullRewindsToTimeStep(t *testing.T) {
	f := newEngineFixture(t)
	f.booker.reserveErrs = []error{booking.ErrSlotFull}

	err := f.engine.HandleMessage(context.Background(), "919000000001",
		"Rahul Sharma, cardiology tomorrow 10am, 9876543210")
	require.NoError(t, err)

	state := f.state(t, "919000000001")
	require.NotNil(t, state)
	assert.Equal(t, StepTime, state.Step)
	assert.Empty(t, state.Data.Time)
	assert.Equal(t, "Cardiology", state.Data.Department)

	msg := f.messenger.last(t)
	assert.Contains(t, msg.body, "Available time slots")
	assert.Equal(t, []string{"09:00 (10 left)", "10:00 (4 left)", "11:00 (1 left)"}, msg.choices)
}

func TestStoreConflictKeepsSessionUntouched(t *testing.T) {
	f := newEngineFixture(t)
	f.booker.reserveErrs = []error{booking.ErrConflict}
	ctx := context.Background()

	require.NoError(t, f.engine.HandleMessage(ctx, "919000000001",
		"Rahul Sharma, cardiology tomorrow 10am, 9876543210"))

	assert.Contains(t, f.messenger.last(t).body, "couldn't confirm")
	// The one-shot path had no session, and the conflict creates none.
	assert.Nil(t, f.state(t, "919000000001"))
}

func TestReportFlow(t *testing.T) {
	f := newEngineFixture(t)
	f.booker.patient = &booking.Patient{
		ID: "P1001", FirstName: "Rahul", LastName: "Sharma",
		Department: "Cardiology", Date: "2025-11-21", Time: "10:00",
	}
	ctx := context.Background()

	require.NoError(t, f.engine.HandleMessage(ctx, "919000000001", "get report"))
	state := f.state(t, "919000000001")
	require.NotNil(t, state)
	assert.Equal(t, StepReportID, state.Step)

	require.NoError(t, f.engine.HandleMessage(ctx, "919000000001", "1001"))
	assert.Equal(t, []string{"P1001"}, f.booker.patientIDs)
	body := f.messenger.last(t).body
	assert.Contains(t, body, "Rahul Sharma")
	assert.Contains(t, body, "P1001")
	assert.Nil(t, f.state(t, "919000000001"))
}

func TestReportUnknownPatient(t *testing.T) {
	f := newEngineFixture(t)
	f.booker.patientErr = booking.ErrPatientNotFound
	ctx := context.Background()

	require.NoError(t, f.engine.HandleMessage(ctx, "919000000001", "report"))
	require.NoError(t, f.engine.HandleMessage(ctx, "919000000001", "P9999"))

	assert.Contains(t, f.messenger.last(t).body, "No record found for P9999")
	assert.Nil(t, f.state(t, "919000000001"))
}

func TestSessionsAreIsolatedPerSender(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.HandleMessage(ctx, "919000000001", "book"))
	require.NoError(t, f.engine.HandleMessage(ctx, "919000000002", "get report"))

	a := f.state(t, "919000000001")
	b := f.state(t, "919000000002")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, StepFirstName, a.Step)
	assert.Equal(t, StepReportID, b.Step)
}

func TestWelcomeMentionsBothEntryPoints(t *testing.T) {
	assert.True(t, strings.Contains(welcomeBody, "Book Appointment"))
	assert.True(t, strings.Contains(welcomeBody, "Get Report"))
}
