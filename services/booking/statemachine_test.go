package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"meetsync/models"
	"meetsync/services/calendar"
	"meetsync/services/intelligence"
)

// fakeGateway is a scriptable in-memory calendar backend.
type fakeGateway struct {
	mu sync.Mutex

	busy    []models.BusyInterval
	busyAll bool // report every queried window as fully busy

	busyErrs   []error // consumed one per QueryBusy call
	createErrs []error // consumed one per CreateEvent call

	busyCalls   int
	createCalls int
	created     []models.BookingSlot
	summaries   []string
}

func (g *fakeGateway) QueryBusy(ctx context.Context, window models.SlotWindow) ([]models.BusyInterval, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busyCalls++
	if len(g.busyErrs) > 0 {
		err := g.busyErrs[0]
		g.busyErrs = g.busyErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if g.busyAll {
		return []models.BusyInterval{{Start: window.Start, End: window.End}}, nil
	}
	return g.busy, nil
}

func (g *fakeGateway) CreateEvent(ctx context.Context, slot models.BookingSlot, summary, attendeeEmail string) (*models.CalendarEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if len(g.createErrs) > 0 {
		err := g.createErrs[0]
		g.createErrs = g.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	g.created = append(g.created, slot)
	g.summaries = append(g.summaries, summary)
	return &models.CalendarEvent{
		EventID: fmt.Sprintf("evt-%d", g.createCalls),
		Link:    "https://calendar.example/evt",
		Status:  "confirmed",
	}, nil
}

func (g *fakeGateway) setBusy(busy []models.BusyInterval) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy = busy
}

// fakeLanguage returns scripted extractions keyed by utterance.
type fakeLanguage struct {
	fields  map[string]models.ExtractedFields
	intents map[string]intelligence.Intent
}

func (f *fakeLanguage) ExtractFields(ctx context.Context, utterance string, hint intelligence.FieldHint) (models.ExtractedFields, error) {
	return f.fields[utterance], nil
}

func (f *fakeLanguage) ClassifyIntent(ctx context.Context, utterance string) (intelligence.Intent, error) {
	if intent, ok := f.intents[utterance]; ok {
		return intent, nil
	}
	return intelligence.IntentBooking, nil
}

type fakeArchiver struct {
	mu      sync.Mutex
	records []models.BookingRecord
}

func (a *fakeArchiver) Archive(ctx context.Context, record models.BookingRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
	return nil
}

var testNow = func() time.Time {
	loc, _ := time.LoadLocation("Europe/Kyiv")
	// Monday noon.
	return time.Date(2025, time.March, 10, 12, 0, 0, 0, loc)
}

func newTestEngine(gw *fakeGateway, lang *fakeLanguage, arch Archiver) *Engine {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		panic(err)
	}
	e := NewEngine(gw, lang, arch, 30*time.Minute, loc)
	e.now = testNow
	return e
}

func newState() *models.ConversationState {
	return &models.ConversationState{
		SessionID: "sess-1",
		Stage:     models.StageQualifying,
		CreatedAt: testNow(),
	}
}

func qualifiedLanguage() *fakeLanguage {
	return &fakeLanguage{
		fields: map[string]models.ExtractedFields{
			"I'm Denis, denis@example.com, tomorrow afternoon": {
				Name:           "Denis",
				Email:          "denis@example.com",
				TimePreference: "tomorrow afternoon",
			},
		},
		intents: map[string]intelligence.Intent{},
	}
}

// qualify runs the turn that supplies all three fields and returns the
// resulting proposal response.
func qualify(t *testing.T, e *Engine, st *models.ConversationState) *models.ChatResponse {
	t.Helper()
	resp, err := e.Advance(context.Background(), st, "I'm Denis, denis@example.com, tomorrow afternoon")
	if err != nil {
		t.Fatalf("qualification turn failed: %v", err)
	}
	return resp
}

func TestFullBookingFlow(t *testing.T) {
	gw := &fakeGateway{}
	arch := &fakeArchiver{}
	e := newTestEngine(gw, qualifiedLanguage(), arch)
	st := newState()
	ctx := context.Background()

	// Opening turn: nothing extracted yet.
	resp, err := e.Advance(ctx, st, "hi, I'd like to book a meeting")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Stage != models.StageQualifying {
		t.Fatalf("stage = %q, want qualifying", st.Stage)
	}
	if !strings.Contains(resp.Reply, "name") {
		t.Fatalf("opening reply should ask for details, got %q", resp.Reply)
	}

	// Full qualification in one message.
	resp = qualify(t, e, st)
	if st.Stage != models.StageConfirming {
		t.Fatalf("stage after qualification = %q, want confirming", st.Stage)
	}
	if st.Proposal == nil || len(st.Proposal.Slots) == 0 {
		t.Fatal("expected a slot proposal")
	}
	if len(resp.Slots) != len(st.Proposal.Slots) {
		t.Fatalf("response slots = %d, state slots = %d", len(resp.Slots), len(st.Proposal.Slots))
	}
	if len(st.Proposal.Slots) > 5 {
		t.Fatalf("proposal has %d slots, want at most 5", len(st.Proposal.Slots))
	}
	// Tomorrow afternoon in Kyiv: first slot starts 14:00 on March 11.
	first := st.Proposal.Slots[0].Start
	if first.Day() != 11 || first.Hour() != 14 {
		t.Fatalf("first slot = %v, want March 11 14:00", first)
	}

	// Pick the second option.
	resp, err = e.Advance(ctx, st, "2")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !st.AwaitingConfirm {
		t.Fatal("expected AwaitingConfirm after selection")
	}
	if st.Selected == nil || !st.Selected.Equal(st.Proposal.Slots[1]) {
		t.Fatalf("selected = %v, want second proposed slot", st.Selected)
	}
	if st.ConfirmToken == "" {
		t.Fatal("expected a confirmation token")
	}
	if !strings.Contains(resp.Reply, "Yes/No") {
		t.Fatalf("confirmation summary missing yes/no prompt: %q", resp.Reply)
	}
	if gw.createCalls != 0 {
		t.Fatalf("create called %d times before confirmation", gw.createCalls)
	}

	// Explicit confirmation books exactly once.
	resp, err = e.Advance(ctx, st, "yes")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Stage != models.StageDone {
		t.Fatalf("stage = %q, want done", st.Stage)
	}
	if gw.createCalls != 1 {
		t.Fatalf("create called %d times, want 1", gw.createCalls)
	}
	if gw.summaries[0] != "Meeting with Denis" {
		t.Fatalf("event summary = %q", gw.summaries[0])
	}
	if st.Result == nil || st.Result.Status != models.BookingStatusConfirmed {
		t.Fatalf("result = %+v, want confirmed", st.Result)
	}
	if resp.Result == nil || resp.Result.EventID != st.Result.EventID {
		t.Fatalf("response result = %+v", resp.Result)
	}
	if len(arch.records) != 1 || arch.records[0].AttendeeEmail != "denis@example.com" {
		t.Fatalf("archive records = %+v", arch.records)
	}

	// The conversation is closed; further turns do nothing.
	resp, err = e.Advance(ctx, st, "yes")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if gw.createCalls != 1 {
		t.Fatalf("create called again after terminal stage")
	}
	if !strings.Contains(resp.Reply, "finished") {
		t.Fatalf("terminal reply = %q", resp.Reply)
	}
}

func TestNoBookingWithoutQualification(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, qualifiedLanguage(), nil)
	st := newState()

	// An affirmative before any proposal exists must not book anything.
	_, err := e.Advance(context.Background(), st, "yes")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Stage != models.StageQualifying {
		t.Fatalf("stage = %q, want qualifying", st.Stage)
	}
	if gw.createCalls != 0 || gw.busyCalls != 0 {
		t.Fatalf("gateway touched before qualification: busy=%d create=%d", gw.busyCalls, gw.createCalls)
	}
}

func TestAmbiguousConfirmationDoesNotBook(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, qualifiedLanguage(), nil)
	st := newState()
	ctx := context.Background()

	qualify(t, e, st)
	if _, err := e.Advance(ctx, st, "1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	resp, err := e.Advance(ctx, st, "maybe, what do you think?")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Stage != models.StageConfirming || !st.AwaitingConfirm {
		t.Fatalf("stage = %q awaiting=%v, want confirming/awaiting", st.Stage, st.AwaitingConfirm)
	}
	if gw.createCalls != 0 {
		t.Fatal("ambiguous reply must not trigger a booking")
	}
	if !strings.Contains(resp.Reply, "yes") {
		t.Fatalf("expected a re-ask, got %q", resp.Reply)
	}
}

func TestStaleSelectionReprompts(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, qualifiedLanguage(), nil)
	st := newState()
	ctx := context.Background()

	qualify(t, e, st)
	n := len(st.Proposal.Slots)

	resp, err := e.Advance(ctx, st, fmt.Sprintf("%d", n+3))
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Selected != nil || st.AwaitingConfirm {
		t.Fatal("out-of-range selection must not select anything")
	}
	if !strings.Contains(resp.Reply, "number") {
		t.Fatalf("expected a selection re-prompt, got %q", resp.Reply)
	}
}

func TestDeclineWithNewPreferenceReproposes(t *testing.T) {
	gw := &fakeGateway{}
	lang := qualifiedLanguage()
	lang.fields["no, friday morning works better"] = models.ExtractedFields{TimePreference: "friday morning"}
	e := newTestEngine(gw, lang, nil)
	st := newState()
	ctx := context.Background()

	qualify(t, e, st)
	if _, err := e.Advance(ctx, st, "1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	resp, err := e.Advance(ctx, st, "no, friday morning works better")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Stage != models.StageConfirming || st.AwaitingConfirm {
		t.Fatalf("stage = %q awaiting=%v, want a fresh proposal", st.Stage, st.AwaitingConfirm)
	}
	if st.User.TimePreference != "friday morning" {
		t.Fatalf("preference = %q, want friday morning", st.User.TimePreference)
	}
	// Friday after Monday March 10 is March 14; morning bucket starts 09:00.
	first := st.Proposal.Slots[0].Start
	if first.Day() != 14 || first.Hour() != 9 {
		t.Fatalf("first slot = %v, want March 14 09:00", first)
	}
	if len(resp.Slots) == 0 {
		t.Fatal("expected new slot options in the response")
	}
}

func TestSlotConflictRegeneratesProposal(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, qualifiedLanguage(), nil)
	st := newState()
	ctx := context.Background()

	qualify(t, e, st)
	if _, err := e.Advance(ctx, st, "1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	// The selected slot gets taken between proposal and confirmation.
	taken := *st.Selected
	gw.setBusy([]models.BusyInterval{{Start: taken.Start, End: taken.End}})

	resp, err := e.Advance(ctx, st, "yes")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if gw.createCalls != 0 {
		t.Fatal("conflicting slot must not be created")
	}
	if st.Stage != models.StageConfirming || st.AwaitingConfirm {
		t.Fatalf("stage = %q awaiting=%v, want fresh proposal", st.Stage, st.AwaitingConfirm)
	}
	if !strings.Contains(resp.Reply, "unavailable") {
		t.Fatalf("reply should mention the lost slot, got %q", resp.Reply)
	}
	for _, s := range st.Proposal.Slots {
		if s.Equal(taken) {
			t.Fatal("regenerated proposal still contains the taken slot")
		}
	}
}

func TestTransientBookingFailureOffersRetry(t *testing.T) {
	transient := &calendar.APIError{Op: "insert", Transient: true, Err: fmt.Errorf("503")}
	gw := &fakeGateway{createErrs: []error{transient, transient, transient}}
	e := newTestEngine(gw, qualifiedLanguage(), nil)
	st := newState()
	ctx := context.Background()

	qualify(t, e, st)
	if _, err := e.Advance(ctx, st, "1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	resp, err := e.Advance(ctx, st, "yes")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Stage != models.StageConfirming {
		t.Fatalf("stage = %q, want confirming for manual retry", st.Stage)
	}
	if gw.createCalls != 3 {
		t.Fatalf("create attempts = %d, want 3 (budget exhausted)", gw.createCalls)
	}
	if !strings.Contains(resp.Reply, "try again") {
		t.Fatalf("reply should offer a retry, got %q", resp.Reply)
	}

	// The manual retry succeeds and books exactly one event.
	if _, err := e.Advance(ctx, st, "yes"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Stage != models.StageDone {
		t.Fatalf("stage = %q, want done", st.Stage)
	}
	if len(gw.created) != 1 {
		t.Fatalf("events created = %d, want 1", len(gw.created))
	}
}

func TestAuthFailureTerminatesFlow(t *testing.T) {
	gw := &fakeGateway{createErrs: []error{&calendar.AuthError{Op: "insert", Message: "bad credentials"}}}
	e := newTestEngine(gw, qualifiedLanguage(), nil)
	st := newState()
	ctx := context.Background()

	qualify(t, e, st)
	if _, err := e.Advance(ctx, st, "1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	resp, err := e.Advance(ctx, st, "yes")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Stage != models.StageFailed {
		t.Fatalf("stage = %q, want failed", st.Stage)
	}
	if gw.createCalls != 1 {
		t.Fatalf("auth failure retried: %d create calls", gw.createCalls)
	}
	if !strings.Contains(resp.Reply, "contact the team") {
		t.Fatalf("reply = %q", resp.Reply)
	}
}

func TestEmptyDayWidensToNextDay(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Kyiv")
	// Tomorrow afternoon fully busy; the day after is free.
	gw := &fakeGateway{busy: []models.BusyInterval{{
		Start: time.Date(2025, time.March, 11, 14, 0, 0, 0, loc),
		End:   time.Date(2025, time.March, 11, 17, 0, 0, 0, loc),
	}}}
	e := newTestEngine(gw, qualifiedLanguage(), nil)
	st := newState()

	qualify(t, e, st)
	if st.Stage != models.StageConfirming {
		t.Fatalf("stage = %q, want confirming", st.Stage)
	}
	if st.WidenAttempts != 1 {
		t.Fatalf("widen attempts = %d, want 1", st.WidenAttempts)
	}
	first := st.Proposal.Slots[0].Start
	if first.Day() != 12 || first.Hour() != 14 {
		t.Fatalf("first slot = %v, want March 12 14:00", first)
	}
}

func TestNoAvailabilityAfterWideningAsksForNewPreference(t *testing.T) {
	gw := &fakeGateway{busyAll: true}
	e := newTestEngine(gw, qualifiedLanguage(), nil)
	st := newState()

	resp := qualify(t, e, st)
	if st.Stage != models.StageQualifying {
		t.Fatalf("stage = %q, want back to qualifying", st.Stage)
	}
	if st.User.TimePreference != "" {
		t.Fatalf("preference should be cleared, got %q", st.User.TimePreference)
	}
	if st.Proposal != nil {
		t.Fatal("no proposal should survive an empty scan")
	}
	if !strings.Contains(resp.Reply, "different day") {
		t.Fatalf("reply = %q", resp.Reply)
	}
}

func TestQuestionIntentDeflects(t *testing.T) {
	gw := &fakeGateway{}
	lang := qualifiedLanguage()
	lang.intents["what services do you offer?"] = intelligence.IntentQuestion
	e := newTestEngine(gw, lang, nil)
	st := newState()

	resp, err := e.Advance(context.Background(), st, "what services do you offer?")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if resp.Intent != "question" {
		t.Fatalf("intent = %q, want question", resp.Intent)
	}
	if st.Stage != models.StageQualifying {
		t.Fatalf("stage = %q, want qualifying", st.Stage)
	}
}

func TestInvalidEmailIsRepromptedNotStored(t *testing.T) {
	gw := &fakeGateway{}
	lang := qualifiedLanguage()
	lang.fields["my email is not-an-email"] = models.ExtractedFields{Email: "not-an-email"}
	e := newTestEngine(gw, lang, nil)
	st := newState()
	st.User.Name = "Denis"

	resp, err := e.Advance(context.Background(), st, "my email is not-an-email")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.User.Email != "" {
		t.Fatalf("invalid email stored: %q", st.User.Email)
	}
	if !strings.Contains(resp.Reply, "email") {
		t.Fatalf("reply = %q, want email correction prompt", resp.Reply)
	}
}

func TestExitPhraseAbandonsAnywhere(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, qualifiedLanguage(), nil)
	st := newState()
	ctx := context.Background()

	qualify(t, e, st)
	if _, err := e.Advance(ctx, st, "1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	_, err := e.Advance(ctx, st, "nevermind")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.Stage != models.StageAbandoned {
		t.Fatalf("stage = %q, want abandoned", st.Stage)
	}
	if gw.createCalls != 0 {
		t.Fatal("abandoned conversation must not book")
	}
	if st.Selected != nil || st.ConfirmToken != "" {
		t.Fatal("selection should be cleared on abandon")
	}
}
