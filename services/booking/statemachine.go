package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"meetsync/models"
	"meetsync/services/calendar"
	"meetsync/services/intelligence"
	"meetsync/utils"

	"go.uber.org/zap"
)

// widenBudget caps how many extra days are scanned when the preferred
// day has no free slots.
const widenBudget = 3

// Archiver persists a trace of a completed booking. Best effort: a
// failing archiver never fails the booking itself.
type Archiver interface {
	Archive(ctx context.Context, record models.BookingRecord) error
}

// Engine is the conversation controller driving qualification, proposal,
// confirmation and booking. It owns no session storage: the caller loads
// the ConversationState, passes it in, and saves what comes back.
type Engine struct {
	gateway      calendar.Gateway
	language     intelligence.LanguageService
	archiver     Archiver
	tx           *Transaction
	slotDuration time.Duration
	loc          *time.Location
	now          func() time.Time
}

func NewEngine(gateway calendar.Gateway, language intelligence.LanguageService, archiver Archiver, slotDuration time.Duration, loc *time.Location) *Engine {
	if slotDuration <= 0 {
		slotDuration = 30 * time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		gateway:      gateway,
		language:     language,
		archiver:     archiver,
		tx:           NewTransaction(gateway),
		slotDuration: slotDuration,
		loc:          loc,
		now:          time.Now,
	}
}

// Advance processes one user turn and returns the assistant's reply plus
// the mutated state. Ordering is strict: no booking before an explicit
// confirmation, no confirmation before real availability is known.
func (e *Engine) Advance(ctx context.Context, st *models.ConversationState, input string) (*models.ChatResponse, error) {
	logger := utils.GetLogger()
	input = strings.TrimSpace(input)

	if st.Stage == "" {
		st.Stage = models.StageQualifying
	}
	st.UpdatedAt = e.now()

	if st.Stage.Terminal() {
		return e.respond(st, intelligence.IntentBooking,
			"This conversation is finished. Start a new session to book another meeting."), nil
	}

	if isExitPhrase(input) {
		st.Stage = models.StageAbandoned
		st.ClearSelection()
		logger.Info("conversation abandoned", zap.String("sessionID", st.SessionID))
		return e.respond(st, intelligence.IntentBooking,
			"No problem, I've closed this booking. Come back any time!"), nil
	}

	switch st.Stage {
	case models.StageQualifying, models.StageProposing:
		return e.advanceQualifying(ctx, st, input)
	case models.StageConfirming:
		return e.advanceConfirming(ctx, st, input)
	default:
		return nil, fmt.Errorf("conversation %s is in unexpected stage %q", st.SessionID, st.Stage)
	}
}

// advanceQualifying collects and validates the three qualification
// fields, then moves on to proposing slots once all are present.
func (e *Engine) advanceQualifying(ctx context.Context, st *models.ConversationState, input string) (*models.ChatResponse, error) {
	logger := utils.GetLogger()

	// Intent routing happens only at the qualification boundary and only
	// before any booking data has been collected. Question answering is
	// delegated upstream; here we tag the turn and invite a booking.
	if !hasPartialQualification(st) {
		intent, err := e.language.ClassifyIntent(ctx, input)
		if err != nil {
			logger.Warn("intent classification failed, assuming booking", zap.Error(err))
			intent = intelligence.IntentBooking
		}
		if intent == intelligence.IntentQuestion {
			return e.respond(st, intelligence.IntentQuestion,
				"Happy to help with questions! I can also book a meeting with our team — just share your name, email and a time that works for you."), nil
		}
	}

	fields, err := e.language.ExtractFields(ctx, input, e.fieldHint(st.User))
	if err != nil {
		logger.Warn("field extraction failed", zap.Error(err))
		fields = models.ExtractedFields{}
	}

	if err := applyExtractedFields(&st.User, fields, e.loc); err != nil {
		var ve *ValidationError
		if asValidation(err, &ve) {
			return e.respond(st, intelligence.IntentBooking, correctionPrompt(ve)), nil
		}
		return nil, err
	}

	if !st.User.Complete() {
		return e.respond(st, intelligence.IntentBooking, qualificationPrompt(st.User)), nil
	}

	return e.propose(ctx, st)
}

// propose asks the calendar for the preference window and presents 3-5
// slots, widening day by day within the budget before giving up on the
// stated preference. An empty result is never shown as availability.
func (e *Engine) propose(ctx context.Context, st *models.ConversationState) (*models.ChatResponse, error) {
	logger := utils.GetLogger()
	st.Stage = models.StageProposing
	st.ClearSelection()

	now := e.now()
	window, err := ResolveWindow(st.User.TimePreference, now, e.loc)
	if err != nil {
		st.User.TimePreference = ""
		st.Stage = models.StageQualifying
		return e.respond(st, intelligence.IntentBooking,
			"I couldn't work out that time. Could you give me something like \"tomorrow afternoon\" or \"friday morning\"?"), nil
	}

	var proposal *models.SlotProposal
	for attempt := 0; attempt <= widenBudget; attempt++ {
		proposal, err = e.buildProposal(ctx, window, now)
		if err == nil {
			break
		}
		if IsEmptyAvailability(err) {
			st.WidenAttempts++
			window = widenWindow(window)
			continue
		}
		return e.gatewayTrouble(st, err)
	}

	if proposal == nil {
		// Preferred day and the following days are full: ask for a
		// different preference instead of pretending.
		pref := st.User.TimePreference
		st.User.TimePreference = ""
		st.Stage = models.StageQualifying
		logger.Info("no availability after widening",
			zap.String("sessionID", st.SessionID), zap.String("preference", pref))
		return e.respond(st, intelligence.IntentBooking,
			fmt.Sprintf("I'm sorry, nothing is free around %q or the next few days. Could you suggest a different day or time?", pref)), nil
	}

	st.Proposal = proposal
	st.Stage = models.StageConfirming
	st.AwaitingConfirm = false

	reply := "Great! Here are the available times:\n" + renderSlots(proposal) +
		"\nWhich one works best for you? Just tell me the number."
	return e.respond(st, intelligence.IntentBooking, reply), nil
}

// advanceConfirming handles slot selection and the explicit yes/no
// confirmation gate in front of the booking transaction.
func (e *Engine) advanceConfirming(ctx context.Context, st *models.ConversationState, input string) (*models.ChatResponse, error) {
	lower := strings.ToLower(input)

	if st.AwaitingConfirm {
		switch {
		case isAffirmative(lower):
			return e.book(ctx, st)
		case isDecline(lower):
			st.ClearSelection()
			if pref := e.extractNewPreference(ctx, input); pref != "" {
				st.User.TimePreference = pref
			}
			return e.propose(ctx, st)
		default:
			return e.respond(st, intelligence.IntentBooking,
				"I didn't quite catch that. Should I book this meeting? Please say \"yes\" to confirm or \"no\" to pick a different time."), nil
		}
	}

	// Waiting on a slot selection.
	if isDecline(lower) {
		if pref := e.extractNewPreference(ctx, input); pref != "" {
			st.User.TimePreference = pref
		}
		return e.propose(ctx, st)
	}

	idx, err := parseSelection(input, st.Proposal)
	if err != nil {
		return e.respond(st, intelligence.IntentBooking,
			"I didn't catch which time you'd like — please pick one of the listed options by number."), nil
	}

	slot := st.Proposal.Slots[idx]
	st.Selected = &slot
	st.AwaitingConfirm = true
	st.ConfirmToken = ConfirmationToken(st.User.Email, slot)

	reply := fmt.Sprintf(
		"Perfect! Let me confirm the details:\n\nDate: %s\nTime: %s - %s\nName: %s\nEmail: %s\n\nShould I go ahead and book this meeting? (Yes/No)",
		slot.Start.Format("Monday, January 2"),
		slot.Start.Format("15:04"),
		slot.End.Format("15:04"),
		st.User.Name,
		st.User.Email,
	)
	return e.respond(st, intelligence.IntentBooking, reply), nil
}

// book invokes the booking transaction exactly once per confirmation
// event and classifies the outcome.
func (e *Engine) book(ctx context.Context, st *models.ConversationState) (*models.ChatResponse, error) {
	logger := utils.GetLogger()

	if st.Selected == nil || st.ConfirmToken == "" {
		// Confirmation without a selection should be unreachable.
		st.ClearSelection()
		return e.propose(ctx, st)
	}

	st.Stage = models.StageBooking
	req := models.BookingRequest{User: st.User, Slot: *st.Selected, Token: st.ConfirmToken}

	result, err := e.tx.Commit(ctx, req)
	if err != nil {
		return e.classifyBookingFailure(ctx, st, err)
	}

	st.Result = result
	st.Stage = models.StageDone
	e.archive(ctx, st, req)

	reply := fmt.Sprintf(
		"All set! Your meeting is booked for %s, %s - %s.\nYou'll receive a calendar invitation at %s with the meeting link. Looking forward to speaking with you!",
		req.Slot.Start.Format("Monday, January 2"),
		req.Slot.Start.Format("15:04"),
		req.Slot.End.Format("15:04"),
		st.User.Email,
	)
	logger.Info("booking flow completed",
		zap.String("sessionID", st.SessionID),
		zap.String("eventID", result.EventID))
	return e.respond(st, intelligence.IntentBooking, reply), nil
}

func (e *Engine) classifyBookingFailure(ctx context.Context, st *models.ConversationState, err error) (*models.ChatResponse, error) {
	logger := utils.GetLogger()

	switch {
	case IsSlotConflict(err):
		// Someone else took the slot between proposal and commit.
		logger.Info("slot conflict at commit", zap.String("sessionID", st.SessionID))
		st.ClearSelection()
		resp, perr := e.propose(ctx, st)
		if perr != nil {
			return nil, perr
		}
		if st.Stage == models.StageConfirming {
			resp.Reply = "Ah, that time just became unavailable. " + resp.Reply
		}
		return resp, nil

	case calendar.IsAuth(err):
		logger.Error("calendar auth failure, terminating flow", zap.Error(err))
		st.Stage = models.StageFailed
		return e.respond(st, intelligence.IntentBooking,
			"I'm unable to reach the calendar right now. Please contact the team directly and we'll get you scheduled."), nil

	case calendar.IsTransient(err):
		// Retry budget exhausted inside the transaction; offer a manual
		// retry. The idempotency token protects against a double create.
		logger.Warn("transient booking failure after retries", zap.Error(err))
		st.Stage = models.StageConfirming
		return e.respond(st, intelligence.IntentBooking,
			"Something went wrong while booking — the calendar service didn't respond. Say \"yes\" to try again, or \"no\" to pick another time."), nil

	default:
		logger.Error("unrecoverable booking failure", zap.Error(err))
		st.Stage = models.StageFailed
		return e.respond(st, intelligence.IntentBooking,
			"I'm sorry, I couldn't complete the booking. Please contact the team directly and we'll sort it out."), nil
	}
}

// gatewayTrouble handles availability-query failures during proposing.
func (e *Engine) gatewayTrouble(st *models.ConversationState, err error) (*models.ChatResponse, error) {
	logger := utils.GetLogger()

	if calendar.IsAuth(err) {
		logger.Error("calendar auth failure during availability query", zap.Error(err))
		st.Stage = models.StageFailed
		return e.respond(st, intelligence.IntentBooking,
			"I'm unable to reach the calendar right now. Please contact the team directly and we'll get you scheduled."), nil
	}

	logger.Warn("availability query failed after retries", zap.Error(err))
	st.Stage = models.StageQualifying
	return e.respond(st, intelligence.IntentBooking,
		"I'm having trouble checking the calendar right now. Could you try again in a moment?"), nil
}

// archive hands the completed booking to the background archiver.
func (e *Engine) archive(ctx context.Context, st *models.ConversationState, req models.BookingRequest) {
	if e.archiver == nil || st.Result == nil {
		return
	}
	record := models.BookingRecord{
		SessionID:     st.SessionID,
		EventID:       st.Result.EventID,
		Link:          st.Result.Link,
		AttendeeName:  req.User.Name,
		AttendeeEmail: req.User.Email,
		Start:         req.Slot.Start,
		End:           req.Slot.End,
		Timezone:      req.Slot.Timezone,
		CreatedAt:     e.now(),
	}
	if err := e.archiver.Archive(ctx, record); err != nil {
		utils.GetLogger().Warn("failed to archive booking record", zap.Error(err))
	}
}

// extractNewPreference checks a decline message for a fresh time phrase
// ("no, make it friday morning") so the next proposal honors it.
func (e *Engine) extractNewPreference(ctx context.Context, input string) string {
	fields, err := e.language.ExtractFields(ctx, input, intelligence.HintTime)
	if err != nil || fields.TimePreference == "" {
		return ""
	}
	if _, err := ResolveWindow(fields.TimePreference, e.now(), e.loc); err != nil {
		return ""
	}
	return fields.TimePreference
}

// fieldHint mirrors the asking order: the extractor is told which field
// the last prompt most likely asked about.
func (e *Engine) fieldHint(user models.UserInfo) intelligence.FieldHint {
	switch {
	case user.Name == "" && user.Email != "" && user.TimePreference != "":
		return intelligence.HintName
	case user.Email == "" && user.TimePreference != "":
		return intelligence.HintEmail
	case user.TimePreference == "":
		return intelligence.HintTime
	default:
		return intelligence.HintNone
	}
}

func (e *Engine) respond(st *models.ConversationState, intent intelligence.Intent, reply string) *models.ChatResponse {
	resp := &models.ChatResponse{
		SessionID: st.SessionID,
		Stage:     st.Stage,
		Intent:    string(intent),
		Reply:     reply,
		Result:    st.Result,
	}
	if st.Stage == models.StageConfirming && !st.AwaitingConfirm && st.Proposal != nil {
		for i, s := range st.Proposal.Slots {
			resp.Slots = append(resp.Slots, models.SlotOption{
				Index: i + 1,
				Label: s.String(),
				Start: s.Start.Format(time.RFC3339),
				End:   s.End.Format(time.RFC3339),
			})
		}
	}
	return resp
}

func hasPartialQualification(st *models.ConversationState) bool {
	return st.User.Name != "" || st.User.Email != "" || st.User.TimePreference != "" || st.Proposal != nil
}

func qualificationPrompt(user models.UserInfo) string {
	missing := missingFields(user)
	if len(missing) == 3 {
		return "I'd love to set that up! Could you share your name, email, and a time that works for you?"
	}
	return fmt.Sprintf("Thanks! Could you also share your %s?", strings.Join(missing, " and "))
}

func correctionPrompt(ve *ValidationError) string {
	switch ve.Field {
	case "name":
		return fmt.Sprintf("Hmm, %s. What name should I put on the invite?", ve.Message)
	case "email":
		return fmt.Sprintf("Hmm, %s. Could you double-check your email address?", ve.Message)
	default:
		return fmt.Sprintf("Hmm, %s. Could you give me something like \"tomorrow afternoon\"?", ve.Message)
	}
}

func renderSlots(p *models.SlotProposal) string {
	var sb strings.Builder
	for i, s := range p.Slots {
		fmt.Fprintf(&sb, "%d. %s - %s (%s)\n",
			i+1,
			s.Start.Format("Mon Jan 2 15:04"),
			s.End.Format("15:04"),
			s.Timezone)
	}
	return sb.String()
}
