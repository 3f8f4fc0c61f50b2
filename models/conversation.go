package models

import "time"

// Stage is the conversation cursor of the booking flow.
type Stage string

const (
	StageQualifying Stage = "qualifying"
	StageProposing  Stage = "proposing"
	StageConfirming Stage = "confirming"
	StageBooking    Stage = "booking"
	StageDone       Stage = "done"
	StageAbandoned  Stage = "abandoned"
	StageFailed     Stage = "failed"
)

// Terminal reports whether the stage closes the conversation.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageAbandoned || s == StageFailed
}

// ConversationState is the single mutable cursor of one booking flow.
// Callers own its lifecycle: the engine takes it in, mutates it, and
// hands it back; there is no ambient singleton behind Advance.
type ConversationState struct {
	SessionID string   `json:"sessionId"`
	Stage     Stage    `json:"stage"`
	User      UserInfo `json:"user"`

	// Proposal and selection, valid only while confirming.
	Proposal *SlotProposal `json:"proposal,omitempty"`
	Selected *BookingSlot  `json:"selected,omitempty"`

	// AwaitingConfirm is set once a slot summary has been presented;
	// only then can an affirmative move the flow to booking.
	AwaitingConfirm bool   `json:"awaitingConfirm"`
	ConfirmToken    string `json:"confirmToken,omitempty"`

	// WidenAttempts counts window-widening retries for the current
	// time preference.
	WidenAttempts int `json:"widenAttempts"`

	Result    *BookingResult `json:"result,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ClearSelection drops the current proposal and selection, forcing a
// fresh availability query before anything can be confirmed again.
func (c *ConversationState) ClearSelection() {
	c.Proposal = nil
	c.Selected = nil
	c.AwaitingConfirm = false
	c.ConfirmToken = ""
}
