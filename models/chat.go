package models

// ChatRequest is the payload coming from the frontend into /api/assistant/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"` // empty on the first turn; server assigns one
	Message   string `json:"message"`
}

// SlotOption is a single proposed slot rendered as a selectable choice.
type SlotOption struct {
	Index int    `json:"index"` // 1-based, what the user replies with
	Label string `json:"label"`
	Start string `json:"start"` // RFC 3339
	End   string `json:"end"`
}

// ChatResponse is what the assistant returns to the frontend each turn.
type ChatResponse struct {
	SessionID string         `json:"session_id"`
	Stage     Stage          `json:"stage"`
	Intent    string         `json:"intent"` // "booking" or "question"
	Reply     string         `json:"reply"`
	Slots     []SlotOption   `json:"slots,omitempty"`  // only while a proposal is on the table
	Result    *BookingResult `json:"result,omitempty"` // only on done
}

// ExtractedFields is the best-effort structured output of the language
// understanding service. Empty fields mean nothing was found; the engine
// never trusts these for calendar truth.
type ExtractedFields struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	TimePreference string `json:"preferred_date"`
}
