// Package intelligence wraps the language-understanding collaborator.
// The booking engine treats it as a black box returning best-effort,
// possibly-empty structured data and never trusts it for calendar truth.
package intelligence

import (
	"context"

	"meetsync/models"
)

// Intent is the coarse routing decision for a user turn.
type Intent string

const (
	IntentBooking  Intent = "booking"
	IntentQuestion Intent = "question"
)

// FieldHint tells the extractor which field the conversation is most
// likely waiting on, so bare answers like "Denis" resolve correctly.
type FieldHint string

const (
	HintNone  FieldHint = ""
	HintName  FieldHint = "name"
	HintEmail FieldHint = "email"
	HintTime  FieldHint = "time"
)

// LanguageService extracts structured booking fields and classifies
// intent from free-form text.
type LanguageService interface {
	ExtractFields(ctx context.Context, utterance string, hint FieldHint) (models.ExtractedFields, error)
	ClassifyIntent(ctx context.Context, utterance string) (Intent, error)
}
