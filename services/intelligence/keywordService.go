package intelligence

import (
	"context"
	"regexp"
	"strings"

	"meetsync/models"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	bookingKeywords = []string{
		"book", "schedule", "meeting", "appointment", "call", "demo",
		"talk", "speak", "discuss", "reserve", "calendar", "arrange", "slot",
	}

	questionIndicators = []string{
		"what", "how", "when", "where", "who", "why", "?", "tell me", "explain",
	}

	timeWords = []string{
		"today", "tomorrow", "next week",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"morning", "afternoon", "evening",
	}
)

// KeywordService is the deterministic, offline LanguageService. It is the
// production fallback when no model API key is configured and the default
// implementation under test.
type KeywordService struct{}

func NewKeywordService() *KeywordService {
	return &KeywordService{}
}

// ExtractFields pulls an email, a time phrase, and (hint permitting) a
// bare name out of the utterance with plain pattern matching.
func (s *KeywordService) ExtractFields(_ context.Context, utterance string, hint FieldHint) (models.ExtractedFields, error) {
	var fields models.ExtractedFields
	lower := strings.ToLower(utterance)

	if email := emailRe.FindString(utterance); email != "" {
		fields.Email = email
	}

	if phrase := findTimePhrase(lower); phrase != "" {
		fields.TimePreference = phrase
	}

	// A bare short answer with no email or time content is taken as a
	// name when the conversation is waiting on one.
	if hint == HintName && fields.Email == "" && fields.TimePreference == "" {
		candidate := strings.TrimSpace(utterance)
		if candidate != "" && !strings.Contains(candidate, "@") && len(candidate) < 60 {
			fields.Name = candidate
		}
	} else if m := regexp.MustCompile(`(?i)(?:my name is|i am|i'm|this is)\s+([a-zA-Z][a-zA-Z\s'\-]{0,58})`).FindStringSubmatch(utterance); m != nil {
		fields.Name = strings.TrimSpace(m[1])
	}

	return fields, nil
}

// findTimePhrase returns the longest run of the utterance that mentions a
// known day or time-of-day word, so "tomorrow afternoon" survives whole.
func findTimePhrase(lower string) string {
	var found []string
	for _, w := range timeWords {
		if strings.Contains(lower, w) {
			found = append(found, w)
		}
	}
	return strings.Join(found, " ")
}

// ClassifyIntent routes on keywords: booking verbs win over question
// indicators; everything else defaults to a question.
func (s *KeywordService) ClassifyIntent(_ context.Context, utterance string) (Intent, error) {
	lower := strings.ToLower(utterance)

	for _, kw := range bookingKeywords {
		if strings.Contains(lower, kw) {
			return IntentBooking, nil
		}
	}
	for _, q := range questionIndicators {
		if strings.Contains(lower, q) {
			return IntentQuestion, nil
		}
	}
	return IntentQuestion, nil
}
