package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"meetsync/models"
	"meetsync/utils"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var jsonObjectRe = regexp.MustCompile(`\{[^{}]*\}`)

// GeminiService implements LanguageService on top of the Gemini API,
// falling back to the keyword parser whenever the model misbehaves.
type GeminiService struct {
	model    *genai.GenerativeModel
	fallback *KeywordService
}

func NewGeminiService(ctx context.Context, apiKey string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel("models/gemini-2.0-flash-lite")
	return &GeminiService{model: model, fallback: NewKeywordService()}, nil
}

func (g *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String(), nil
}

// ExtractFields asks the model for a strict JSON object carrying the
// booking fields found in the utterance.
func (g *GeminiService) ExtractFields(ctx context.Context, utterance string, hint FieldHint) (models.ExtractedFields, error) {
	logger := utils.GetLogger()

	hintLine := ""
	switch hint {
	case HintName:
		hintLine = "The user is most likely answering a question about their NAME."
	case HintEmail:
		hintLine = "The user is most likely answering a question about their EMAIL."
	case HintTime:
		hintLine = "The user is most likely answering a question about their PREFERRED DATE/TIME."
	}

	prompt := fmt.Sprintf(`You are extracting booking information from one user message in a scheduling conversation. %s

User message: %q

Return ONLY a valid JSON object with these exact fields:
{"name": "the user's name or null", "email": "the user's email (must contain @) or null", "preferred_date": "a time preference like 'tomorrow afternoon' or null"}

Rules:
- A short word that looks like a name counts as a name.
- Anything containing @ is an email.
- Day or time-of-day words are a date preference.
Return ONLY the JSON, no other text.`, hintLine, utterance)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		logger.Warn("gemini extraction failed, using keyword fallback", zap.Error(err))
		return g.fallback.ExtractFields(ctx, utterance, hint)
	}

	match := jsonObjectRe.FindString(raw)
	if match == "" {
		logger.Warn("no JSON object in gemini response", zap.String("response", raw))
		return g.fallback.ExtractFields(ctx, utterance, hint)
	}

	var fields models.ExtractedFields
	if err := json.Unmarshal([]byte(match), &fields); err != nil {
		logger.Warn("failed to decode gemini extraction", zap.Error(err))
		return g.fallback.ExtractFields(ctx, utterance, hint)
	}

	// Models sometimes echo the literal string "null".
	if strings.EqualFold(fields.Name, "null") {
		fields.Name = ""
	}
	if strings.EqualFold(fields.Email, "null") {
		fields.Email = ""
	}
	if strings.EqualFold(fields.TimePreference, "null") {
		fields.TimePreference = ""
	}
	return fields, nil
}

// ClassifyIntent decides whether the turn is a booking instruction or a
// general question. Classification stays keyword-first: it is cheap,
// deterministic, and the model adds nothing for this binary split.
func (g *GeminiService) ClassifyIntent(ctx context.Context, utterance string) (Intent, error) {
	return g.fallback.ClassifyIntent(ctx, utterance)
}
