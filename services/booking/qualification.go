package booking

import (
	"regexp"
	"strings"
	"time"

	"meetsync/models"
)

var (
	emailSyntaxRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	timePhraseWords = []string{
		"today", "tomorrow", "next", "week",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"morning", "afternoon", "evening",
	}
)

// applyExtractedFields merges best-effort extracted fields into the
// conversation's UserInfo. Each field is validated individually; the
// first failure is returned so the user corrects one thing at a time.
// Fields already captured are never overwritten (immutable once valid).
func applyExtractedFields(user *models.UserInfo, fields models.ExtractedFields, loc *time.Location) error {
	if fields.Name != "" && user.Name == "" {
		if err := validateName(fields.Name); err != nil {
			return err
		}
		user.Name = strings.TrimSpace(fields.Name)
	}

	if fields.Email != "" && user.Email == "" {
		if err := validateEmail(fields.Email); err != nil {
			return err
		}
		user.Email = strings.TrimSpace(fields.Email)
	}

	if fields.TimePreference != "" && user.TimePreference == "" {
		pref := strings.TrimSpace(fields.TimePreference)
		if _, err := ResolveWindow(pref, time.Now(), loc); err != nil {
			return err
		}
		user.TimePreference = pref
	}

	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return &ValidationError{Field: "name", Message: "name cannot be empty"}
	case strings.Contains(name, "@"):
		return &ValidationError{Field: "name", Message: "that looks like an email address, not a name"}
	case len(name) >= 60:
		return &ValidationError{Field: "name", Message: "name is too long"}
	case looksLikeTimePhrase(name):
		return &ValidationError{Field: "name", Message: "that looks like a time, not a name"}
	}
	return nil
}

func validateEmail(email string) error {
	if !emailSyntaxRe.MatchString(strings.TrimSpace(email)) {
		return &ValidationError{Field: "email", Message: "that doesn't look like a valid email address"}
	}
	return nil
}

func looksLikeTimePhrase(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range timePhraseWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// missingFields lists what still needs to be collected, in asking order.
func missingFields(user models.UserInfo) []string {
	var missing []string
	if user.Name == "" {
		missing = append(missing, "name")
	}
	if user.Email == "" {
		missing = append(missing, "email")
	}
	if user.TimePreference == "" {
		missing = append(missing, "preferred date/time")
	}
	return missing
}
