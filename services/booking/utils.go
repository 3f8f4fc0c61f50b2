package booking

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"meetsync/models"
)

var (
	numberRe    = regexp.MustCompile(`\b(\d+)\b`)
	clockTimeRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	meridiemRe  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)

	ordinalWords = map[string]int{
		"first": 0, "1st": 0,
		"second": 1, "2nd": 1,
		"third": 2, "3rd": 2,
		"fourth": 3, "4th": 3,
		"fifth": 4, "5th": 4,
	}

	exitPhrases = []string{"bye", "goodbye", "quit", "exit", "nevermind", "never mind", "stop", "forget it"}

	affirmativeWords = []string{"yes", "yep", "yeah", "confirm", "sure", "ok", "okay", "book it", "go ahead", "sounds good"}

	declineWords = []string{"no", "nope", "cancel", "wait", "change", "different", "another"}
)

func isExitPhrase(input string) bool {
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, p := range exitPhrases {
		if lower == p || strings.HasPrefix(lower, p+" ") || strings.HasPrefix(lower, p+",") {
			return true
		}
	}
	return false
}

var wordSplitRe = regexp.MustCompile(`[^a-z]+`)

// containsTerm matches single-word terms on word boundaries (so "no"
// does not fire on "noon") and multi-word phrases as substrings.
func containsTerm(lower string, terms []string) bool {
	words := wordSplitRe.Split(lower, -1)
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}
	for _, term := range terms {
		if strings.Contains(term, " ") {
			if strings.Contains(lower, term) {
				return true
			}
		} else if wordSet[term] {
			return true
		}
	}
	return false
}

func isAffirmative(lower string) bool {
	return containsTerm(lower, affirmativeWords)
}

func isDecline(lower string) bool {
	return containsTerm(lower, declineWords)
}

// parseSelection resolves the user's reply to an index into the current
// proposal. Accepts a list number ("2"), an ordinal word ("second"), or
// a restated start time ("10:30", "3pm"). Anything that does not name a
// member of the current proposal is a StaleSelectionError.
func parseSelection(input string, proposal *models.SlotProposal) (int, error) {
	if proposal == nil || len(proposal.Slots) == 0 {
		return 0, &StaleSelectionError{Message: "no slots are currently proposed"}
	}
	lower := strings.ToLower(input)

	if m := numberRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		// Small numbers are list positions; larger ones look like times.
		if n >= 1 && n <= len(proposal.Slots) {
			return n - 1, nil
		}
	}

	for word, idx := range ordinalWords {
		if strings.Contains(lower, word) {
			if idx < len(proposal.Slots) {
				return idx, nil
			}
			return 0, &StaleSelectionError{Message: "that option is not on the current list"}
		}
	}

	if m := clockTimeRe.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if idx := matchSlotStart(proposal, hour, min); idx >= 0 {
			return idx, nil
		}
	}
	if m := meridiemRe.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if m[2] == "pm" && hour < 12 {
			hour += 12
		}
		if m[2] == "am" && hour == 12 {
			hour = 0
		}
		if idx := matchSlotStart(proposal, hour, 0); idx >= 0 {
			return idx, nil
		}
	}

	return 0, &StaleSelectionError{Message: "selection does not match any proposed slot"}
}

func matchSlotStart(proposal *models.SlotProposal, hour, min int) int {
	loc := proposal.Window.Location()
	for i, s := range proposal.Slots {
		start := s.Start.In(loc)
		if start.Hour() == hour && start.Minute() == min {
			return i
		}
	}
	return -1
}

func asValidation(err error, target **ValidationError) bool {
	return errors.As(err, target)
}
