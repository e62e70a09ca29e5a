package service

import (
	"strings"
	"unicode"

	"github.com/oncoguide-server/internal/domain"
)

// keyboard rows used to detect mashed input such as "asdfgh".
var keyboardRows = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
}

// InputValidator screens free-text request fields before they reach the
// matcher. It rejects empty, too-short and gibberish strings; it does not
// judge whether a treatment is clinically known, because an unrecognized but
// well-formed treatment name must still flow through matching and come back
// as a not-aligned verdict rather than an input error.
type InputValidator struct {
	minTreatmentLength int
}

// NewInputValidator creates an input validator with default thresholds.
func NewInputValidator() *InputValidator {
	return &InputValidator{
		minTreatmentLength: 3,
	}
}

// ValidateRequest checks the request's structural fields and screens its
// free-text fields. Returns an InvalidInputError on the first violation.
func (v *InputValidator) ValidateRequest(req *domain.ConsultationRequest) error {
	if req == nil {
		return domain.NewInvalidInputError("request", "request is required")
	}
	if err := req.Validate(); err != nil {
		return domain.NewInvalidInputError("request", err.Error())
	}
	if err := v.ValidateTreatment(req.ProposedTreatment); err != nil {
		return err
	}
	for _, symptom := range req.Symptoms {
		if err := v.validateSymptom(symptom); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTreatment screens a proposed treatment string.
func (v *InputValidator) ValidateTreatment(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.NewInvalidInputError("proposed_treatment", "proposed treatment is required")
	}
	if len(trimmed) < v.minTreatmentLength {
		return domain.NewInvalidInputError("proposed_treatment", "proposed treatment is too short to evaluate")
	}
	if isGibberish(trimmed) {
		return domain.NewInvalidInputError("proposed_treatment", "proposed treatment does not look like a treatment name")
	}
	return nil
}

func (v *InputValidator) validateSymptom(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.NewInvalidInputError("symptoms", "symptom entries must not be empty")
	}
	if isGibberish(trimmed) {
		return domain.NewInvalidInputError("symptoms", "symptom entry does not look like a clinical description")
	}
	return nil
}

// isGibberish reports whether the majority of a string's words look like
// random typing: very low character diversity or consecutive keyboard-row
// sequences.
func isGibberish(input string) bool {
	words := strings.Fields(strings.ToLower(input))
	if len(words) == 0 {
		return true
	}

	gibberishCount := 0
	for _, word := range words {
		if len(word) <= 4 {
			continue
		}
		if charDiversity(word) < 0.4 {
			gibberishCount++
		}
		if hasKeyboardMashing(word) {
			gibberishCount++
		}
	}

	return float64(gibberishCount)/float64(len(words)) > 0.5
}

// charDiversity is the ratio of distinct letters to word length. Real words
// rarely drop below 0.4; strings like "aaaaaa" or "ababab" do.
func charDiversity(word string) float64 {
	seen := make(map[rune]struct{}, len(word))
	total := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			seen[r] = struct{}{}
		}
		total++
	}
	if total == 0 {
		return 0
	}
	return float64(len(seen)) / float64(total)
}

// hasKeyboardMashing detects four-character runs of a keyboard row, in
// either direction.
func hasKeyboardMashing(word string) bool {
	for _, row := range keyboardRows {
		for i := 0; i+4 <= len(row); i++ {
			sequence := row[i : i+4]
			if strings.Contains(word, sequence) || strings.Contains(word, reverse(sequence)) {
				return true
			}
		}
	}
	return false
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
