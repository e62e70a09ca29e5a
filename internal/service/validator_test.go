package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oncoguide-server/internal/domain"
)

func TestValidateTreatment(t *testing.T) {
	v := NewInputValidator()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"canonical name", "Chemotherapy", false},
		{"shorthand", "chemo", false},
		{"multi word", "radiation therapy", false},
		{"unlisted but plausible", "UnlistedDrugX", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too short", "ab", true},
		{"keyboard mashing", "asdfghjkl", true},
		{"repeated characters", "aaaaaaaaa", true},
		{"mixed mash", "qwerty zxcvbn", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateTreatment(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	v := NewInputValidator()

	valid := &domain.ConsultationRequest{
		CancerType:        domain.BREAST,
		Stage:             "II",
		ProposedTreatment: "Chemotherapy",
		Symptoms:          []string{"breast lump", "fatigue"},
	}
	assert.NoError(t, v.ValidateRequest(valid))

	t.Run("nil request", func(t *testing.T) {
		assert.ErrorIs(t, v.ValidateRequest(nil), domain.ErrInvalidInput)
	})

	t.Run("bad cancer type", func(t *testing.T) {
		req := *valid
		req.CancerType = "PANCREATIC"
		assert.ErrorIs(t, v.ValidateRequest(&req), domain.ErrInvalidInput)
	})

	t.Run("gibberish symptom", func(t *testing.T) {
		req := *valid
		req.Symptoms = []string{"asdfgh hjklzx"}
		err := v.ValidateRequest(&req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		var iie *domain.InvalidInputError
		assert.ErrorAs(t, err, &iie)
		assert.Equal(t, "symptoms", iie.Field)
	})
}

func TestCharDiversity(t *testing.T) {
	assert.InDelta(t, 1.0, charDiversity("abcde"), 0.001)
	assert.Less(t, charDiversity("aaaaaa"), 0.4)
	assert.Less(t, charDiversity("ababab"), 0.4)
}

func TestHasKeyboardMashing(t *testing.T) {
	assert.True(t, hasKeyboardMashing("asdfgh"))
	assert.True(t, hasKeyboardMashing("qwerty"))
	assert.True(t, hasKeyboardMashing("poiuy"))
	assert.False(t, hasKeyboardMashing("chemotherapy"))
	assert.False(t, hasKeyboardMashing("surgery"))
}
