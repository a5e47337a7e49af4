// Package validate checks generated alt text against accessibility policy.
// Rules run in a fixed order and the first hard failure rejects the text;
// soft findings accumulate as warnings on an accepted outcome.
package validate

import (
	"fmt"
	"strings"
	"unicode"
)

// Rejection reasons, in rule order.
const (
	ReasonTooShort        = "too_short"
	ReasonTooLong         = "too_long"
	ReasonForbiddenPhrase = "forbidden_phrase"
	ReasonNotCapitalized  = "not_capitalized"
)

// Warning codes attached to accepted outcomes.
const (
	WarnCorrectedPunctuation = "auto_corrected_punctuation"
	WarnOutsidePreferredBand = "length_outside_preferred_band"
)

// Policy holds the validation thresholds and the forbidden phrase list.
// Zero-valued fields are filled from DefaultPolicy at validation time, so a
// partially specified policy composes with the defaults.
type Policy struct {
	MinLength        int      `json:"min_length" yaml:"min_length"`
	MaxLength        int      `json:"max_length" yaml:"max_length"`
	PreferredMin     int      `json:"preferred_min" yaml:"preferred_min"`
	PreferredMax     int      `json:"preferred_max" yaml:"preferred_max"`
	ForbiddenPhrases []string `json:"forbidden_phrases" yaml:"forbidden_phrases"`
}

// DefaultPolicy returns the standard accessibility policy: 10..250 hard
// bounds, 50..200 preferred band, and the stock redundant-phrase list.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:    10,
		MaxLength:    250,
		PreferredMin: 50,
		PreferredMax: 200,
		ForbiddenPhrases: []string{
			"image of",
			"picture of",
			"graphic showing",
			"photo of",
			"screenshot of",
		},
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MinLength <= 0 {
		p.MinLength = d.MinLength
	}
	if p.MaxLength <= 0 {
		p.MaxLength = d.MaxLength
	}
	if p.PreferredMin <= 0 {
		p.PreferredMin = d.PreferredMin
	}
	if p.PreferredMax <= 0 {
		p.PreferredMax = d.PreferredMax
	}
	if p.ForbiddenPhrases == nil {
		p.ForbiddenPhrases = d.ForbiddenPhrases
	}
	return p
}

// Outcome is the result of validating one alt text candidate. Text carries
// the normalized (and possibly punctuation-corrected) form; it is what gets
// written back when Accepted is true.
type Outcome struct {
	Accepted        bool     `json:"accepted"`
	Text            string   `json:"text"`
	Warnings        []string `json:"warnings,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
}

// Validate normalizes the candidate text and applies the policy rules in
// order. Validation is idempotent: running an accepted outcome's text through
// the same policy again accepts it with no punctuation warning.
func Validate(text string, policy Policy) Outcome {
	p := policy.withDefaults()
	t := normalize(text)

	runes := []rune(t)
	if len(runes) < p.MinLength {
		return Outcome{
			Text: t,
			RejectionReason: ReasonTooShort,
			Warnings: []string{fmt.Sprintf(
				"alt text too short: %d characters, minimum %d", len(runes), p.MinLength)},
		}
	}
	if len(runes) > p.MaxLength {
		return Outcome{
			Text: t,
			RejectionReason: ReasonTooLong,
			Warnings: []string{fmt.Sprintf(
				"alt text too long: %d characters, maximum %d", len(runes), p.MaxLength)},
		}
	}

	lower := strings.ToLower(t)
	for _, phrase := range p.ForbiddenPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return Outcome{
				Text:            t,
				RejectionReason: ReasonForbiddenPhrase,
				Warnings:        []string{fmt.Sprintf("alt text contains redundant phrase %q", phrase)},
			}
		}
	}

	if !unicode.IsUpper(runes[0]) && unicode.IsLetter(runes[0]) {
		return Outcome{
			Text:            t,
			RejectionReason: ReasonNotCapitalized,
			Warnings:        []string{"alt text does not start with a capital letter"},
		}
	}

	var warnings []string
	if !endsWithPunctuation(t) {
		t += "."
		runes = append(runes, '.')
		warnings = append(warnings, WarnCorrectedPunctuation)
	}
	if len(runes) < p.PreferredMin || len(runes) > p.PreferredMax {
		warnings = append(warnings, WarnOutsidePreferredBand)
	}

	return Outcome{Accepted: true, Text: t, Warnings: warnings}
}

// normalize trims the text and collapses internal whitespace runs to single
// spaces. Length rules and phrase matching both see the normalized form.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func endsWithPunctuation(t string) bool {
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
