package validate

import (
	"strings"
	"testing"
)

func TestRejectsTooShort(t *testing.T) {
	out := Validate("A short.", DefaultPolicy()) // 8 chars
	if out.Accepted {
		t.Fatal("expected rejection")
	}
	if out.RejectionReason != ReasonTooShort {
		t.Errorf("expected reason %s, got %s", ReasonTooShort, out.RejectionReason)
	}
}

func TestRejectsTooLong(t *testing.T) {
	out := Validate("A "+strings.Repeat("very ", 60)+"long description.", DefaultPolicy())
	if out.Accepted {
		t.Fatal("expected rejection")
	}
	if out.RejectionReason != ReasonTooLong {
		t.Errorf("expected reason %s, got %s", ReasonTooLong, out.RejectionReason)
	}
}

func TestRejectsForbiddenPhrase(t *testing.T) {
	out := Validate("image of a cat sitting on a mat", DefaultPolicy())
	if out.Accepted {
		t.Fatal("expected rejection")
	}
	if out.RejectionReason != ReasonForbiddenPhrase {
		t.Errorf("expected reason %s, got %s", ReasonForbiddenPhrase, out.RejectionReason)
	}
	if len(out.Warnings) == 0 || !strings.Contains(out.Warnings[0], "image of") {
		t.Errorf("expected warning naming the matched phrase, got %v", out.Warnings)
	}
}

func TestForbiddenPhraseIsCaseInsensitive(t *testing.T) {
	out := Validate("Screenshot Of the settings dialog with two tabs open", DefaultPolicy())
	if out.RejectionReason != ReasonForbiddenPhrase {
		t.Errorf("expected reason %s, got %s", ReasonForbiddenPhrase, out.RejectionReason)
	}
}

func TestRejectsLowercaseStart(t *testing.T) {
	out := Validate("a cat sitting on a mat", DefaultPolicy())
	if out.Accepted {
		t.Fatal("expected rejection")
	}
	if out.RejectionReason != ReasonNotCapitalized {
		t.Errorf("expected reason %s, got %s", ReasonNotCapitalized, out.RejectionReason)
	}
}

func TestAcceptsLeadingDigit(t *testing.T) {
	out := Validate("42 widgets stacked on a warehouse shelf.", DefaultPolicy())
	if !out.Accepted {
		t.Fatalf("capitalization only applies to letters, got rejection: %s", out.RejectionReason)
	}
}

func TestAcceptsAndCorrectsPunctuation(t *testing.T) {
	text := "A cat sitting on a windowsill overlooking a garden" // 51 chars, no period
	out := Validate(text, DefaultPolicy())
	if !out.Accepted {
		t.Fatalf("expected acceptance, got rejection: %s", out.RejectionReason)
	}
	if !strings.HasSuffix(out.Text, ".") {
		t.Errorf("expected terminal period, got %q", out.Text)
	}
	if len(out.Warnings) != 1 || out.Warnings[0] != WarnCorrectedPunctuation {
		t.Errorf("expected only %s warning, got %v", WarnCorrectedPunctuation, out.Warnings)
	}
}

func TestValidationIsIdempotent(t *testing.T) {
	out := Validate("A cat sitting on a windowsill overlooking a garden", DefaultPolicy())
	if !out.Accepted {
		t.Fatal("expected acceptance")
	}

	again := Validate(out.Text, DefaultPolicy())
	if !again.Accepted {
		t.Fatalf("revalidation rejected: %s", again.RejectionReason)
	}
	if again.Text != out.Text {
		t.Errorf("revalidation changed text: %q -> %q", out.Text, again.Text)
	}
	if len(again.Warnings) != 0 {
		t.Errorf("revalidation produced warnings: %v", again.Warnings)
	}
}

func TestNormalizesWhitespace(t *testing.T) {
	out := Validate("  A  diagram of the   pipeline stages with labeled arrows.  ", DefaultPolicy())
	if !out.Accepted {
		t.Fatalf("expected acceptance, got %s", out.RejectionReason)
	}
	if strings.Contains(out.Text, "  ") || out.Text != strings.TrimSpace(out.Text) {
		t.Errorf("whitespace not normalized: %q", out.Text)
	}
}

func TestWarnsOutsidePreferredBand(t *testing.T) {
	out := Validate("A red warning icon.", DefaultPolicy()) // 19 chars, under preferred 50
	if !out.Accepted {
		t.Fatalf("expected acceptance, got %s", out.RejectionReason)
	}
	found := false
	for _, w := range out.Warnings {
		if w == WarnOutsidePreferredBand {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s warning, got %v", WarnOutsidePreferredBand, out.Warnings)
	}
}

func TestPartialPolicyFallsBackToDefaults(t *testing.T) {
	out := Validate("Tiny.", Policy{MaxLength: 100})
	if out.RejectionReason != ReasonTooShort {
		t.Errorf("expected default minimum to apply, got %s", out.RejectionReason)
	}
}
