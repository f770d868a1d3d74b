package vocab

import (
	"fmt"
	"reflect"
	"testing"
)

// captureLog records audit entries in memory for assertions.
type captureLog struct {
	entries []string
}

func (c *captureLog) Record(position, message string) error {
	c.entries = append(c.entries, fmt.Sprintf("%s - %s", position, message))
	return nil
}

func TestValidateVerbatimTermsPassThrough(t *testing.T) {
	log := &captureLog{}
	v := NewValidator(log)

	in := []string{"Confidentiality", "Data Collection"}
	got := v.Validate(in, Terms, "Title 5")

	if !reflect.DeepEqual(got, in) {
		t.Errorf("Validate = %v, want %v", got, in)
	}
	if len(log.entries) != 0 {
		t.Errorf("expected no audit entries, got %v", log.entries)
	}
}

func TestValidateCorrectsNearMiss(t *testing.T) {
	log := &captureLog{}
	v := NewValidator(log)

	got := v.Validate([]string{"Confidentialty"}, Terms, "Title 5")

	want := []string{"Confidentiality"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}
	if len(log.entries) != 1 {
		t.Fatalf("expected exactly one correction entry, got %d: %v", len(log.entries), log.entries)
	}
}

func TestValidateDropsUnmatchedTerm(t *testing.T) {
	log := &captureLog{}
	v := NewValidator(log)

	got := v.Validate([]string{"Quantum Entanglement", "Parents"}, Terms, "Title 5")

	want := []string{"Parents"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}
	if len(log.entries) != 1 {
		t.Fatalf("expected one unidentified-term entry, got %d", len(log.entries))
	}
}

func TestValidateRemovesDuplicates(t *testing.T) {
	log := &captureLog{}
	v := NewValidator(log)

	got := v.Validate([]string{"CAPTA", "FERPA", "CAPTA", "CAPTA"}, Federal, "Article 2")

	want := []string{"CAPTA", "FERPA"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}
	// One entry per extra occurrence.
	if len(log.entries) != 2 {
		t.Errorf("expected 2 duplicate entries, got %d: %v", len(log.entries), log.entries)
	}
}

func TestValidateChildSupportCoOccurrence(t *testing.T) {
	log := &captureLog{}
	v := NewValidator(log)

	got := v.Validate([]string{"Child Support"}, Terms, "Title 5")

	want := []string{"Child Support", "Economic Security and Mobility"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}
	if len(log.entries) != 1 {
		t.Errorf("expected exactly one missing-term entry, got %d", len(log.entries))
	}
}

func TestValidateChildSupportRuleNotDuplicated(t *testing.T) {
	log := &captureLog{}
	v := NewValidator(log)

	got := v.Validate([]string{"Child Support", "Economic Security and Mobility"}, Terms, "Title 5")

	want := []string{"Child Support", "Economic Security and Mobility"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}
	if len(log.entries) != 0 {
		t.Errorf("expected no audit entries, got %v", log.entries)
	}
}

func TestValidateDiscardsEmptyStrings(t *testing.T) {
	log := &captureLog{}
	v := NewValidator(log)

	got := v.Validate([]string{"", "Parents", ""}, Terms, "Title 5")

	want := []string{"Parents"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}
	if len(log.entries) != 0 {
		t.Errorf("empty strings must be discarded silently, got %v", log.entries)
	}
}

func TestSimilarityScore(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "Confidentiality", "Confidentiality", 100},
		{"case_insensitive", "confidentiality", "CONFIDENTIALITY", 100},
		{"empty_both", "", "", 100},
		{"disjoint", "abc", "xyz", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SimilarityScore(tc.a, tc.b); got != tc.want {
				t.Errorf("SimilarityScore(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestSimilarityScoreNearMissAboveThreshold(t *testing.T) {
	// One substitution in a 15-rune word.
	got := SimilarityScore("Confidentialty", "Confidentiality")
	if got < MatchThreshold {
		t.Errorf("near-miss score %d below threshold %d", got, MatchThreshold)
	}
}

func TestClosestMatchFirstWinsOnTie(t *testing.T) {
	vocabulary := []string{"aaab", "aaac"}
	match, score := ClosestMatch("aaad", vocabulary)
	if match != "aaab" {
		t.Errorf("tie should resolve to first entry, got %q", match)
	}
	if score != 75 {
		t.Errorf("score = %d, want 75", score)
	}
}

func TestEntriesKnownVocabularies(t *testing.T) {
	for _, name := range []string{Offices, Domains, Federal, Terms} {
		if len(Entries(name)) == 0 {
			t.Errorf("vocabulary %s is empty", name)
		}
	}
	if Entries("unknown") != nil {
		t.Error("unknown vocabulary should return nil")
	}
}
