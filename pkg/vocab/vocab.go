// Package vocab validates extracted multi-valued fields against the archive's
// controlled vocabularies, auto-correcting near-misses and recording every
// correction, drop, and duplicate in the audit log.
package vocab

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Vocabulary names accepted by Validator.Validate.
const (
	Offices = "offices"
	Domains = "domains"
	Federal = "federal"
	Terms   = "terms"
)

// MatchThreshold is the minimum similarity score (0-100) for a fuzzy
// correction to be accepted.
const MatchThreshold = 90

// vocabularies holds the fixed controlled vocabularies. Read-only during a
// run.
var vocabularies = map[string][]string{
	Offices: {
		"Administration on Children, Youth, and Families (ACYF)",
		"Children's Bureau (CB)",
		"Family and Youth Services Bureau (FYSB)",
		"Office of Child Support Enforcement (OCSE)",
		"Office of Family Assistance (OFA)",
		"Office of Head Start (OHS)",
		"Office of Planning, Research, and Evaluation (OPRE)",
		"Office of Child Care (OCC)",
		"Office of Community Services (OCS)",
		"Office of Early Childhood Development (ECD)",
		"Office on Trafficking in Persons (OTIP)",
		"Administration for Native Americans (ANA)",
		"Office of Refugee Resettlement (ORR)",
		"N/A",
	},
	Domains: {
		"Public Records",
		"Medical Assistance",
		"Public Assistance",
		"Child Welfare Services",
	},
	Federal: {
		"21st Century Cures Act", "Adam Walsh", "BJS", "CAPEA", "CAPTA",
		"CCDBG", "CSBG", "EETC", "Evidence Act/CIPSEA", "FCIA", "FERPA",
		"FISMA", "FVPSA", "Head Start Act", "HIPAA/HITECH", "ICWA", "IDEA",
		"IRS", "LIHEAP", "Medicare Act/CMS", "MVHAA", "NCHS", "NAPA", "OASDI",
		"Privacy Act", "Refugee Education Assistance Act", "RHYA",
		"SAMHSA/SAPT", "Section 1137 of the SSA", "SNAP/2018 Farm Bill",
		"SSA Title IV-A", "SSA Title IV-B", "SSA Title IV-D", "SSA Title IV-E",
		"SSA Title XIX", "SSBG", "TVPA", "UIFSA", "US Repatriation Program",
		"N/A",
	},
	Terms: {
		"Abuse and Neglect", "Adoption and Foster Care", "Background Checks",
		"Biometric Information", "Breach Response", "Child Care",
		"Child Support", "Children and Youth Services", "Confidentiality",
		"Criminal Justice/Courts", "Cross-jurisdictional", "Data Collection",
		"Data Recipient Requirements", "Data Retention", "Databases",
		"Disability", "Domestic Violence", "Early Childhood",
		"Economic Security and Mobility", "Education – Higher Ed",
		"Education – K-12", "Education – Pre-K", "Family Services",
		"Genetic Information", "Grants & Funding", "Health Care",
		"How the Law Relates to Other Laws", "Human Trafficking",
		"Immigration & Refugee Services", "Income Verification",
		"Individual Subject Rights", "Information Security",
		"Information Technology Systems", "Medicaid/Medicare",
		"Mental Health", "Military", "Minorities",
		"Missing and Unidentified Persons",
		"Non-Compliance and Consequences for Misuse", "Nutrition Assistance",
		"Parents", "Preservation of Culture", "Program Eligibility",
		"Runaway and Homeless Youth", "Substance Abuse",
		"Taxpayer Information", "Tribal/Native American",
		"Use and Sharing – Programmatic", "Use and Sharing – Research",
	},
}

// Recorder receives audit entries for vocabulary issues.
type Recorder interface {
	Record(position, message string) error
}

// Validator checks candidate terms against the controlled vocabularies.
type Validator struct {
	log Recorder
}

// NewValidator creates a Validator recording issues through log.
func NewValidator(log Recorder) *Validator {
	return &Validator{log: log}
}

// Entries returns the entries of the named vocabulary, or nil if unknown.
func Entries(name string) []string {
	return vocabularies[name]
}

// Validate checks candidates against the named vocabulary. Exact duplicates
// are removed (one audit entry per extra occurrence), terms absent from the
// vocabulary are replaced by their closest match when the similarity score
// clears MatchThreshold (audited as a correction) or dropped otherwise
// (audited as unidentified). Empty candidates are discarded silently.
// First-seen order is preserved.
//
// For the terms vocabulary, "Child Support" requires "Economic Security and
// Mobility"; the missing term is appended and audited.
func (v *Validator) Validate(candidates []string, vocabName, position string) []string {
	vocabulary := vocabularies[vocabName]

	var result []string
	for _, term := range candidates {
		if term == "" {
			continue
		}
		if contains(result, term) {
			v.record(position, fmt.Sprintf("Duplicate values: '%s' (from %s vocabulary) included multiple times.", term, capitalize(vocabName)))
			continue
		}
		result = append(result, term)
	}

	// Replace or drop terms that are not in the vocabulary.
	checked := result[:0]
	for _, term := range result {
		if contains(vocabulary, term) {
			checked = append(checked, term)
			continue
		}

		match, score := ClosestMatch(term, vocabulary)
		if score >= MatchThreshold {
			v.record(position, fmt.Sprintf("Incorrect term: document included '%s'; replaced with '%s' (from %s vocabulary).", term, match, capitalize(vocabName)))
			checked = append(checked, match)
			continue
		}

		v.record(position, fmt.Sprintf("Unidentified term: document included '%s', which does not exist in the %s vocabulary. Revise the source document and re-run extraction, if needed.", term, capitalize(vocabName)))
		fmt.Fprintf(os.Stderr, "WARNING: %q will not be included in the XML, as it is not part of the %s vocabulary. See %s to determine if the source document should be corrected.\n", term, capitalize(vocabName), position)
	}
	result = checked

	if vocabName == Terms {
		if contains(result, "Child Support") && !contains(result, "Economic Security and Mobility") {
			result = append(result, "Economic Security and Mobility")
			v.record(position, "Missing term: when 'Child Support' is used, 'Economic Security and Mobility' must also be included.")
		}
	}

	return result
}

func (v *Validator) record(position, message string) {
	if v.log == nil {
		return
	}
	if err := v.log.Record(position, message); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: failed to record audit entry: %v\n", err)
	}
}

// ClosestMatch returns the vocabulary entry with the highest similarity score
// to term, along with the score (0-100). Ties resolve to the first
// highest-scoring entry in vocabulary order.
func ClosestMatch(term string, vocabulary []string) (string, int) {
	best := ""
	bestScore := -1
	for _, entry := range vocabulary {
		score := SimilarityScore(term, entry)
		if score > bestScore {
			best = entry
			bestScore = score
		}
	}
	if bestScore < 0 {
		return "", 0
	}
	return best, bestScore
}

// SimilarityScore computes a normalized edit-distance similarity between two
// strings on a 0-100 scale, case-insensitively. Identical strings score 100.
func SimilarityScore(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 100
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 100
	}
	dist := levenshtein([]rune(a), []rune(b))
	return (longest - dist) * 100 / longest
}

// levenshtein computes the edit distance between two rune slices using the
// two-row dynamic programming formulation.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
