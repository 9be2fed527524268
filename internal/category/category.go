// Package category defines the closed set of ML-security attack categories
// (OWASP ML Security Top 10) that papers are classified into.
package category

import "strings"

// Category is an OWASP ML Security Top 10 category code, or None for papers
// outside the scope of the collection.
type Category string

const (
	ML01 Category = "ML01" // Input Manipulation
	ML02 Category = "ML02" // Data Poisoning
	ML03 Category = "ML03" // Model Inversion & Data Reconstruction
	ML04 Category = "ML04" // Model Theft & Extraction
	ML05 Category = "ML05" // Data Extraction & Leakage
	ML06 Category = "ML06" // Supply Chain
	ML07 Category = "ML07" // Transfer Attacks
	ML08 Category = "ML08" // Model Configuration & Deployment
	ML09 Category = "ML09" // Output Integrity
	ML10 Category = "ML10" // Model Manipulation & Corruption

	// None marks a paper that is not about ML security.
	None Category = "NONE"
)

// Confidence qualifies a classification result.
type Confidence string

const (
	ConfidenceHigh Confidence = "HIGH"
	ConfidenceLow  Confidence = "LOW"
)

// All returns the attack categories in order, excluding None.
func All() []Category {
	return []Category{ML01, ML02, ML03, ML04, ML05, ML06, ML07, ML08, ML09, ML10}
}

var names = map[Category]string{
	ML01: "Input Manipulation Attack",
	ML02: "Data Poisoning Attack",
	ML03: "Model Inversion Attack",
	ML04: "Membership Inference Attack",
	ML05: "Model Theft",
	ML06: "AI Supply Chain Attacks",
	ML07: "Transfer Learning Attack",
	ML08: "Model Skewing",
	ML09: "Output Integrity Attack",
	ML10: "Model Poisoning",
}

// Name returns the human-readable category name.
func (c Category) Name() string {
	if n, ok := names[c]; ok {
		return n
	}
	return string(c)
}

// Valid reports whether c is a member of the closed label set (including None).
func (c Category) Valid() bool {
	if c == None {
		return true
	}
	_, ok := names[c]
	return ok
}

// Parse extracts a category code from a raw classifier response. The response
// may carry surrounding prose or punctuation; the first recognizable code wins.
// Returns (None, false) when no valid code is present.
func Parse(raw string) (Category, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))

	if c := Category(s); c.Valid() {
		return c, true
	}

	for _, c := range All() {
		if strings.Contains(s, string(c)) {
			return c, true
		}
	}
	if strings.Contains(s, string(None)) {
		return None, true
	}

	return None, false
}
