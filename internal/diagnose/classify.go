package diagnose

import "strings"

// DetectedError is one classified diagnostic line.
type DetectedError struct {
	Raw         string `json:"raw"`
	Signature   string `json:"signature"`
	Description string `json:"description"`
	Remedy      string `json:"remedy"`
}

// Classify maps every non-blank line to its first matching signature, or
// to "unknown". Lines are matched case-insensitively by substring. Pure.
func Classify(lines []string) []DetectedError {
	out := make([]DetectedError, 0, len(lines))
	for _, line := range lines {
		raw := strings.TrimSpace(line)
		if raw == "" {
			continue
		}
		sig := match(strings.ToLower(raw))
		out = append(out, DetectedError{
			Raw:         raw,
			Signature:   sig.ID,
			Description: sig.Description,
			Remedy:      sig.Remedy,
		})
	}
	return out
}

func match(lower string) Signature {
	for _, s := range signatures {
		for _, p := range s.Patterns {
			if strings.Contains(lower, p) {
				return s
			}
		}
	}
	return unknownSignature
}

// CountBySignature tallies detected errors per signature ID.
func CountBySignature(errs []DetectedError) map[string]int {
	counts := make(map[string]int, len(errs))
	for _, e := range errs {
		counts[e.Signature]++
	}
	return counts
}
