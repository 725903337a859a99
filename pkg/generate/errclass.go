package generate

import "strings"

// Category buckets a failure diagnostic for user-facing remediation.
type Category string

const (
	CategoryBilling         Category = "billing"
	CategorySafety          Category = "safety"
	CategoryQuota           Category = "quota"
	CategoryNetwork         Category = "network"
	CategoryInvalidArgument Category = "invalid-argument"
	CategoryNotFound        Category = "notfound"
	CategoryUnknown         Category = "unknown"
)

// Classify pattern-matches a diagnostic string into a Category. Matching is
// case-insensitive and intentionally loose: diagnostics arrive verbatim from
// the remote service and have no stable shape.
func Classify(diagnostic string) Category {
	d := strings.ToLower(diagnostic)
	switch {
	case contains(d, "billing", "billed users", "payment"):
		return CategoryBilling
	case contains(d, "blocked", "safety", "prohibited"):
		return CategorySafety
	case contains(d, "quota", "resource_exhausted", "resource exhausted", "rate limit", "429"):
		return CategoryQuota
	case contains(d, "not found", "notfound", "does not exist", "no such"):
		return CategoryNotFound
	case contains(d, "network", "connection", "timeout", "unreachable", "dial", "eof"):
		return CategoryNetwork
	case contains(d, "invalid argument", "invalid_argument", "invalid request", "400"):
		return CategoryInvalidArgument
	}
	return CategoryUnknown
}

// NeedsCredentialReselection reports whether the diagnostic indicates the
// "entity not found" class of failure that is remediated by picking different
// access credentials rather than by retrying.
func NeedsCredentialReselection(diagnostic string) bool {
	return Classify(diagnostic) == CategoryNotFound
}

// Hints returns remediation suggestions for a category. The list is advisory
// text surfaced next to the retry affordance.
func (c Category) Hints() []string {
	switch c {
	case CategoryBilling:
		return []string{
			"Check that billing is enabled for the project",
			"Verify the account has an active payment method",
		}
	case CategorySafety:
		return []string{
			"Rephrase the prompt to avoid content that may be blocked",
		}
	case CategoryQuota:
		return []string{
			"Wait for the quota window to reset before retrying",
			"Request a higher quota for the project",
		}
	case CategoryNetwork:
		return []string{
			"Check the network connection and retry",
		}
	case CategoryInvalidArgument:
		return []string{
			"Verify the configured model name and request options",
		}
	case CategoryNotFound:
		return []string{
			"Select a different API key or project with access to this model",
		}
	}
	return []string{"Retry the generation"}
}

func contains(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
