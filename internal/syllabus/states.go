package syllabus

import "strings"

// IndianStates lists states and union territories accepted by the state
// picker, in display order.
var IndianStates = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh", "Goa",
	"Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand", "Karnataka", "Kerala",
	"Madhya Pradesh", "Maharashtra", "Manipur", "Meghalaya", "Mizoram", "Nagaland",
	"Odisha", "Punjab", "Rajasthan", "Sikkim", "Tamil Nadu", "Telangana", "Tripura",
	"Uttar Pradesh", "Uttarakhand", "West Bengal", "Andaman and Nicobar Islands",
	"Chandigarh", "Dadra and Nagar Haveli and Daman and Diu", "Delhi", "Jammu and Kashmir",
	"Ladakh", "Lakshadweep", "Puducherry",
}

// StatePageSize is how many states the picker shows per page.
const StatePageSize = 8

// IsKnownState reports whether name matches a listed state exactly.
func IsKnownState(name string) bool {
	for _, s := range IndianStates {
		if s == name {
			return true
		}
	}
	return false
}

// BestMatchState resolves free text to a listed state: exact (case-insensitive)
// match first, then unique prefix. Returns "" when nothing matches.
func BestMatchState(text string) string {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return ""
	}
	for _, s := range IndianStates {
		if strings.ToLower(s) == needle {
			return s
		}
	}
	for _, s := range IndianStates {
		if strings.HasPrefix(strings.ToLower(s), needle) {
			return s
		}
	}
	return ""
}

// StatePage returns the slice of states at the given offset plus whether
// previous/next pages exist.
func StatePage(offset int) (page []string, hasPrev, hasNext bool) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(IndianStates) {
		offset = len(IndianStates) - len(IndianStates)%StatePageSize
	}
	end := offset + StatePageSize
	if end > len(IndianStates) {
		end = len(IndianStates)
	}
	return IndianStates[offset:end], offset > 0, end < len(IndianStates)
}
