package rates

import (
	"strings"

	"github.com/google/uuid"
)

// Zone is a named geographic matching rule used to select applicable
// shipping rates.
type Zone struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Countries   []string  `json:"countries,omitempty"`
	States      []string  `json:"states,omitempty"`
	Cities      []string  `json:"cities,omitempty"`
	PostalCodes []string  `json:"postalCodes,omitempty"`
	Active      bool      `json:"active"`
}

// Address is the shipping destination used for zone resolution.
type Address struct {
	Country    string `json:"country"`
	State      string `json:"state"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// MatchesAddress reports whether the address falls inside the zone. Empty
// criteria lists match everything. Postal codes are prefix patterns; when a
// zone lists any, at least one prefix must match.
func (z Zone) MatchesAddress(a Address) bool {
	if len(z.Countries) > 0 && !containsFold(z.Countries, a.Country) {
		return false
	}
	if len(z.States) > 0 && !containsFold(z.States, a.State) {
		return false
	}
	if len(z.Cities) > 0 && !containsFold(z.Cities, a.City) {
		return false
	}
	if len(z.PostalCodes) > 0 {
		for _, pattern := range z.PostalCodes {
			if pattern != "" && strings.HasPrefix(a.PostalCode, pattern) {
				return true
			}
		}
		return false
	}
	return true
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return true
		}
	}
	return false
}
