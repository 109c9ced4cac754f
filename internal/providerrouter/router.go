// Package providerrouter selects which configured provider instance owns a
// given hostname, by longest-zone-suffix match with a default fallback.
package providerrouter

import "strings"

// Registration describes one provider instance as far as routing cares:
// its name (for lookup back into the provider registry) and the zone it
// is authoritative for. IsDefault marks the instance used when no zone
// matches.
type Registration struct {
	Name      string
	Zone      string
	IsDefault bool
}

// Router selects a Registration for a hostname by longest matching zone
// suffix. Ties (equal-length zones) are broken by registration order:
// the first one registered wins.
type Router struct {
	registrations []Registration
}

// New creates a Router over the given registrations, in priority order
// for tie-breaking.
func New(registrations []Registration) *Router {
	r := &Router{registrations: make([]Registration, len(registrations))}
	copy(r.registrations, registrations)
	return r
}

// Route returns the registration that should handle hostname, and true.
// If no zone matches and a default registration exists, the default is
// returned. If neither matches, ok is false.
func (r *Router) Route(hostname string) (Registration, bool) {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))

	var best Registration
	bestLen := -1
	found := false

	for _, reg := range r.registrations {
		zone := strings.ToLower(strings.TrimSuffix(reg.Zone, "."))
		if zone == "" {
			continue
		}
		if !zoneMatches(hostname, zone) {
			continue
		}
		if len(zone) > bestLen {
			bestLen = len(zone)
			best = reg
			found = true
		}
	}

	if found {
		return best, true
	}

	for _, reg := range r.registrations {
		if reg.IsDefault {
			return reg, true
		}
	}

	return Registration{}, false
}

// zoneMatches returns true if zone is hostname itself or a dot-delimited
// suffix of it ("app.example.com" matches zone "example.com" via the
// ".example.com" suffix, and matches zone "example.com" exactly too).
func zoneMatches(hostname, zone string) bool {
	if hostname == zone {
		return true
	}
	return strings.HasSuffix(hostname, "."+zone)
}
