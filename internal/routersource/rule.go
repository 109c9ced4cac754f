package routersource

import (
	"regexp"
	"strings"
)

// hostRegex matches Host(`...`) occurrences in a router rule.
var hostRegex = regexp.MustCompile("Host\\(`([^`]+)`\\)")

// hostRegexpRegex matches HostRegexp(`...`) occurrences in a router rule.
var hostRegexpRegex = regexp.MustCompile("HostRegexp\\(`([^`]+)`\\)")

// fqdnPattern is the strict hostname shape §4.4 requires.
var fqdnPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9\-\.]*[a-z0-9])?$`)

// regexClassSuffix strips a trailing regex character class such as
// "{.+}" or "{*}" from a HostRegexp base-domain candidate.
var regexClassSuffix = regexp.MustCompile(`\{[^}]*\}$`)

// extractHostnames pulls every Host(`...`) and HostRegexp(`...`) literal out
// of rule, splitting combinators ("," and "||"), validating each as a strict
// FQDN, and discarding anything templated or regex-y.
func extractHostnames(rule string) []string {
	seen := make(map[string]struct{})
	var hostnames []string

	add := func(candidate string) {
		h := strings.ToLower(strings.TrimSpace(candidate))
		if !isValidFQDN(h) {
			return
		}
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		hostnames = append(hostnames, h)
	}

	for _, match := range hostRegex.FindAllStringSubmatch(rule, -1) {
		if len(match) != 2 {
			continue
		}
		for _, part := range splitCombinators(match[1]) {
			add(part)
		}
	}

	for _, match := range hostRegexpRegex.FindAllStringSubmatch(rule, -1) {
		if len(match) != 2 {
			continue
		}
		if base, ok := baseDomainFromRegexp(match[1]); ok {
			add(base)
		}
	}

	return hostnames
}

// splitCombinators splits a Host() argument on "," and "||", the two
// separators Traefik rule authors use to list alternates inside one clause.
func splitCombinators(s string) []string {
	s = strings.ReplaceAll(s, "||", ",")
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// baseDomainFromRegexp extracts the literal base domain from a HostRegexp
// pattern by stripping a trailing regex character class, anchors, and
// unescaping "\.". The result must still satisfy the FQDN shape or the
// match is discarded.
func baseDomainFromRegexp(pattern string) (string, bool) {
	p := strings.TrimSuffix(pattern, "$")
	p = regexClassSuffix.ReplaceAllString(p, "")
	p = strings.TrimPrefix(p, "^")
	p = strings.ReplaceAll(p, "\\.", ".")
	p = strings.TrimSpace(p)
	if !isValidFQDN(p) {
		return "", false
	}
	return p, true
}

// isValidFQDN reports whether h is a strict, non-templated hostname.
func isValidFQDN(h string) bool {
	if h == "" || !strings.Contains(h, ".") {
		return false
	}
	if strings.ContainsAny(h, "{}*") {
		return false
	}
	return fqdnPattern.MatchString(h)
}
