// Package validation holds the input validators shared by the console, the API
// and the config loader. Validators never panic; the Validate* forms return an
// error describing the rejection and the Is* forms return a bool.
package validation

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

// IPKind classifies a candidate list entry.
type IPKind int

const (
	KindInvalid IPKind = iota
	KindIPv4
	KindIPv6
	KindLocalhost
)

func (k IPKind) String() string {
	switch k {
	case KindIPv4:
		return "ipv4"
	case KindIPv6:
		return "ipv6"
	case KindLocalhost:
		return "localhost"
	}
	return "invalid"
}

// Localhost is the only hostname accepted in IP lists.
const Localhost = "localhost"

// Dotted quad, each octet 0-255, up to three digits so "010" passes.
var ipv4Regex = regexp.MustCompile(`^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)

// ClassifyIP reports what kind of list entry s is.
// IPv6 accepts both the fully expanded 8-group form and "::" compression;
// zoned addresses (fe80::1%eth0) are rejected.
func ClassifyIP(s string) IPKind {
	switch {
	case s == "":
		return KindInvalid
	case s == Localhost:
		return KindLocalhost
	case ipv4Regex.MatchString(s):
		return KindIPv4
	case strings.Contains(s, ":"):
		addr, err := netip.ParseAddr(s)
		if err != nil || !addr.Is6() || addr.Zone() != "" {
			return KindInvalid
		}
		return KindIPv6
	}
	return KindInvalid
}

// IsValidIP reports whether s may be stored in a whitelist or blacklist.
func IsValidIP(s string) bool {
	return ClassifyIP(s) != KindInvalid
}

// ValidateIP returns an error when s is not an acceptable list entry.
func ValidateIP(s string) error {
	if s == "" {
		return fmt.Errorf("IP address cannot be empty")
	}
	if !IsValidIP(s) {
		return fmt.Errorf("invalid IP address: %s", s)
	}
	return nil
}

// ValidateAllowlist checks if a value is in an allowed list
func ValidateAllowlist(value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid value %q (must be one of: %s)", value, strings.Join(allowed, ", "))
}

// ParseNonNegativeInt parses form input such as requests-per-minute.
// Surrounding whitespace is ignored; anything that is not a base-10
// integer >= 0 is rejected.
func ParseNonNegativeInt(field, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%s cannot be empty", field)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %q", field, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s cannot be negative: %d", field, n)
	}
	return n, nil
}
