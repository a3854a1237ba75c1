package tld

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

var (
	// ErrInvalidDomain is returned when a fully qualified name fails label rules.
	ErrInvalidDomain = errors.New("invalid domain")
)

const (
	maxLabelLen  = 63
	maxDomainLen = 253
)

// Normalize trims and lowercases a base name. Internationalized names are
// converted to their ASCII (punycode) form.
func Normalize(base string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(base))
	if name == "" {
		return "", fmt.Errorf("base domain is required: %w", ErrInvalidInput)
	}
	if !isASCII(name) {
		ascii, err := idna.Lookup.ToASCII(name)
		if err != nil {
			return "", fmt.Errorf("base domain %q: %v: %w", base, err, ErrInvalidInput)
		}
		name = ascii
	}
	return name, nil
}

// ValidateBaseName applies the registrable-label rules to a base name: 1-63
// characters of letters, digits and internal hyphens, not all digits, and no
// hyphens in positions 3 and 4 unless it is an ACE ("xn--") label.
func ValidateBaseName(name string) error {
	if err := checkLabel(name); err != nil {
		return fmt.Errorf("base domain %q: %s: %w", name, err, ErrInvalidInput)
	}
	if isNumeric(name) {
		return fmt.Errorf("base domain %q: all numeric: %w", name, ErrInvalidInput)
	}
	if len(name) >= 4 && name[2:4] == "--" && !strings.HasPrefix(name, "xn--") {
		return fmt.Errorf("base domain %q: reserved hyphen position: %w", name, ErrInvalidInput)
	}
	return nil
}

// ParseDomain validates a fully qualified name and splits it at the first
// dot into the base label and the remaining suffix (with its leading dot).
func ParseDomain(domain string) (base, suffix string, err error) {
	d := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if d == "" {
		return "", "", fmt.Errorf("empty domain: %w", ErrInvalidDomain)
	}
	if len(d) > maxDomainLen {
		return "", "", fmt.Errorf("%q: longer than %d characters: %w", domain, maxDomainLen, ErrInvalidDomain)
	}

	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return "", "", fmt.Errorf("%q: missing tld: %w", domain, ErrInvalidDomain)
	}
	for _, l := range labels {
		if err := checkLabel(l); err != nil {
			return "", "", fmt.Errorf("%q: %s: %w", domain, err, ErrInvalidDomain)
		}
	}
	last := labels[len(labels)-1]
	if len(last) < 2 || !isAlpha(last) {
		return "", "", fmt.Errorf("%q: tld must be at least two letters: %w", domain, ErrInvalidDomain)
	}

	i := strings.IndexByte(d, '.')
	return d[:i], d[i:], nil
}

// ValidateDomain reports whether domain is a well formed fully qualified name.
func ValidateDomain(domain string) error {
	_, _, err := ParseDomain(domain)
	return err
}

func checkLabel(l string) error {
	if l == "" {
		return errors.New("empty label")
	}
	if len(l) > maxLabelLen {
		return fmt.Errorf("label longer than %d characters", maxLabelLen)
	}
	if l[0] == '-' || l[len(l)-1] == '-' {
		return errors.New("label starts or ends with a hyphen")
	}
	for i := 0; i < len(l); i++ {
		c := l[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return fmt.Errorf("invalid character %q", c)
		}
	}
	return nil
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return s != ""
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
