// Package tld turns a base name and a list of top-level domains into fully
// qualified domain names and back. Matching is done against a closed list of
// known suffixes held by a Registry; it is not a public suffix parser.
package tld

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidInput is returned for an empty or malformed base name or TLD.
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultTLDs is the list checked when a request names none.
var DefaultTLDs = []string{".com", ".net", ".org", ".ai", ".dev", ".io", ".co"}

// ExtendedTLDs is a wider curated list, including multi-label suffixes.
var ExtendedTLDs = []string{
	".com", ".net", ".org", ".ai", ".dev", ".io", ".co",
	".app", ".me", ".tv", ".gg", ".so", ".to", ".is", ".sh", ".ly", ".xyz",
	".de", ".uk", ".co.uk", ".es", ".fr", ".it", ".nl", ".ch", ".at", ".au", ".com.au",
}

// Registry is an immutable set of known TLD suffixes.
type Registry struct {
	tlds    []string
	longest []string // longest first
}

// NewRegistry builds a registry from tlds. Entries are lowercased and given a
// leading dot; invalid and duplicate entries are dropped. An empty list
// yields a registry over DefaultTLDs.
func NewRegistry(tlds []string) *Registry {
	clean := normalizeList(tlds)
	if len(clean) == 0 {
		clean = normalizeList(DefaultTLDs)
	}

	longest := make([]string, len(clean))
	copy(longest, clean)
	sort.SliceStable(longest, func(i, j int) bool {
		return len(longest[i]) > len(longest[j])
	})

	return &Registry{tlds: clean, longest: longest}
}

// Default returns a registry over DefaultTLDs.
func Default() *Registry {
	return NewRegistry(DefaultTLDs)
}

// Extended returns a registry over ExtendedTLDs.
func Extended() *Registry {
	return NewRegistry(ExtendedTLDs)
}

// TLDs returns a copy of the registry's suffixes in insertion order.
func (r *Registry) TLDs() []string {
	out := make([]string, len(r.tlds))
	copy(out, r.tlds)
	return out
}

// ConstructDomains joins base with each TLD. When tlds is empty the
// registry's own list is used. Duplicate TLDs produce one domain.
func (r *Registry) ConstructDomains(base string, tlds []string) ([]string, error) {
	name, err := Normalize(base)
	if err != nil {
		return nil, err
	}

	suffixes := r.tlds
	if len(tlds) > 0 {
		suffixes = make([]string, 0, len(tlds))
		seen := make(map[string]bool, len(tlds))
		for _, raw := range tlds {
			t, err := NormalizeTLD(raw)
			if err != nil {
				return nil, err
			}
			if seen[t] {
				continue
			}
			seen[t] = true
			suffixes = append(suffixes, t)
		}
	}

	domains := make([]string, len(suffixes))
	for i, t := range suffixes {
		domains[i] = name + t
	}
	return domains, nil
}

// ExtractTLD returns the longest known suffix of domain.
func (r *Registry) ExtractTLD(domain string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(domain))
	for _, t := range r.longest {
		if len(d) > len(t) && strings.HasSuffix(d, t) {
			return t, true
		}
	}
	return "", false
}

// ExtractBaseDomain returns domain without its longest known suffix.
func (r *Registry) ExtractBaseDomain(domain string) (string, bool) {
	t, ok := r.ExtractTLD(domain)
	if !ok {
		return "", false
	}
	d := strings.ToLower(strings.TrimSpace(domain))
	return d[:len(d)-len(t)], true
}

// NormalizeTLD lowercases t, adds the leading dot and checks its labels.
func NormalizeTLD(t string) (string, error) {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.TrimPrefix(t, ".")
	if t == "" {
		return "", fmt.Errorf("empty tld: %w", ErrInvalidInput)
	}
	labels := strings.Split(t, ".")
	for _, l := range labels {
		if err := checkLabel(l); err != nil {
			return "", fmt.Errorf("tld %q: %w", t, ErrInvalidInput)
		}
	}
	if !isAlpha(labels[len(labels)-1]) || len(labels[len(labels)-1]) < 2 {
		return "", fmt.Errorf("tld %q: %w", t, ErrInvalidInput)
	}
	return "." + t, nil
}

func normalizeList(tlds []string) []string {
	out := make([]string, 0, len(tlds))
	seen := make(map[string]bool, len(tlds))
	for _, raw := range tlds {
		t, err := NormalizeTLD(raw)
		if err != nil || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
