// Package matching computes the business key used to detect repeat submissions
// of the same customer.
package matching

import (
	"fmt"
	"strings"
	"unicode"
)

// Strategy names accepted by New.
const (
	StrategyExact      = "exact"
	StrategyNormalized = "normalized"
)

// Normalizer maps a submitted (name, phone) pair onto its stored key.
type Normalizer interface {
	Key(name, phone string) (nameKey, phoneKey string)
	Name() string
}

// New returns the normalizer registered under strategy.
func New(strategy string) (Normalizer, error) {
	switch strategy {
	case "", StrategyExact:
		return Exact{}, nil
	case StrategyNormalized:
		return Normalized{}, nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q", strategy)
	}
}

// Exact keys records on the values exactly as submitted.
type Exact struct{}

func (Exact) Key(name, phone string) (string, string) { return name, phone }

func (Exact) Name() string { return StrategyExact }

// Normalized folds case and whitespace in names and reduces phones to their
// national ten digit form when possible.
type Normalized struct{}

func (Normalized) Key(name, phone string) (string, string) {
	return strings.ToLower(strings.Join(strings.Fields(name), " ")), normalizePhone(phone)
}

func (Normalized) Name() string { return StrategyNormalized }

func normalizePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return digits[1:]
	case digits == "":
		return strings.TrimSpace(phone)
	}
	return digits
}
