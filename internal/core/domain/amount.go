package domain

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places accepted and displayed.
const AmountScale = 2

// maxAmountDigits bounds the integer part; nobody counts a till in quadrillions.
const maxAmountDigits = 15

var (
	ErrAmountMissing     = errors.New("amount is missing")
	ErrAmountFormat      = errors.New("amount is not a number")
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrAmountPrecision   = errors.New("amount has too many decimal places")
	ErrAmountTooLarge    = errors.New("amount is too large")
)

var digitsRe = regexp.MustCompile(`^[0-9]+$`)

// groupSeparators may split the integer part into groups of three digits.
const groupSeparators = ".,' \u00a0"

// ParseAmount parses a user-typed amount. Both "." and "," work as decimal
// separator. When both appear, the last one is the decimal separator and the
// other is grouping ("1.234,50", "1,234.50"). A separator repeated more than
// once is grouping ("1.000.000"). Spaces and apostrophes group too
// ("1 000,25", "1'000"). Groups must be three digits, so "10 20" or "1.5.5"
// are rejected instead of being read as one number.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrAmountMissing
	}
	s = strings.TrimPrefix(s, "+")
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrAmountNotPositive
	}

	intPart, frac, err := splitAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if len(frac) > AmountScale {
		return decimal.Zero, ErrAmountPrecision
	}
	if len(strings.TrimLeft(intPart, "0")) > maxAmountDigits {
		return decimal.Zero, ErrAmountTooLarge
	}

	plain := intPart
	if frac != "" {
		plain += "." + frac
	}
	d, err := decimal.NewFromString(plain)
	if err != nil {
		return decimal.Zero, ErrAmountFormat
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	return d, nil
}

// splitAmount returns the integer digits, with grouping removed, and the
// fraction digits of s.
func splitAmount(s string) (intPart, frac string, err error) {
	intPart = s
	if mark := decimalMark(s); mark != 0 {
		i := strings.LastIndexByte(s, mark)
		intPart, frac = s[:i], s[i+1:]
		if !digitsRe.MatchString(frac) {
			return "", "", ErrAmountFormat
		}
	}
	if digitsRe.MatchString(intPart) {
		return intPart, frac, nil
	}
	digits, ok := ungroup(intPart)
	if !ok {
		return "", "", ErrAmountFormat
	}
	return digits, frac, nil
}

// decimalMark returns the decimal separator of s, or 0 when s has none.
func decimalMark(s string) byte {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return ','
		}
		return '.'
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			return ','
		}
	case lastDot >= 0:
		if strings.Count(s, ".") == 1 {
			return '.'
		}
	}
	return 0
}

// ungroup strips one kind of group separator from s. The first group has one
// to three digits and every following group exactly three.
func ungroup(s string) (string, bool) {
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if i <= 0 {
		return "", false
	}
	sep, _ := utf8.DecodeRuneInString(s[i:])
	if !strings.ContainsRune(groupSeparators, sep) {
		return "", false
	}

	groups := strings.Split(s, string(sep))
	if len(groups[0]) > 3 {
		return "", false
	}
	for j, g := range groups {
		if !digitsRe.MatchString(g) || (j > 0 && len(g) != 3) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

// FormatAmount renders an amount with AmountScale decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// FormatSigned renders an amount with an explicit sign.
func FormatSigned(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(AmountScale)
	}
	return "+" + d.StringFixed(AmountScale)
}
