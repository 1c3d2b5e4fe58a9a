// Package isbn normalizes and validates ISBN-10 and ISBN-13 identifiers.
package isbn

import (
	"errors"
	"strings"
)

var ErrInvalid = errors.New("invalid isbn")

// Normalize strips hyphens and spaces and upper-cases a trailing check "x".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == '-' || r == ' ':
			continue
		case r == 'x':
			b.WriteRune('X')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether s, after normalization, is a well-formed ISBN-10 or
// ISBN-13 with a correct check digit.
func Valid(s string) bool {
	n := Normalize(s)
	switch len(n) {
	case 10:
		return valid10(n)
	case 13:
		return valid13(n)
	default:
		return false
	}
}

// ToISBN13 converts an ISBN-10 into its 978-prefixed ISBN-13 form. A valid
// ISBN-13 is returned normalized.
func ToISBN13(s string) (string, error) {
	n := Normalize(s)
	switch {
	case len(n) == 13 && valid13(n):
		return n, nil
	case len(n) == 10 && valid10(n):
		body := "978" + n[:9]
		return body + string(checkDigit13(body)), nil
	default:
		return "", ErrInvalid
	}
}

// ToISBN10 converts a 978-prefixed ISBN-13 back to ISBN-10. 979 ISBNs have
// no ISBN-10 form.
func ToISBN10(s string) (string, error) {
	n := Normalize(s)
	switch {
	case len(n) == 10 && valid10(n):
		return n, nil
	case len(n) == 13 && valid13(n) && strings.HasPrefix(n, "978"):
		body := n[3:12]
		sum := 0
		for i := 0; i < 9; i++ {
			sum += int(body[i]-'0') * (10 - i)
		}
		check := (11 - sum%11) % 11
		if check == 10 {
			return body + "X", nil
		}
		return body + string(rune('0'+check)), nil
	default:
		return "", ErrInvalid
	}
}

func valid10(n string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := n[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func valid13(n string) bool {
	for i := 0; i < 13; i++ {
		if n[i] < '0' || n[i] > '9' {
			return false
		}
	}
	return checkDigit13(n[:12]) == n[12]
}

func checkDigit13(body string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}
