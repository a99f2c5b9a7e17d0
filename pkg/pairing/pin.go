package pairing

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizePIN formats pin as a zero-padded string of at least four digits.
func NormalizePIN(pin int) (string, error) {
	if pin < 0 {
		return "", ErrInvalidPin
	}
	return fmt.Sprintf("%04d", pin), nil
}

// ParsePIN parses user input such as "0123" or "123-45-678" into a PIN.
func ParsePIN(s string) (int, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if digits == "" {
		return 0, ErrInvalidPin
	}
	pin, err := strconv.Atoi(digits)
	if err != nil || pin < 0 {
		return 0, ErrInvalidPin
	}
	return pin, nil
}
