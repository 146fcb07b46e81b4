package transaction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"colony-staff/internal/core/domain"
)

// amountPattern is a plain non-negative decimal: "150", "150.50", "150.", ".5".
// Signs, exponents, NaN and Inf are rejected. Amounts above domain.MaxAmountSpent
// are rejected after parsing.
var amountPattern = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// InvalidAmountAlert is shown when the typed amount is rejected
var InvalidAmountAlert = domain.Alert{Title: "Invalid Amount", Message: "Please enter a valid numeric amount"}

// AmountError is a rejected amount input
type AmountError struct {
	Input string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid amount %q", e.Input)
}

func (e *AmountError) Unwrap() error { return domain.ErrInvalidAmount }

// ValidateAmount parses the amount typed by the staff member
func ValidateAmount(input string) (float64, error) {
	trimmed := strings.TrimSpace(input)
	if !amountPattern.MatchString(trimmed) {
		return 0, &AmountError{Input: input}
	}

	amount, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || amount > domain.MaxAmountSpent {
		return 0, &AmountError{Input: input}
	}
	return amount, nil
}
