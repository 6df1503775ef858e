package utils

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// DefaultRegion is used when a phone number has no country prefix.
func DefaultRegion() string {
	if v := strings.TrimSpace(os.Getenv("PHONE_REGION")); v != "" {
		return strings.ToUpper(v)
	}
	return "MM"
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}

// NormalizePhoneNumber returns the E.164 form of a valid number.
func NormalizePhoneNumber(phoneNumber, countryCode string) (string, error) {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// ProcessValidationErrors flattens binding errors into field -> tag.
func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// NormalizeCode upper-cases and trims a tier/benefit/branch code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// SplitCodes parses a ";" separated code list, dropping blanks and duplicates.
func SplitCodes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		part = NormalizeCode(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return UniqueSlice(out)
}

func JoinCodes(codes []string) string {
	normalized := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = NormalizeCode(c); c != "" {
			normalized = append(normalized, c)
		}
	}
	normalized = UniqueSlice(normalized)
	sort.Strings(normalized)
	return strings.Join(normalized, ";")
}

func ContainsCode(list string, code string) bool {
	code = NormalizeCode(code)
	for _, c := range SplitCodes(list) {
		if c == code {
			return true
		}
	}
	return false
}

// Percentage returns part/total*100 rounded to two places, zero when total is zero.
func Percentage(part, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(total)).Round(2)
}

// returns slice removing duplicate elements
func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

// IsBlank reports an empty or whitespace-only string.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
