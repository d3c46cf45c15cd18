package validation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"searchrank/internal/models"
)

// MaxKeywordLength is the maximum keyword length in runes after normalization.
const MaxKeywordLength = 100

// Validation error sentinels.
var (
	ErrEmptyKeyword   = errors.New("keyword is empty")
	ErrKeywordTooLong = errors.New("keyword is too long")
)

// ValidationError reports why raw input was rejected. It unwraps to one of
// the sentinels above.
type ValidationError struct {
	Input  string
	Reason error
}

func (e *ValidationError) Error() string {
	return "invalid keyword: " + e.Reason.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// NormalizeKeyword trims the input, collapses internal whitespace runs to a
// single space and case-folds the result.
func NormalizeKeyword(raw string) (models.Keyword, error) {
	collapsed := strings.Join(strings.Fields(raw), " ")
	if collapsed == "" {
		return "", &ValidationError{Input: raw, Reason: ErrEmptyKeyword}
	}

	// cases.Caser is stateful and not safe for concurrent use.
	folded := cases.Fold().String(collapsed)
	if utf8.RuneCountInString(folded) > MaxKeywordLength {
		return "", &ValidationError{Input: raw, Reason: ErrKeywordTooLong}
	}

	return models.Keyword(folded), nil
}

// IsValidationError reports whether err was produced by NormalizeKeyword.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
