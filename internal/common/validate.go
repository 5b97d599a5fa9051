package common

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

// tickerPattern accepts exchange-suffixed and index symbols (BHP.AU, BRK-B, ^GSPC).
var tickerPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9_.\-=]{0,19}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the custom "ticker" tag registered
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
			return ValidTicker(fl.Field().String())
		})
	})
	return validate
}

// ValidTicker reports whether s is a well-formed, upper-case ticker symbol.
func ValidTicker(s string) bool {
	return tickerPattern.MatchString(s)
}

// ValidateTicker returns a ValidationError for a malformed ticker.
func ValidateTicker(ticker string) error {
	if !ValidTicker(ticker) {
		return &ValidationError{Field: "ticker", Value: ticker, Reason: "malformed ticker symbol"}
	}
	return nil
}

// ValidateStruct runs struct-tag validation and converts the first failure
// into a ValidationError.
func ValidateStruct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{
			Field:  fe.Namespace(),
			Value:  fmt.Sprintf("%v", fe.Value()),
			Reason: describeTag(fe),
		}
	}
	return &ValidationError{Field: "struct", Reason: err.Error()}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "ticker":
		return "malformed ticker symbol"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
