package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/checkout/types"
)

var (
	validate *validator.Validate

	hexPattern    = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
	plainDecimal  = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

func init() {
	validate = validator.New()

	// Report json names so messages match what integrators send.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name[:1]) + f.Name[1:]
		}
		return name
	})

	_ = validate.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return IsDigits(fl.Field().String())
	})
}

// IsHexString reports whether s is non-empty and made of hex digits only.
func IsHexString(s string) bool {
	return hexPattern.MatchString(s)
}

// IsPlainDecimal reports whether s is a non-negative decimal without sign,
// exponent or separators, e.g. "12" or "12.500".
func IsPlainDecimal(s string) bool {
	return plainDecimal.MatchString(s)
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	return digitsPattern.MatchString(s)
}

// ValidateRequest checks the struct-level preconditions of a request and
// folds every violation into one INVALID_REQUEST error. Field is set to the
// first offending field.
func ValidateRequest(req *types.TransactionRequest) error {
	if req == nil {
		return &types.CheckoutError{Code: types.ErrInvalidRequest, Message: "request is required"}
	}

	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &types.CheckoutError{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}

	return &types.CheckoutError{
		Code:    types.ErrInvalidRequest,
		Field:   verrs[0].Field(),
		Message: strings.Join(msgs, "; "),
	}
}

// ValidateForExecution adds the orchestration-only rule that the amount is
// strictly positive.
func ValidateForExecution(req *types.TransactionRequest) error {
	if err := ValidateRequest(req); err != nil {
		return err
	}
	if strings.TrimLeft(req.AmountMinorUnits, "0") == "" {
		return &types.CheckoutError{
			Code:    types.ErrInvalidRequest,
			Field:   "amountMinorUnits",
			Message: "amountMinorUnits must be greater than zero",
		}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "digits":
		return fmt.Sprintf("%s must contain digits only", fe.Field())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}
