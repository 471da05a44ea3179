package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator. The request DTOs lean on built-in tags
// (e164, numeric, len); nothing custom is registered today.
func New() *validatorv10.Validate {
	return validatorv10.New()
}
