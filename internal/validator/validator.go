package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// couponCodeRe matches codes starting with a word character followed by
// word characters, spaces or hyphens. Mirrors the route pattern.
var couponCodeRe = regexp.MustCompile(`^\w[\w\s-]*$`)

// New creates a new validator instance with custom validations registered.
// This ensures consistent validation across the application and tests.
func New() *validator.Validate {
	v := validator.New()

	// Register custom "couponcode" validator for human-facing coupon codes.
	// Codes may contain letters, digits, spaces, hyphens and underscores.
	_ = v.RegisterValidation("couponcode", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return couponCodeRe.MatchString(str)
	})

	return v
}
