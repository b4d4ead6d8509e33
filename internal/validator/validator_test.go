package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCouponCodeValidation(t *testing.T) {
	v := New()

	valid := []string{
		"SAVE10",
		"summer-sale",
		"BLACK FRIDAY 2026",
		"a",
		"10_percent_off",
		"1code",
	}
	for _, code := range valid {
		assert.NoError(t, v.Var(code, "couponcode"), "%q should be accepted", code)
	}

	invalid := []string{
		"",
		" leading-space",
		"-leading-hyphen",
		"save10!",
		"code/with/slash",
		"émoji☃",
	}
	for _, code := range invalid {
		assert.Error(t, v.Var(code, "couponcode"), "%q should be rejected", code)
	}
}

func TestEmailValidationAvailable(t *testing.T) {
	v := New()

	assert.NoError(t, v.Var("user@example.com", "email"))
	assert.Error(t, v.Var("not-an-email", "email"))
}
