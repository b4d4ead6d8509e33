// Package normalize reconciles a sparse external field map with an
// existing coupon record into a fully-populated candidate coupon. The
// transformation is pure: values present and usable in the payload win,
// otherwise the existing record's value is kept, otherwise the
// type-specific zero default applies.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"coupon-api/internal/apierror"
	"coupon-api/internal/model"
)

// Accepted layouts for expiry_date payload values.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// Normalizer converts raw payload values into typed coupon fields.
type Normalizer struct {
	validate *validator.Validate
}

// New creates a Normalizer using the given validator for email checks.
func New(v *validator.Validate) *Normalizer {
	return &Normalizer{validate: v}
}

// Apply merges data over existing and returns the candidate coupon.
// Code and status are owned by the service and copied through
// untouched. Returns InvalidFieldFormat for unparseable decimal or
// date values; invalid emails and non-positive IDs are dropped
// silently.
func (n *Normalizer) Apply(data map[string]any, existing *model.Coupon) (*model.Coupon, error) {
	c := &model.Coupon{}
	if existing != nil {
		cp := *existing
		c = &cp
	}

	if v, ok := data["type"]; ok {
		if s, ok := asString(v); ok {
			c.DiscountType = strings.TrimSpace(s)
		}
	}

	if v, ok := data["amount"]; ok {
		d, err := asDecimal(v, "amount")
		if err != nil {
			return nil, err
		}
		c.Amount = d
	}
	if v, ok := data["minimum_amount"]; ok {
		d, err := asDecimal(v, "minimum_amount")
		if err != nil {
			return nil, err
		}
		c.MinimumAmount = d
	}

	// Zero or unparseable limit values mean "keep the existing limit",
	// not an explicit zero.
	if limit, ok := asPositiveInt(data["usage_limit"]); ok {
		c.UsageLimit = limit
	}
	if limit, ok := asPositiveInt(data["usage_limit_per_user"]); ok {
		c.UsageLimitPerUser = limit
	}
	if limit, ok := asPositiveInt(data["limit_usage_to_x_items"]); ok {
		c.LimitUsageToXItems = limit
	}

	if v, ok := data["expiry_date"]; ok {
		t, err := asDate(v)
		if err != nil {
			return nil, err
		}
		c.ExpiryDate = t
	}

	if v, ok := data["individual_use"]; ok {
		c.IndividualUse = looseTrue(v)
	}
	if v, ok := data["apply_before_tax"]; ok {
		c.ApplyBeforeTax = looseTrue(v)
	}
	if v, ok := data["free_shipping"]; ok {
		c.FreeShipping = looseTrue(v)
	}
	if v, ok := data["exclude_sale_items"]; ok {
		c.ExcludeSaleItems = looseTrue(v)
	}

	if ids, ok := asIDList(data["product_ids"]); ok {
		c.ProductIDs = ids
	}
	if ids, ok := asIDList(data["exclude_product_ids"]); ok {
		c.ExcludeProductIDs = ids
	}
	if ids, ok := asIDList(data["product_category_ids"]); ok {
		c.ProductCategoryIDs = ids
	}
	if ids, ok := asIDList(data["exclude_product_category_ids"]); ok {
		c.ExcludeProductCategoryIDs = ids
	}

	if v, ok := data["customer_emails"]; ok {
		if list, ok := v.([]any); ok {
			c.CustomerEmails = n.filterEmails(list)
		}
	}

	return c, nil
}

// filterEmails keeps only syntactically valid addresses. Invalid
// entries are dropped, not rejected.
func (n *Normalizer) filterEmails(list []any) []string {
	emails := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := asString(v)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if err := n.validate.Var(s, "email"); err != nil {
			continue
		}
		emails = append(emails, s)
	}
	return emails
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asDecimal parses a decimal payload value (JSON number or numeric
// string) and rounds it to the canonical two fractional digits.
func asDecimal(v any, field string) (decimal.Decimal, error) {
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil || d.IsNegative() {
			return decimal.Zero, apierror.InvalidFieldFormat(field)
		}
		return d.Round(2), nil
	case float64:
		d := decimal.NewFromFloat(t)
		if d.IsNegative() {
			return decimal.Zero, apierror.InvalidFieldFormat(field)
		}
		return d.Round(2), nil
	case int:
		if t < 0 {
			return decimal.Zero, apierror.InvalidFieldFormat(field)
		}
		return decimal.NewFromInt(int64(t)), nil
	default:
		return decimal.Zero, apierror.InvalidFieldFormat(field)
	}
}

// asPositiveInt extracts a positive integer from a payload value.
// Returns false for absent, zero, negative or non-numeric values so
// the caller falls back to the existing record.
func asPositiveInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		i := int(t)
		if i > 0 {
			return i, true
		}
	case int:
		if t > 0 {
			return t, true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && i > 0 {
			return i, true
		}
	}
	return 0, false
}

// asDate parses an expiry date. An explicit empty string clears the
// date; an unparseable value is a format error.
func asDate(v any) (*time.Time, error) {
	s, ok := asString(v)
	if !ok {
		return nil, apierror.InvalidFieldFormat("expiry_date")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apierror.InvalidFieldFormat("expiry_date")
}

// asIDList extracts a positive-integer ID list. Non-list input returns
// false so the caller falls back to the existing record's list.
func asIDList(v any) ([]int64, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	ids := make([]int64, 0, len(list))
	for _, e := range list {
		var id int64
		switch t := e.(type) {
		case float64:
			id = int64(t)
		case int:
			id = int64(t)
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
			if err != nil {
				continue
			}
			id = parsed
		default:
			continue
		}
		if id > 0 {
			ids = append(ids, id)
		}
	}
	return ids, true
}

// looseTrue mirrors the loose `true ==` comparison the external
// representation uses for boolean flags.
func looseTrue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1" || s == "yes"
	default:
		return false
	}
}
