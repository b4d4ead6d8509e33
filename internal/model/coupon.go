package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon statuses. Only published coupons are visible through the API;
// trashed coupons keep their data but free their code for reuse.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
	StatusTrash   = "trash"
)

// Coupon is the canonical coupon record as the service layer sees it.
// The repository converts to/from the storage representation (yes/no
// booleans, comma-delimited ID lists) at its own boundary.
type Coupon struct {
	ID                        int64
	Code                      string
	Status                    string
	DiscountType              string
	Amount                    decimal.Decimal
	IndividualUse             bool
	ProductIDs                []int64
	ExcludeProductIDs         []int64
	UsageLimit                int // 0 = unlimited
	UsageLimitPerUser         int // 0 = unlimited
	LimitUsageToXItems        int
	UsageCount                int
	ExpiryDate                *time.Time // nil = never expires
	ApplyBeforeTax            bool
	FreeShipping              bool
	ProductCategoryIDs        []int64
	ExcludeProductCategoryIDs []int64
	ExcludeSaleItems          bool
	MinimumAmount             decimal.Decimal
	CustomerEmails            []string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// CouponResponse is the shaped external representation of a coupon.
// Decimal fields carry exactly two fractional digits and unlimited
// usage limits are surfaced as null.
type CouponResponse struct {
	ID                        int64    `json:"id"`
	Code                      string   `json:"code"`
	Type                      string   `json:"type"`
	CreatedAt                 string   `json:"created_at"`
	UpdatedAt                 string   `json:"updated_at"`
	Amount                    string   `json:"amount"`
	IndividualUse             bool     `json:"individual_use"`
	ProductIDs                []int64  `json:"product_ids"`
	ExcludeProductIDs         []int64  `json:"exclude_product_ids"`
	UsageLimit                *int     `json:"usage_limit"`
	UsageLimitPerUser         *int     `json:"usage_limit_per_user"`
	LimitUsageToXItems        int      `json:"limit_usage_to_x_items"`
	UsageCount                int      `json:"usage_count"`
	ExpiryDate                *string  `json:"expiry_date"`
	ApplyBeforeTax            bool     `json:"apply_before_tax"`
	EnableFreeShipping        bool     `json:"enable_free_shipping"`
	ProductCategoryIDs        []int64  `json:"product_category_ids"`
	ExcludeProductCategoryIDs []int64  `json:"exclude_product_category_ids"`
	ExcludeSaleItems          bool     `json:"exclude_sale_items"`
	MinimumAmount             string   `json:"minimum_amount"`
	CustomerEmails            []string `json:"customer_emails"`
}

// CouponEnvelope wraps a single coupon response.
type CouponEnvelope struct {
	Coupon *CouponResponse `json:"coupon"`
}

// CouponsEnvelope wraps a coupon list response.
type CouponsEnvelope struct {
	Coupons []*CouponResponse `json:"coupons"`
}

// CountEnvelope wraps a coupon count response.
type CountEnvelope struct {
	Count int `json:"count"`
}

// DeleteAck acknowledges a delete operation. It is returned instead of
// the full coupon for both trash and permanent deletion.
type DeleteAck struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

// ListFilter describes a list/count query. Fields holds whitelisted
// column filters forwarded to the storage query; Page is 1-indexed.
type ListFilter struct {
	Page    int
	PerPage int
	Fields  map[string]string
}

// CouponList is the result of a list operation including the total the
// repository counted, for pagination metadata.
type CouponList struct {
	Coupons []*CouponResponse
	Total   int
	PerPage int
}

// TotalPages computes the page count for pagination headers.
func (l *CouponList) TotalPages() int {
	if l.PerPage <= 0 {
		return 0
	}
	return (l.Total + l.PerPage - 1) / l.PerPage
}
