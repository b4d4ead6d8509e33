package model

import (
	"sort"
	"sync"
)

// Built-in discount types. The set is extensible at runtime via
// RegisterCouponType for deployments with custom discount strategies.
const (
	TypeFixedCart      = "fixed_cart"
	TypePercent        = "percent"
	TypeFixedProduct   = "fixed_product"
	TypePercentProduct = "percent_product"
)

var (
	typesMu     sync.RWMutex
	couponTypes = map[string]string{
		TypeFixedCart:      "Cart Discount",
		TypePercent:        "Cart % Discount",
		TypeFixedProduct:   "Product Discount",
		TypePercentProduct: "Product % Discount",
	}
)

// RegisterCouponType adds a discount type to the registered set.
// Registering an existing key overwrites its label.
func RegisterCouponType(key, label string) {
	typesMu.Lock()
	defer typesMu.Unlock()
	couponTypes[key] = label
}

// IsValidCouponType reports whether t is a registered discount type.
func IsValidCouponType(t string) bool {
	typesMu.RLock()
	defer typesMu.RUnlock()
	_, ok := couponTypes[t]
	return ok
}

// CouponTypes returns the registered discount type keys in sorted order.
func CouponTypes() []string {
	typesMu.RLock()
	defer typesMu.RUnlock()
	keys := make([]string, 0, len(couponTypes))
	for k := range couponTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
