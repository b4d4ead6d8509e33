// Package db carries the embedded storage schema so deployments can
// bootstrap a database without external migration tooling.
package db

import _ "embed"

// Schema is the coupons table DDL, including the partial unique index
// that enforces code uniqueness among published coupons.
//
//go:embed schema.sql
var Schema string
