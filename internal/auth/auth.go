// Package auth provides the capability checks the resource service
// queries before touching data. Identity resolution is deliberately
// thin: the subject is whatever credential the transport extracted
// (an API key here), and the Authorizer decides what it may do.
package auth

import "context"

// Action is a capability the service asks about.
type Action string

const (
	// ActionRead covers reading an individual published coupon.
	ActionRead Action = "read"
	// ActionReadPrivate covers the count endpoint, which reveals
	// totals independent of per-record visibility.
	ActionReadPrivate Action = "read_private"
	// ActionPublish covers creating coupons.
	ActionPublish Action = "publish"
	// ActionEdit covers partial updates.
	ActionEdit Action = "edit"
	// ActionDelete covers trash and permanent deletion.
	ActionDelete Action = "delete"
)

// Authorizer answers capability queries for a subject. couponID is the
// record under consideration, or 0 for collection-level operations.
type Authorizer interface {
	Can(ctx context.Context, subject string, action Action, couponID int64) bool
}

// AllowAll grants every capability. Used in development when no API
// keys are configured.
type AllowAll struct{}

// Can always returns true.
func (AllowAll) Can(context.Context, string, Action, int64) bool {
	return true
}

// Role capability sets. A manager may do everything; a viewer only
// reads individual coupons.
var roleActions = map[string]map[Action]bool{
	"manager": {
		ActionRead:        true,
		ActionReadPrivate: true,
		ActionPublish:     true,
		ActionEdit:        true,
		ActionDelete:      true,
	},
	"viewer": {
		ActionRead: true,
	},
}

// RoleAuthorizer maps API keys to roles and roles to capabilities.
// Unknown subjects (including the empty anonymous subject) are denied.
type RoleAuthorizer struct {
	keys map[string]string // api key -> role
}

// NewRoleAuthorizer creates a RoleAuthorizer from a key-to-role map.
func NewRoleAuthorizer(keys map[string]string) *RoleAuthorizer {
	return &RoleAuthorizer{keys: keys}
}

// Can reports whether the subject's role grants the action.
func (a *RoleAuthorizer) Can(_ context.Context, subject string, action Action, _ int64) bool {
	role, ok := a.keys[subject]
	if !ok {
		return false
	}
	return roleActions[role][action]
}
